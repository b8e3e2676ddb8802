package graph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/ch097711/fuzz-introspector/internal/model"
	"github.com/ch097711/fuzz-introspector/internal/parse"
)

const (
	// DefaultReportName is used when ReportOptions.Name is empty.
	DefaultReportName = "name"
	// LinkageInternal marks static functions in the report.
	LinkageInternal = "internal"
)

// ReportOptions parameterize Report.
type ReportOptions struct {
	Name string
	// HarnessSource is the path of the fuzzer source file.
	HarnessSource string
}

// Report assembles the project report. Name resolutions memoized while
// building it are cleared before returning.
func (p *Project) Report(opts ReportOptions) *model.Report {
	defer p.ClearCache()

	rep := &model.Report{
		Name:           opts.Name,
		FuzzingMethod:  parse.HarnessEntry,
		FuzzerFilename: opts.HarnessSource,
	}
	if rep.Name == "" {
		rep.Name = DefaultReportName
	}
	for _, u := range p.Units {
		names := make([]string, len(u.Functions))
		for i, f := range u.Functions {
			names[i] = f.Name
		}
		rep.Sources = append(rep.Sources, model.SourceReport{
			SourceFile:    u.Path,
			FunctionNames: names,
			Types:         u.Catalog.Types(),
			MacroBlocks:   u.ConditionalBlocks,
		})
	}
	rep.AllFunctions.Elements = p.Elements()
	rep.IncludedHeaders = sortedKeys(p.Includes)

	slog.Debug("report.done", "sources", len(rep.Sources), "functions", len(rep.AllFunctions.Elements))
	return rep
}

// Elements returns one record per function. The records are built once;
// each call returns a copy.
func (p *Project) Elements() []model.FunctionReport {
	if p.elements == nil {
		p.elements = p.buildElements()
	}
	out := make([]model.FunctionReport, len(p.elements))
	for i, fr := range p.elements {
		out[i] = cloneReport(fr)
	}
	return out
}

func (p *Project) buildElements() []model.FunctionReport {
	for _, f := range p.Functions {
		p.CallSites(f)
	}
	ranks := p.Rank()

	out := make([]model.FunctionReport, 0, len(p.Functions))
	for i, f := range p.Functions {
		sites := p.CallSites(f)
		refs := make([]model.CallsiteRef, len(sites))
		for j, cs := range sites {
			refs[j] = model.CallsiteRef{
				Src: fmt.Sprintf("%s:%d,1", f.File(), cs.Line),
				Dst: cs.Target,
			}
		}
		var linkage string
		if f.Static {
			linkage = LinkageInternal
		}
		out = append(out, model.FunctionReport{
			Name:             f.Name,
			SourceFile:       f.File(),
			LineStart:        f.StartLine,
			LineEnd:          f.EndLine,
			LinkageType:      linkage,
			Position:         model.LineRange{Start: f.StartLine, End: f.EndLine},
			Complexity:       f.Complexity,
			EdgeCount:        f.Complexity,
			ICount:           f.Instructions,
			ArgNames:         f.ArgNames(),
			ArgTypes:         f.ArgTypes(),
			ArgCount:         len(f.Params),
			ReturnType:       f.ReturnType,
			BranchProfiles:   []string{},
			ConstantsTouched: []string{},
			BBCount:          f.BasicBlocks,
			Signature:        f.Signature,
			Asserts:          f.Asserts,
			Callsites:        refs,
			Uses:             p.Uses(f.Name),
			Depth:            p.Depth(f),
			Reached:          p.reachableFrom(f),
			Rank:             ranks[i],
		})
	}
	return out
}

func cloneReport(fr model.FunctionReport) model.FunctionReport {
	fr.ArgNames = slices.Clone(fr.ArgNames)
	fr.ArgTypes = slices.Clone(fr.ArgTypes)
	fr.BranchProfiles = slices.Clone(fr.BranchProfiles)
	fr.ConstantsTouched = slices.Clone(fr.ConstantsTouched)
	fr.Asserts = slices.Clone(fr.Asserts)
	fr.Callsites = slices.Clone(fr.Callsites)
	fr.Reached = slices.Clone(fr.Reached)
	return fr
}
