// introspector statically analyses a C/C++ codebase and reports per-function
// metrics, call-graph facts and fuzz-target candidates.
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ch097711/fuzz-introspector/internal/config"
	"github.com/ch097711/fuzz-introspector/internal/discover"
	"github.com/ch097711/fuzz-introspector/internal/graph"
	"github.com/ch097711/fuzz-introspector/internal/lang"
	"github.com/ch097711/fuzz-introspector/internal/model"
	"github.com/ch097711/fuzz-introspector/internal/parse"
	"github.com/ch097711/fuzz-introspector/internal/ranking"
	"github.com/ch097711/fuzz-introspector/internal/report"
	"github.com/ch097711/fuzz-introspector/internal/store"
)

var version = "dev"

const cacheHeader = "# introspector-cache "

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flag values of one run.
type options struct {
	output      string
	format      string
	name        string
	entry       string
	callTree    bool
	reachable   bool
	maxFuncs    int
	symbol      string
	file        string
	targets     bool
	dbPath      string
	cachePath   string
	configPath  string
	langs       string
	maxFileSize int
	skipTests   bool
	verbose     bool
	showVersion bool
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "init" {
		return runInit(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("introspector", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.output, "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&o.format, "format", "", "output format: yaml or toon")
	fs.StringVar(&o.name, "name", "", "report name (default: root directory name)")
	fs.StringVar(&o.entry, "entry", "", "entry function for -calltree and -reachable")
	fs.BoolVar(&o.callTree, "calltree", false, "print the call tree from the entry function")
	fs.BoolVar(&o.reachable, "reachable", false, "print the functions reachable from the entry function")
	fs.IntVar(&o.maxFuncs, "n", 0, "maximum number of functions to include, by rank")
	fs.StringVar(&o.symbol, "symbol", "", "only functions matching this name, with their callers and callees")
	fs.StringVar(&o.file, "file", "", "only functions in files whose path contains this substring")
	fs.BoolVar(&o.targets, "targets", false, "suggest fuzz targets")
	fs.StringVar(&o.dbPath, "db", "", "also store the report in this SQLite database")
	fs.StringVar(&o.cachePath, "cache", "", "cache file path")
	fs.StringVar(&o.configPath, "config", "", "config file (default: <root>/"+config.FileName+")")
	fs.StringVar(&o.langs, "l", "", "comma-separated languages to include (c, cpp)")
	fs.StringVar(&o.langs, "langs", "", "comma-separated languages to include (c, cpp)")
	fs.IntVar(&o.maxFileSize, "max-file-size", 0, "skip files larger than this many bytes")
	fs.BoolVar(&o.skipTests, "skip-tests", false, "skip test files and directories")
	fs.BoolVar(&o.verbose, "v", false, "verbose logging")
	fs.BoolVar(&o.showVersion, "V", false, "show version and exit")
	fs.BoolVar(&o.showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if o.showVersion {
		_, _ = fmt.Fprintf(stdout, "introspector %s\n", version)
		return nil
	}

	logger := newLogger(stderr, o.verbose)
	if o.verbose {
		slog.SetDefault(logger)
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	cfg, err := loadConfig(fs, &o, root)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	files, err := discover.Files(root, discover.Options{
		Languages: cfg.Languages,
		Exclude:   cfg.Exclude,
		SkipTests: cfg.SkipTests,
	})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no C or C++ files found")
	}

	files = filterBySize(root, files, cfg.MaxFileSize, logger)
	if len(files) == 0 {
		return fmt.Errorf("no parseable files found (all exceeded size limit)")
	}

	var key string
	if o.cachePath != "" {
		key, err = cacheKey(root, files, cfg, &o)
		if err != nil {
			logger.Warn("cache.key", "err", err)
		} else if o.dbPath != "" {
			// The database write needs a fresh report.
			logger.Debug("cache.bypass", "reason", "db")
		} else if data, ok := readCache(o.cachePath, key); ok {
			logger.Info("cache.hit", "path", o.cachePath)
			return emit(o.output, data, stdout)
		}
	}

	ctx := context.Background()
	units := parseUnitsConcurrent(ctx, root, files, logger)
	if len(units) == 0 {
		return fmt.Errorf("no files could be parsed")
	}

	p := graph.New(units)
	if h := p.Harness(); h != nil {
		logger.Info("harness.found", "file", h.Path)
	}

	var out []byte
	switch {
	case o.callTree:
		out = []byte(p.CallTree(cfg.Entry))
		p.ClearCache()
	case o.reachable:
		var b strings.Builder
		for _, name := range p.Reachable(cfg.Entry) {
			b.WriteString(name)
			b.WriteByte('\n')
		}
		out = []byte(b.String())
		p.ClearCache()
	default:
		rep := buildReport(p, cfg, &o)
		if o.dbPath != "" {
			if err := saveReport(ctx, o.dbPath, rep, logger); err != nil {
				return err
			}
		}
		var buf bytes.Buffer
		if err := report.Write(&buf, rep, format); err != nil {
			return err
		}
		out = buf.Bytes()
	}

	if key != "" {
		writeCache(o.cachePath, key, out, logger)
	}
	return emit(o.output, out, stdout)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies the flags that were set on
// the command line over it.
func loadConfig(fs *flag.FlagSet, o *options, root string) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = filepath.Join(root, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = o.format
		case "name":
			cfg.Name = o.name
		case "entry":
			cfg.Entry = o.entry
		case "l", "langs":
			cfg.Languages = nil
			for _, name := range strings.Split(o.langs, ",") {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Languages = append(cfg.Languages, name)
				}
			}
		case "max-file-size":
			cfg.MaxFileSize = o.maxFileSize
		case "skip-tests":
			cfg.SkipTests = o.skipTests
		case "targets":
			cfg.Targets.Enabled = o.targets
		}
	})
	if cfg.Name == "" {
		cfg.Name = filepath.Base(root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildReport(p *graph.Project, cfg *config.Config, o *options) *model.Report {
	opts := graph.ReportOptions{Name: cfg.Name}
	if h := p.Harness(); h != nil {
		opts.HarnessSource = h.Path
	}
	rep := p.Report(opts)

	if cfg.Targets.Enabled {
		rep.Targets = ranking.SelectTargets(rep, oracles(cfg), ranking.TargetOptions{
			PerOracle:  cfg.Targets.Max,
			SkipStatic: cfg.Targets.SkipStatic,
			Exclude:    []string{parse.HarnessEntry, cfg.Entry},
		})
	}

	if o.symbol != "" {
		rep = ranking.FilterBySymbol(rep, o.symbol)
	}
	if o.file != "" {
		rep = ranking.FilterByFile(rep, o.file)
	}
	if o.maxFuncs > 0 {
		rep = ranking.SelectFunctions(rep, o.maxFuncs)
	}
	return rep
}

func oracles(cfg *config.Config) []ranking.Oracle {
	keywords := cfg.Targets.Keywords
	if len(keywords) == 0 {
		keywords = ranking.DefaultKeywords
	}
	return []ranking.Oracle{
		ranking.Keyword{Keywords: keywords, MinComplexity: cfg.Targets.KeywordComplexity},
		ranking.EasyArgs{MinComplexity: cfg.Targets.EasyArgsComplexity},
		ranking.FarReach{MinComplexity: cfg.Targets.FarReachComplexity, MaxArgs: 3},
	}
}

func saveReport(ctx context.Context, path string, rep *model.Report, logger *slog.Logger) error {
	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveReport(ctx, rep)
	if err != nil {
		return fmt.Errorf("storing report: %w", err)
	}
	logger.Info("db.saved", "path", path, "report_id", id, "functions", len(rep.AllFunctions.Elements))
	return nil
}

func emit(path string, data []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// cacheKey digests everything that affects the output: the version, the
// effective config and output flags, and every input file's path and content.
func cacheKey(root string, files []discover.FileEntry, cfg *config.Config, o *options) (string, error) {
	h := xxh3.New()
	settings, err := yaml.Marshal(struct {
		Version   string
		Config    *config.Config
		CallTree  bool
		Reachable bool
		MaxFuncs  int
		Symbol    string
		File      string
	}{version, cfg, o.callTree, o.reachable, o.maxFuncs, o.symbol, o.file})
	if err != nil {
		return "", err
	}
	_, _ = h.Write(settings)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(root, f.Path))
		if err != nil {
			return "", err
		}
		_, _ = h.WriteString(f.Path)
		_, _ = h.Write(binary.BigEndian.AppendUint64([]byte{0}, uint64(len(data))))
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readCache returns the cached output if the cache file was written for key.
func readCache(path, key string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	header, body, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(header) != cacheHeader+key {
		return nil, false
	}
	return body, true
}

func writeCache(path, key string, out []byte, logger *slog.Logger) {
	data := make([]byte, 0, len(cacheHeader)+len(key)+1+len(out))
	data = append(data, cacheHeader...)
	data = append(data, key...)
	data = append(data, '\n')
	data = append(data, out...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("cache.write", "path", path, "err", err)
	}
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, logger *slog.Logger) []discover.FileEntry {
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			logger.Warn("file.skipped", "path", f.Path, "reason", fmt.Sprintf(">%d bytes", maxSize))
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// parseUnitsConcurrent parses files on a bounded pool of goroutines. Parsers
// are pooled per language; files that fail to read or parse are skipped with
// a warning. Units come back in discovery order.
func parseUnitsConcurrent(ctx context.Context, root string, files []discover.FileEntry, logger *slog.Logger) []*parse.Unit {
	pools := make(map[string]*sync.Pool, len(lang.Languages))
	for name, l := range lang.Languages {
		l := l
		pools[name] = &sync.Pool{New: func() any { return l.NewParser() }}
	}

	indexed := make([]*parse.Unit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			l := lang.Languages[f.Language]
			source, err := os.ReadFile(filepath.Join(root, f.Path))
			if err != nil {
				logger.Warn("file.read", "path", f.Path, "err", err)
				return nil
			}

			pool := pools[f.Language]
			parser := pool.Get().(*sitter.Parser)
			u, err := parse.Parse(gctx, l, parser, source, f.Path)
			pool.Put(parser)
			switch {
			case errors.Is(err, parse.ErrNestingTooDeep):
				logger.Warn("file.skipped", "path", f.Path, "reason", "nesting too deep")
				return nil
			case err != nil:
				logger.Warn("file.parse", "path", f.Path, "err", err)
				return nil
			}
			indexed[i] = u
			return nil
		})
	}
	_ = g.Wait()

	units := make([]*parse.Unit, 0, len(files))
	for _, u := range indexed {
		if u != nil {
			units = append(units, u)
		}
	}
	slog.Debug("parse.done", "files", len(files), "units", len(units))
	return units
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-o": true, "--o": true,
	"-format": true, "--format": true,
	"-name": true, "--name": true,
	"-entry": true, "--entry": true,
	"-n": true, "--n": true,
	"-symbol": true, "--symbol": true,
	"-file": true, "--file": true,
	"-db": true, "--db": true,
	"-cache": true, "--cache": true,
	"-config": true, "--config": true,
	"-l": true, "--l": true,
	"-langs": true, "--langs": true,
	"-max-file-size": true, "--max-file-size": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
