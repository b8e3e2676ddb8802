package graph

import "github.com/ch097711/fuzz-introspector/internal/parse"

// Depth returns the length of the longest chain of locatable calls starting
// at f. Inside a recursive cycle a chain takes at most one call before it
// must leave the cycle, so recursion counts as one step. Results are cached.
func (p *Project) Depth(f *parse.Function) int {
	i, ok := p.ordinal[f]
	if !ok {
		return 0
	}
	if p.depth[i] >= 0 {
		return p.depth[i]
	}
	p.buildEdges()
	p.components()
	return p.computeDepth(i)
}

// computeDepth only recurses into other strongly connected components, so it
// terminates on cyclic graphs.
func (p *Project) computeDepth(i int) int {
	if p.depth[i] >= 0 {
		return p.depth[i]
	}
	d := 0
	for _, j := range p.edges[i] {
		switch {
		case j == i:
			d = max(d, 1)
		case p.comp[j] == p.comp[i]:
			d = max(d, 1+p.exitDepth(j))
		default:
			d = max(d, 1+p.computeDepth(j))
		}
	}
	p.depth[i] = d
	return d
}

// exitDepth is the longest chain from j that leaves j's component on its
// first call.
func (p *Project) exitDepth(j int) int {
	d := 0
	for _, k := range p.edges[j] {
		if p.comp[k] != p.comp[j] {
			d = max(d, 1+p.computeDepth(k))
		}
	}
	return d
}

// components labels each function with its strongly connected component
// (Tarjan).
func (p *Project) components() {
	if p.comp != nil {
		return
	}
	n := len(p.Functions)
	p.comp = make([]int, n)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next, label := 0, 0

	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range p.edges[v] {
			if index[w] < 0 {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			p.comp[w] = label
			if w == v {
				break
			}
		}
		label++
	}
	for v := 0; v < n; v++ {
		if index[v] < 0 {
			visit(v)
		}
	}
}
