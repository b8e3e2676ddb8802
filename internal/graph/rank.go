package graph

import "math"

// Rank computes PageRank over the resolved call graph, indexed like
// Functions. Callees of many callers rank high.
func (p *Project) Rank() []float64 {
	p.buildEdges()
	return pageRank(p.edges, 0.85, 100, 1e-6)
}

func pageRank(outEdges [][]int, alpha float64, maxIter int, tol float64) []float64 {
	n := len(outEdges)
	if n == 0 {
		return nil
	}

	rank := make([]float64, n)
	initial := 1.0 / float64(n)
	for i := range rank {
		rank[i] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make([]float64, n)

		// Dangling node contribution (functions with no resolved callees)
		var danglingSum float64
		for i, targets := range outEdges {
			if len(targets) == 0 {
				danglingSum += rank[i]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for i := range newRank {
			newRank[i] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(len(targets))
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for i := range rank {
			diff += math.Abs(newRank[i] - rank[i])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
