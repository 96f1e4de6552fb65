package vectordb

import "math"

// MMR selects up to k candidates by maximal marginal relevance:
//
//	score(d) = lambda*sim(q, d) - (1-lambda)*max(sim(d, s) for s in selected)
//
// Candidates are expected in descending similarity order; the returned
// indices are in selection order. Similarity is cosine.
func MMR(query []float32, candidates [][]float32, k int, lambda float32) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = cosine(query, c)
	}

	// maxSim[i] tracks the highest similarity of candidate i to anything selected.
	maxSim := make([]float64, len(candidates))
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}
	used := make([]bool, len(candidates))
	selected := make([]int, 0, k)
	l := float64(lambda)

	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = maxSim[i]
			}
			score := l*relevance[i] - (1-l)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		selected = append(selected, best)
		for i := range candidates {
			if !used[i] {
				if s := cosine(candidates[i], candidates[best]); s > maxSim[i] {
					maxSim[i] = s
				}
			}
		}
	}
	return selected
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
