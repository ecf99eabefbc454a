package database

import (
	"cmp"
	"math"
	"slices"
)

// CosineDistance computes 1 - cosine similarity of a and b, in [0, 2].
// Mismatched, empty or zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - math.Max(-1, math.Min(1, similarity))
}

// Confidence converts a cosine distance into a match confidence in [0, 1].
func Confidence(distance float64) float64 {
	return math.Max(0, math.Min(1, 1-distance))
}

// Nearest ranks profiles with embeddings by distance to query and returns the
// closest limit of them. Used by backends without native vector search.
func Nearest(profiles []StoredProfile, query []float32, limit int) ([]StoredProfile, []float64) {
	type scored struct {
		profile  StoredProfile
		distance float64
	}
	candidates := make([]scored, 0, len(profiles))
	for _, p := range profiles {
		if !p.HasEmbedding() || len(p.Embedding) != len(query) {
			continue
		}
		candidates = append(candidates, scored{p, CosineDistance(query, p.Embedding)})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(a.distance, b.distance)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]StoredProfile, len(candidates))
	distances := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = c.profile
		distances[i] = c.distance
	}
	return out, distances
}
