package database

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/coder/hnsw"
)

// ProfileIndex serves FindNearest from an in-memory HNSW graph and delegates
// everything else to the wrapped store. Writes go to the store first and
// are mirrored into the graph on success.
type ProfileIndex struct {
	store ProfileWriter

	mu       sync.RWMutex
	graph    *hnsw.Graph[string]
	profiles map[string]StoredProfile // only profiles present in the graph
	dim      int
}

// NewProfileIndex wraps store and builds the index from its current contents.
func NewProfileIndex(ctx context.Context, store ProfileWriter) (*ProfileIndex, error) {
	idx := &ProfileIndex{store: store}
	if err := idx.Rebuild(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Rebuild reloads every profile from the store.
func (x *ProfileIndex) Rebuild(ctx context.Context) error {
	profiles, err := x.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}

	g := newGraph()
	byID := make(map[string]StoredProfile, len(profiles))
	dim := 0
	for _, p := range profiles {
		if !p.HasEmbedding() {
			continue
		}
		if dim == 0 {
			dim = len(p.Embedding)
		}
		if len(p.Embedding) != dim {
			continue
		}
		g.Add(hnsw.MakeNode(p.ID, p.Embedding))
		byID[p.ID] = p
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph = g
	x.profiles = byID
	x.dim = dim
	return nil
}

// Len returns the number of indexed profiles.
func (x *ProfileIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.profiles)
}

func (x *ProfileIndex) Get(ctx context.Context, id string) (*StoredProfile, error) {
	return x.store.Get(ctx, id)
}

func (x *ProfileIndex) GetByEmployeeID(ctx context.Context, employeeID string) (*StoredProfile, error) {
	return x.store.GetByEmployeeID(ctx, employeeID)
}

func (x *ProfileIndex) List(ctx context.Context) ([]StoredProfile, error) {
	return x.store.List(ctx)
}

func (x *ProfileIndex) Count(ctx context.Context) (int, error) {
	return x.store.Count(ctx)
}

// Save stores the profile and indexes its embedding.
func (x *ProfileIndex) Save(ctx context.Context, p StoredProfile) error {
	if err := x.store.Save(ctx, p); err != nil {
		return err
	}
	if !p.HasEmbedding() {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dim == 0 {
		x.dim = len(p.Embedding)
	}
	if len(p.Embedding) != x.dim {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(p.Embedding), x.dim)
	}
	x.graph.Add(hnsw.MakeNode(p.ID, p.Embedding))
	x.profiles[p.ID] = p
	return nil
}

// Delete removes the profile. The graph node stays until the next Rebuild
// but is never returned.
func (x *ProfileIndex) Delete(ctx context.Context, id string) error {
	if err := x.store.Delete(ctx, id); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.profiles, id)
	return nil
}

// FindNearest searches the graph. Distances are recomputed from the stored
// embeddings so re-saved profiles rank by their latest vector.
func (x *ProfileIndex) FindNearest(_ context.Context, embedding []float32, limit int) ([]StoredProfile, []float64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.profiles) == 0 || len(embedding) != x.dim {
		return nil, nil, nil
	}

	neighbors := x.graph.Search(embedding, limit*HNSWSearchMultiplier)

	type hit struct {
		profile  StoredProfile
		distance float64
	}
	seen := make(map[string]bool, len(neighbors))
	hits := make([]hit, 0, len(neighbors))
	for _, n := range neighbors {
		p, ok := x.profiles[n.Key]
		if !ok || seen[n.Key] {
			continue
		}
		seen[n.Key] = true
		hits = append(hits, hit{p, CosineDistance(embedding, p.Embedding)})
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(a.distance, b.distance) })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	profiles := make([]StoredProfile, len(hits))
	distances := make([]float64, len(hits))
	for i, h := range hits {
		profiles[i] = h.profile
		distances[i] = h.distance
	}
	return profiles, distances, nil
}
