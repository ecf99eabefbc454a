package database_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 2},
		{"empty", nil, nil, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := database.CosineDistance(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("CosineDistance = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.7, 0},
		{-0.1, 1},
	}
	for _, tc := range tests {
		if got := database.Confidence(tc.distance); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Confidence(%v) = %v; want %v", tc.distance, got, tc.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jiří Novák", "jiri novak"},
		{"  Anne-Marie   Dupont ", "anne marie dupont"},
		{"ZOË", "zoe"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := database.NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterProfiles(t *testing.T) {
	profiles := []database.StoredProfile{
		{ID: "1", Name: "Jiří Novák", EmployeeID: "E-1", Department: "Engineering"},
		{ID: "2", Name: "Sarah Johnson", EmployeeID: "HR-7", Department: "Human Resources"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2"}},
		{"novak", []string{"1"}},
		{"hr 7", []string{"2"}},
		{"human", []string{"2"}},
		{"nobody", nil},
	}
	for _, tc := range tests {
		got := database.FilterProfiles(profiles, tc.query)
		if len(got) != len(tc.want) {
			t.Errorf("FilterProfiles(%q) returned %d profiles; want %d", tc.query, len(got), len(tc.want))
			continue
		}
		for i := range got {
			if got[i].ID != tc.want[i] {
				t.Errorf("FilterProfiles(%q)[%d] = %s; want %s", tc.query, i, got[i].ID, tc.want[i])
			}
		}
	}
}

func TestNearest(t *testing.T) {
	profiles := []database.StoredProfile{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "none"},
		{ID: "close", Embedding: []float32{1, 0.1}},
		{ID: "exact", Embedding: []float32{1, 0}},
		{ID: "wrong-dim", Embedding: []float32{1, 0, 0}},
	}

	got, distances := database.Nearest(profiles, []float32{1, 0}, 2)

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "exact" || got[1].ID != "close" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if distances[0] > distances[1] {
		t.Errorf("distances not ascending: %v", distances)
	}
}

func newIndexedStore(t *testing.T) (*database.ProfileIndex, *mock.MockProfileStore) {
	t.Helper()
	store := mock.NewMockProfileStore()
	store.AddProfile(database.StoredProfile{ID: "a", EmployeeID: "A", Embedding: []float32{1, 0, 0}})
	store.AddProfile(database.StoredProfile{ID: "b", EmployeeID: "B", Embedding: []float32{0, 1, 0}})
	store.AddProfile(database.StoredProfile{ID: "c", EmployeeID: "C"})

	idx, err := database.NewProfileIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("building index: %v", err)
	}
	return idx, store
}

func TestProfileIndex_Build(t *testing.T) {
	idx, _ := newIndexedStore(t)
	if idx.Len() != 2 {
		t.Errorf("expected 2 indexed profiles, got %d", idx.Len())
	}
	count, _ := idx.Count(context.Background())
	if count != 3 {
		t.Errorf("expected store count 3, got %d", count)
	}
}

func TestProfileIndex_FindNearest(t *testing.T) {
	idx, _ := newIndexedStore(t)

	profiles, distances, err := idx.FindNearest(context.Background(), []float32{0.9, 0.1, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "a" {
		t.Fatalf("expected nearest profile a, got %+v", profiles)
	}
	if distances[0] > 0.1 {
		t.Errorf("expected small distance, got %v", distances[0])
	}
}

func TestProfileIndex_SaveAndDelete(t *testing.T) {
	idx, store := newIndexedStore(t)
	ctx := context.Background()

	if err := idx.Save(ctx, database.StoredProfile{ID: "d", EmployeeID: "D", Embedding: []float32{0, 0, 1}, RegisteredAt: time.Now()}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	profiles, _, _ := idx.FindNearest(ctx, []float32{0, 0, 1}, 1)
	if len(profiles) != 1 || profiles[0].ID != "d" {
		t.Fatalf("expected d, got %+v", profiles)
	}

	if err := idx.Delete(ctx, "d"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	profiles, _, _ = idx.FindNearest(ctx, []float32{0, 0, 1}, 3)
	for _, p := range profiles {
		if p.ID == "d" {
			t.Error("deleted profile returned by FindNearest")
		}
	}
	if p, _ := store.Get(ctx, "d"); p != nil {
		t.Error("profile still in store after delete")
	}
}

func TestProfileIndex_DimensionMismatch(t *testing.T) {
	idx, _ := newIndexedStore(t)

	err := idx.Save(context.Background(), database.StoredProfile{ID: "x", EmployeeID: "X", Embedding: []float32{1, 0}})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
	profiles, _, err := idx.FindNearest(context.Background(), []float32{1, 0}, 1)
	if err != nil || len(profiles) != 0 {
		t.Errorf("expected no results for mismatched query, got %v, %v", profiles, err)
	}
}

func TestProfileIndex_Empty(t *testing.T) {
	idx, err := database.NewProfileIndex(context.Background(), mock.NewMockProfileStore())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	profiles, _, err := idx.FindNearest(context.Background(), []float32{1}, 5)
	if err != nil || len(profiles) != 0 {
		t.Errorf("expected empty result, got %v, %v", profiles, err)
	}
}

func TestProvider(t *testing.T) {
	t.Cleanup(database.ResetBackend)
	database.ResetBackend()

	if _, err := database.GetProfileWriter(context.Background()); err == nil {
		t.Error("expected error before registration")
	}

	profiles := mock.NewMockProfileStore()
	attendance := mock.NewMockAttendanceLog()
	database.RegisterBackend("memory",
		func() database.ProfileWriter { return profiles },
		func() database.AttendanceWriter { return attendance },
	)

	if !database.IsInitialized() || database.Backend() != "memory" {
		t.Errorf("expected memory backend, got %q", database.Backend())
	}
	if w, err := database.GetProfileWriter(context.Background()); err != nil || w != profiles {
		t.Errorf("unexpected profile writer %v, %v", w, err)
	}
	if w, err := database.GetAttendanceWriter(context.Background()); err != nil || w != attendance {
		t.Errorf("unexpected attendance writer %v, %v", w, err)
	}
}
