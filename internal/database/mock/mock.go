// Package mock provides in-memory implementations of the database interfaces.
// Used by tests and by the server when no database is configured.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockProfileStore is an in-memory database.ProfileWriter
type MockProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]database.StoredProfile

	// Error injection
	GetError         error
	ListError        error
	CountError       error
	FindNearestError error
	SaveError        error
	DeleteError      error
}

// NewMockProfileStore creates an empty profile store
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{
		profiles: make(map[string]database.StoredProfile),
	}
}

// AddProfile adds a profile bypassing the duplicate check
func (m *MockProfileStore) AddProfile(p database.StoredProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// Get retrieves a profile by ID
func (m *MockProfileStore) Get(ctx context.Context, id string) (*database.StoredProfile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// GetByEmployeeID retrieves a profile by employee ID
func (m *MockProfileStore) GetByEmployeeID(ctx context.Context, employeeID string) (*database.StoredProfile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if p.EmployeeID == employeeID {
			return &p, nil
		}
	}
	return nil, nil
}

// List returns all profiles, newest first
func (m *MockProfileStore) List(ctx context.Context) ([]database.StoredProfile, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b database.StoredProfile) int {
		if c := b.RegisteredAt.Compare(a.RegisteredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Count returns the number of profiles
func (m *MockProfileStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

// FindNearest ranks profiles by cosine distance
func (m *MockProfileStore) FindNearest(ctx context.Context, embedding []float32, limit int) ([]database.StoredProfile, []float64, error) {
	if m.FindNearestError != nil {
		return nil, nil, m.FindNearestError
	}
	all, err := m.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	profiles, distances := database.Nearest(all, embedding, limit)
	return profiles, distances, nil
}

// Save inserts or replaces a profile
func (m *MockProfileStore) Save(ctx context.Context, p database.StoredProfile) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.profiles {
		if id != p.ID && existing.EmployeeID == p.EmployeeID {
			return database.ErrDuplicateEmployeeID
		}
	}
	m.profiles[p.ID] = p
	return nil
}

// Delete removes a profile
func (m *MockProfileStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

// MockAttendanceLog is an in-memory database.AttendanceWriter
type MockAttendanceLog struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord

	// Error injection
	RecordError error
	ListError   error
}

// NewMockAttendanceLog creates an empty attendance log
func NewMockAttendanceLog() *MockAttendanceLog {
	return &MockAttendanceLog{}
}

// Record appends a record
func (m *MockAttendanceLog) Record(ctx context.Context, r database.AttendanceRecord) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// ListRecent returns up to limit records, newest first
func (m *MockAttendanceLog) ListRecent(ctx context.Context, limit int) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.records)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b database.AttendanceRecord) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Records returns every record in insertion order
func (m *MockAttendanceLog) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

var (
	_ database.ProfileWriter    = (*MockProfileStore)(nil)
	_ database.AttendanceWriter = (*MockAttendanceLog)(nil)
)
