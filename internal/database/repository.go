package database

import (
	"context"
	"errors"
)

// ErrDuplicateEmployeeID is returned by Save when another profile already
// uses the employee ID.
var ErrDuplicateEmployeeID = errors.New("employee ID already enrolled")

// ProfileReader provides read-only access to enrolled profiles
type ProfileReader interface {
	// Get retrieves a profile by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredProfile, error)
	// GetByEmployeeID retrieves a profile by employee ID, returns nil if not found
	GetByEmployeeID(ctx context.Context, employeeID string) (*StoredProfile, error)
	// List returns all profiles, newest first
	List(ctx context.Context) ([]StoredProfile, error)
	// Count returns the total number of profiles
	Count(ctx context.Context) (int, error)
	// FindNearest returns up to limit profiles with embeddings ordered by
	// cosine distance to embedding, with the distances
	FindNearest(ctx context.Context, embedding []float32, limit int) ([]StoredProfile, []float64, error)
}

// ProfileWriter provides write access to enrolled profiles
type ProfileWriter interface {
	ProfileReader

	// Save inserts or replaces a profile
	Save(ctx context.Context, profile StoredProfile) error
	// Delete removes a profile; deleting an unknown ID is not an error
	Delete(ctx context.Context, id string) error
}

// AttendanceWriter stores recognition outcomes
type AttendanceWriter interface {
	// Record appends a record to the attendance log
	Record(ctx context.Context, record AttendanceRecord) error
	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]AttendanceRecord, error)
}
