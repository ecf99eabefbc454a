package database

import (
	"context"
	"fmt"
	"sync"
)

// IndexRebuilder is implemented by stores that keep an in-memory nearest
// neighbour index next to the database.
type IndexRebuilder interface {
	// Rebuild reloads the index from the backing store
	Rebuild(ctx context.Context) error
	// Len returns the number of indexed profiles
	Len() int
}

var (
	mu               sync.RWMutex
	backendName      string
	profileWriter    func() ProfileWriter
	attendanceWriter func() AttendanceWriter
	indexRebuilder   IndexRebuilder
)

// RegisterBackend registers the repository constructors of a storage backend.
// This is called from cmd after the backend connection is established, so
// packages depending on the contracts never import a driver.
func RegisterBackend(name string, profiles func() ProfileWriter, attendance func() AttendanceWriter) {
	mu.Lock()
	defer mu.Unlock()
	backendName = name
	profileWriter = profiles
	attendanceWriter = attendance
}

// RegisterIndexRebuilder registers the nearest neighbour index of the profile store.
func RegisterIndexRebuilder(r IndexRebuilder) {
	mu.Lock()
	defer mu.Unlock()
	indexRebuilder = r
}

// GetIndexRebuilder returns the registered index, or nil if not registered.
func GetIndexRebuilder() IndexRebuilder {
	mu.RLock()
	defer mu.RUnlock()
	return indexRebuilder
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return profileWriter != nil
}

// Backend returns the name of the registered backend.
func Backend() string {
	mu.RLock()
	defer mu.RUnlock()
	return backendName
}

// GetProfileWriter returns a ProfileWriter from the registered backend
func GetProfileWriter(ctx context.Context) (ProfileWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if profileWriter == nil {
		return nil, fmt.Errorf("storage backend not initialized")
	}
	return profileWriter(), nil
}

// GetProfileReader returns a ProfileReader from the registered backend
func GetProfileReader(ctx context.Context) (ProfileReader, error) {
	return GetProfileWriter(ctx)
}

// GetAttendanceWriter returns an AttendanceWriter from the registered backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if attendanceWriter == nil {
		return nil, fmt.Errorf("storage backend not initialized")
	}
	return attendanceWriter(), nil
}

// ResetBackend clears every registration. Intended for tests.
func ResetBackend() {
	mu.Lock()
	defer mu.Unlock()
	backendName = ""
	profileWriter = nil
	attendanceWriter = nil
	indexRebuilder = nil
}
