package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestProfileHandoff_Persists(t *testing.T) {
	profiles, _ := withMockStorage(t)
	p := biometric.EnrolledProfile{
		ID: "USR-AB12", Name: "Alice Novak", EmployeeID: "E-1", Department: "Engineering",
		RegisteredAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}

	if err := (ProfileHandoff{}).PersistAndNavigate(t.Context(), p); err != nil {
		t.Fatalf("PersistAndNavigate failed: %v", err)
	}

	stored, _ := profiles.Get(t.Context(), "USR-AB12")
	if stored == nil || stored.EmployeeID != "E-1" || stored.HasEmbedding() {
		t.Fatalf("unexpected stored profile %+v", stored)
	}
}

func TestProfileHandoff_KeepsExistingProfile(t *testing.T) {
	profiles, _ := withMockStorage(t)
	profiles.AddProfile(database.StoredProfile{ID: "USR-AB12", Name: "Alice Novak", EmployeeID: "E-1", Embedding: []float32{1, 0}})
	profiles.SaveError = errors.New("must not save")

	err := (ProfileHandoff{}).PersistAndNavigate(t.Context(), biometric.EnrolledProfile{ID: "USR-AB12", EmployeeID: "E-1"})
	if err != nil {
		t.Fatalf("expected existing profile to be kept, got %v", err)
	}
}

func TestProfileHandoff_NoStorage(t *testing.T) {
	database.ResetBackend()

	if err := (ProfileHandoff{}).PersistAndNavigate(t.Context(), biometric.EnrolledProfile{ID: "USR-1"}); err != nil {
		t.Errorf("expected nil without storage, got %v", err)
	}
}

func TestAttendanceLog_RecordError(t *testing.T) {
	_, attendance := withMockStorage(t)
	attendance.RecordError = errors.New("disk full")

	err := (AttendanceLog{}).RecordAttendance(t.Context(), biometric.MatchedProfile{ID: "USR-1"}, 0.9, time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestProfileHandoff_DuplicateEmployeeID(t *testing.T) {
	profiles, _ := withMockStorage(t)
	profiles.AddProfile(database.StoredProfile{ID: "USR-ZZ99", Name: "Bob Marek", EmployeeID: "E-1"})

	err := (ProfileHandoff{}).PersistAndNavigate(t.Context(), biometric.EnrolledProfile{ID: "USR-AB12", Name: "Alice Novak", EmployeeID: "E-1"})
	if !errors.Is(err, database.ErrDuplicateEmployeeID) {
		t.Fatalf("expected ErrDuplicateEmployeeID, got %v", err)
	}
	if stored, _ := profiles.Get(t.Context(), "USR-AB12"); stored != nil {
		t.Errorf("duplicate profile must not be stored, got %+v", stored)
	}
}
