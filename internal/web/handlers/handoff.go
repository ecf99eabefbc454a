package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ProfileHandoff stores a freshly enrolled profile for the success screen.
// Profiles already stored by the enrolling client are left untouched.
type ProfileHandoff struct{}

func (ProfileHandoff) PersistAndNavigate(ctx context.Context, p biometric.EnrolledProfile) error {
	writer, err := database.GetProfileWriter(ctx)
	if err != nil {
		log.Debug().Str("profile", p.ID).Msg("no storage backend, profile not persisted")
		return nil
	}

	existing, err := writer.Get(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("loading profile %s: %w", p.ID, err)
	}
	if existing != nil {
		return nil
	}

	if err := writer.Save(ctx, database.StoredProfile{
		ID:           p.ID,
		Name:         p.Name,
		EmployeeID:   p.EmployeeID,
		Department:   p.Department,
		RegisteredAt: p.RegisteredAt,
	}); err != nil {
		return fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	log.Info().Str("profile", p.ID).Str("employee_id", p.EmployeeID).Msg("profile persisted")
	return nil
}

// AttendanceLog writes every verified scan to the attendance log.
type AttendanceLog struct{}

func (AttendanceLog) RecordAttendance(ctx context.Context, p biometric.MatchedProfile, confidence float64, at time.Time) error {
	writer, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		log.Debug().Str("profile", p.ID).Msg("no storage backend, attendance not recorded")
		return nil
	}

	record := database.AttendanceRecord{
		ID:         uuid.New().String(),
		ProfileID:  p.ID,
		Name:       p.Name,
		EmployeeID: p.EmployeeID,
		Department: p.Department,
		Confidence: confidence,
		Status:     database.AttendanceVerified,
		RecordedAt: at,
	}
	if err := writer.Record(ctx, record); err != nil {
		return fmt.Errorf("recording attendance for %s: %w", p.ID, err)
	}
	return nil
}
