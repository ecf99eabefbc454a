package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository stores the attendance log in PostgreSQL.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Record appends a record.
func (r *AttendanceRepository) Record(ctx context.Context, rec database.AttendanceRecord) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (id, profile_id, name, employee_id, department, confidence, status, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, sql.NullString{String: rec.ProfileID, Valid: rec.ProfileID != ""},
		rec.Name, rec.EmployeeID, rec.Department, rec.Confidence, rec.Status, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *AttendanceRepository) ListRecent(ctx context.Context, limit int) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, profile_id, name, employee_id, department, confidence, status, recorded_at
		FROM attendance
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var profileID sql.NullString
		if err := rows.Scan(&rec.ID, &profileID, &rec.Name, &rec.EmployeeID, &rec.Department,
			&rec.Confidence, &rec.Status, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.ProfileID = profileID.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

var _ database.AttendanceWriter = (*AttendanceRepository)(nil)
