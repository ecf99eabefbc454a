package database

import "time"

// Attendance statuses.
const (
	AttendanceVerified = "VERIFIED"
	AttendanceFailed   = "FAILED"
)

// StoredProfile is an enrolled person. Embedding is empty for profiles
// enrolled without an embedding server.
type StoredProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EmployeeID   string    `json:"employee_id"`
	Department   string    `json:"department"`
	Embedding    []float32 `json:"-"`
	Model        string    `json:"model,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// HasEmbedding reports whether the profile can take part in identification.
func (p *StoredProfile) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// AttendanceRecord is one recognition outcome written to the attendance log.
type AttendanceRecord struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id,omitempty"`
	Name       string    `json:"name"`
	EmployeeID string    `json:"employee_id,omitempty"`
	Department string    `json:"department,omitempty"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}
