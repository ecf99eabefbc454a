package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestAttendanceHandler_List(t *testing.T) {
	_, attendance := withMockStorage(t)
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	for i := range 30 {
		attendance.Record(t.Context(), database.AttendanceRecord{
			ID:         fmt.Sprintf("rec-%02d", i),
			Name:       "Alice Novak",
			Confidence: 0.9,
			Status:     database.AttendanceVerified,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	h := NewAttendanceHandler()

	tests := []struct {
		name   string
		query  string
		status int
		count  int
		first  string
	}{
		{"default limit", "", http.StatusOK, 25, "rec-29"},
		{"explicit limit", "?limit=3", http.StatusOK, 3, "rec-29"},
		{"limit above total", "?limit=1000", http.StatusOK, 30, "rec-29"},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0, ""},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.List(recorder, httptest.NewRequest("GET", "/api/v1/attendance"+tc.query, nil))
			assertStatusCode(t, recorder, tc.status)
			if tc.status != http.StatusOK {
				return
			}

			var records []database.AttendanceRecord
			parseJSONResponse(t, recorder, &records)
			if len(records) != tc.count {
				t.Fatalf("expected %d records, got %d", tc.count, len(records))
			}
			if records[0].ID != tc.first {
				t.Errorf("expected newest record %s first, got %s", tc.first, records[0].ID)
			}
		})
	}
}

func TestAttendanceHandler_Empty(t *testing.T) {
	withMockStorage(t)

	recorder := httptest.NewRecorder()
	NewAttendanceHandler().List(recorder, httptest.NewRequest("GET", "/api/v1/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if body := recorder.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}
}
