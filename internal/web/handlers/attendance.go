package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

const maxAttendanceLimit = 500

// AttendanceHandler serves the attendance log
type AttendanceHandler struct{}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler() *AttendanceHandler {
	return &AttendanceHandler{}
}

// List returns the most recent attendance records, newest first
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultAttendanceLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAttendanceLimit)
	}

	writer, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}

	records, err := writer.ListRecent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("listing attendance")
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
