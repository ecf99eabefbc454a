package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Departments         []string `json:"departments"`
	Recognition         string   `json:"recognition"`
	Storage             string   `json:"storage,omitempty"`
	CountdownSeconds    int      `json:"countdown_seconds"`
	RecordingMs         int64    `json:"recording_ms"`
	RecordingTickMs     int64    `json:"recording_tick_ms"`
	DetectionDelayMs    int64    `json:"detection_delay_ms"`
	VerificationDelayMs int64    `json:"verification_delay_ms"`
}

// Get returns the client-relevant configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	recognition := "simulated"
	if h.config.Embedding.URL != "" {
		recognition = "embedding"
	}

	s := h.config.Session
	respondJSON(w, http.StatusOK, ConfigResponse{
		Departments:         s.Departments,
		Recognition:         recognition,
		Storage:             database.Backend(),
		CountdownSeconds:    s.CountdownSeconds,
		RecordingMs:         s.RecordingDuration.Milliseconds(),
		RecordingTickMs:     s.RecordingTick.Milliseconds(),
		DetectionDelayMs:    s.DetectionDelay.Milliseconds(),
		VerificationDelayMs: s.VerificationDelay.Milliseconds(),
	})
}

// Departments returns the fixed department list of the registration form
func (h *ConfigHandler) Departments(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"departments": h.config.Session.Departments,
	})
}
