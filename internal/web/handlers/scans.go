package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// ScansHandler hosts attendance scan screens
type ScansHandler struct {
	config   *config.Config
	deps     Deps
	recorder recognition.AttendanceRecorder
	screens  *ScreenManager[*recognition.Controller]
}

// NewScansHandler creates a new scans handler
func NewScansHandler(cfg *config.Config, deps Deps, recorder recognition.AttendanceRecorder) *ScansHandler {
	return &ScansHandler{
		config:   cfg,
		deps:     deps,
		recorder: recorder,
		screens:  newScreenManager[*recognition.Controller](cfg, deps),
	}
}

// ScanResponse is returned when a scan screen is opened
type ScanResponse struct {
	ID    string            `json:"id"`
	State recognition.State `json:"state"`
}

// Create opens a scan screen and starts acquiring the device
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctrl := recognition.New(h.deps.Devices, h.deps.Client, recognition.Options{
		Timing:      recognition.TimingFromConfig(&h.config.Session),
		Constraints: ScanConstraints(h.config),
		Clock:       h.deps.Clock,
		Recorder:    h.recorder,
	})
	id := h.screens.Create(ctrl)

	respondJSON(w, http.StatusCreated, ScanResponse{ID: id, State: ctrl.State()})
}

func (h *ScansHandler) lookup(w http.ResponseWriter, r *http.Request) (*recognition.Controller, bool) {
	ctrl, ok := h.screens.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return nil, false
	}
	return ctrl, true
}

func (h *ScansHandler) act(w http.ResponseWriter, r *http.Request, intent func(*recognition.Controller) error) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := intent(ctrl); err != nil {
		respondControllerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ctrl.State())
}

// Get returns the current screen state
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ctrl.State())
}

// Events streams screen states via SSE
func (h *ScansHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctrl, detach, ok := h.screens.Attach(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return
	}
	defer detach()
	updates, cancel := ctrl.Subscribe()
	streamStates(w, r, ctrl.State(), updates, cancel)
}

// Scan starts a scan
func (h *ScansHandler) Scan(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*recognition.Controller).Scan)
}

// Reset returns the screen to idle
func (h *ScansHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*recognition.Controller).Reset)
}

// RetryDevice retries device acquisition after an error
func (h *ScansHandler) RetryDevice(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*recognition.Controller).RetryDevice)
}

// Delete closes the screen and releases the device
func (h *ScansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.screens.Remove(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseAll closes every open scan screen
func (h *ScansHandler) CloseAll() {
	h.screens.CloseAll()
}
