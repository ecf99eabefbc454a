package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/registration"
)

// RegistrationsHandler hosts registration screens
type RegistrationsHandler struct {
	config  *config.Config
	deps    Deps
	handoff registration.Handoff
	screens *ScreenManager[*registration.Controller]
}

// NewRegistrationsHandler creates a new registrations handler
func NewRegistrationsHandler(cfg *config.Config, deps Deps, handoff registration.Handoff) *RegistrationsHandler {
	return &RegistrationsHandler{
		config:  cfg,
		deps:    deps,
		handoff: handoff,
		screens: newScreenManager[*registration.Controller](cfg, deps),
	}
}

// RegistrationResponse is returned when a registration screen is opened
type RegistrationResponse struct {
	ID    string             `json:"id"`
	State registration.State `json:"state"`
}

// Create opens a registration screen
func (h *RegistrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctrl := registration.New(h.deps.Devices, h.deps.Client, registration.Options{
		Departments: h.config.Session.Departments,
		Timing:      registration.TimingFromConfig(&h.config.Session),
		Constraints: DeviceConstraints(h.config),
		Clock:       h.deps.Clock,
		Handoff:     h.handoff,
	})
	id := h.screens.Create(ctrl)

	respondJSON(w, http.StatusCreated, RegistrationResponse{ID: id, State: ctrl.State()})
}

func (h *RegistrationsHandler) lookup(w http.ResponseWriter, r *http.Request) (*registration.Controller, bool) {
	ctrl, ok := h.screens.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return nil, false
	}
	return ctrl, true
}

// act runs an intent on the screen and responds with the resulting state
func (h *RegistrationsHandler) act(w http.ResponseWriter, r *http.Request, intent func(*registration.Controller) error) {
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
func (h *RegistrationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ctrl.State())
}

// Events streams screen states via SSE
func (h *RegistrationsHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctrl, detach, ok := h.screens.Attach(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return
	}
	defer detach()
	updates, cancel := ctrl.Subscribe()
	streamStates(w, r, ctrl.State(), updates, cancel)
}

// SubmitForm validates the form and starts capturing
func (h *RegistrationsHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	var form biometric.FormData
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	h.act(w, r, func(c *registration.Controller) error { return c.Submit(form) })
}

// StartCapture is the user gesture that starts the countdown
func (h *RegistrationsHandler) StartCapture(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*registration.Controller).StartRecording)
}

// RetryDevice retries device acquisition after an error
func (h *RegistrationsHandler) RetryDevice(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*registration.Controller).RetryDevice)
}

// Retry starts over after a failure, keeping the form
func (h *RegistrationsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*registration.Controller).Retry)
}

// Reset abandons the current session
func (h *RegistrationsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*registration.Controller).Reset)
}

// Delete closes the screen
func (h *RegistrationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.screens.Remove(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, errScreenNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseAll closes every open registration screen
func (h *RegistrationsHandler) CloseAll() {
	h.screens.CloseAll()
}
