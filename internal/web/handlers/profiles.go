package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const errStorageUnavailable = "storage backend not configured"

// ProfilesHandler serves enrolled profiles
type ProfilesHandler struct{}

// NewProfilesHandler creates a new profiles handler
func NewProfilesHandler() *ProfilesHandler {
	return &ProfilesHandler{}
}

// ProfilesResponse is the profile listing
type ProfilesResponse struct {
	Profiles []database.StoredProfile `json:"profiles"`
	Count    int                      `json:"count"`
}

// List returns enrolled profiles, optionally filtered by ?q= on name,
// employee ID and department
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetProfileReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}

	profiles, err := reader.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listing profiles")
		respondError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		profiles = database.FilterProfiles(profiles, q)
	}
	if profiles == nil {
		profiles = []database.StoredProfile{}
	}

	respondJSON(w, http.StatusOK, ProfilesResponse{Profiles: profiles, Count: len(profiles)})
}

// Get returns one profile
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	reader, err := database.GetProfileReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}

	profile, err := reader.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Error().Err(err).Msg("loading profile")
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		respondError(w, http.StatusNotFound, "profile not found")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Delete removes a profile
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	writer, err := database.GetProfileWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	if err := writer.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Str("profile", sanitizeForLog(id)).Msg("deleting profile")
		respondError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
