package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	profilesHandler := handlers.NewProfilesHandler()
	attendanceHandler := handlers.NewAttendanceHandler()
	configHandler := handlers.NewConfigHandler(s.config)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Registration screens
		r.Post("/registrations", s.registrations.Create)
		r.Get("/registrations/{id}", s.registrations.Get)
		r.Get("/registrations/{id}/events", s.registrations.Events)
		r.Post("/registrations/{id}/form", s.registrations.SubmitForm)
		r.Post("/registrations/{id}/capture/start", s.registrations.StartCapture)
		r.Post("/registrations/{id}/device/retry", s.registrations.RetryDevice)
		r.Post("/registrations/{id}/retry", s.registrations.Retry)
		r.Post("/registrations/{id}/reset", s.registrations.Reset)
		r.Delete("/registrations/{id}", s.registrations.Delete)

		// Scan screens
		r.Post("/scans", s.scans.Create)
		r.Get("/scans/{id}", s.scans.Get)
		r.Get("/scans/{id}/events", s.scans.Events)
		r.Post("/scans/{id}/scan", s.scans.Scan)
		r.Post("/scans/{id}/reset", s.scans.Reset)
		r.Post("/scans/{id}/device/retry", s.scans.RetryDevice)
		r.Delete("/scans/{id}", s.scans.Delete)

		// Profiles & attendance
		r.Get("/profiles", profilesHandler.List)
		r.Get("/profiles/{id}", profilesHandler.Get)
		r.Delete("/profiles/{id}", profilesHandler.Delete)
		r.Get("/attendance", attendanceHandler.List)

		// Config
		r.Get("/config", configHandler.Get)
		r.Get("/departments", configHandler.Departments)
	})
}
