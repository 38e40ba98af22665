package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, admin AdminStore, projects *Registry, adminDB *sql.DB, broker *Broker, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Snapflow API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, adminDB, broker.rdb))

	// Guest routes — {project} resolved by projectMiddleware.
	r.Route("/api/{project}", func(r chi.Router) {
		r.Use(projectMiddleware(projects, admin))
		r.Post("/guests", handleGuestRegister())
		r.Get("/guests/me", handleGuestMe())
		r.Get("/events/{eventID}", handleEventView(logger))
		r.Post("/sessions", handleSessionCreate(logger, admin, broker))
		r.Get("/sessions/{sessionID}", handleSessionGet(logger, admin))
		r.Post("/sessions/{sessionID}/advance", handleSessionAdvance(logger, admin, broker))
		r.Get("/sessions/{sessionID}/events", handleSessionEvents(broker))
		r.Get("/sessions/{sessionID}/ws", handleSessionWS(logger, broker))
	})

	// Admin auth and project management — shared DB.
	r.Post("/api/admin/login", handleAdminLogin(admin))
	r.Post("/api/admin/logout", handleAdminLogout(admin))
	r.Get("/api/admin/me", handleAdminMe(admin))
	r.Route("/api/admin/projects", func(r chi.Router) {
		r.Use(adminAuthMiddleware(admin))
		r.Get("/", handleAdminListProjects(admin))
		r.Post("/", handleAdminCreateProject(admin, projects))
	})

	// Admin content — per-project, requires admin auth.
	r.Route("/api/admin/projects/{project}", func(r chi.Router) {
		r.Use(adminAuthMiddleware(admin))
		r.Use(projectMiddleware(projects, admin))

		r.Get("/experiences", handleAdminListExperiences())
		r.Post("/experiences", handleAdminCreateExperience())
		r.Get("/experiences/{experienceID}", handleAdminGetExperience())
		r.Put("/experiences/{experienceID}/draft", handleAdminUpdateExperienceDraft())
		r.Post("/experiences/{experienceID}/publish", handleAdminPublishExperience())
		r.Delete("/experiences/{experienceID}", handleAdminDeleteExperience())
		r.Get("/experiences/{experienceID}/sessions", handleAdminListSessions())

		r.Get("/events", handleAdminListEvents())
		r.Post("/events", handleAdminCreateEvent())
		r.Get("/events/{eventID}", handleAdminGetEvent())
		r.Put("/events/{eventID}/draft", handleAdminUpdateEventDraft())
		r.Post("/events/{eventID}/publish", handleAdminPublishEvent())
		r.Delete("/events/{eventID}", handleAdminDeleteEvent())
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
