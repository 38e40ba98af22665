package server

import (
	"net/http"
	"strings"
)

type AdminProjectRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func handleAdminListProjects(admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := admin.ListProjects(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, projects)
	}
}

func handleAdminCreateProject(admin AdminStore, projects *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminProjectRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
		req.Name = strings.TrimSpace(req.Name)
		if !slugPattern.MatchString(req.Slug) {
			writeError(w, http.StatusBadRequest, "slug must be lowercase letters, digits, and hyphens")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		exists, err := admin.ProjectExists(r.Context(), req.Slug)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if exists {
			writeError(w, http.StatusConflict, "project slug already in use")
			return
		}

		if err := admin.CreateProject(r.Context(), req.Slug, req.Name); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// Open the project database now so the first guest request does
		// not pay for migrations.
		if _, err := projects.Create(r.Context(), req.Slug); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, ProjectInfo{Slug: req.Slug, Name: req.Name})
	}
}
