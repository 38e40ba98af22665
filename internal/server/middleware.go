package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const (
	ctxKeyStore ctxKey = iota
	ctxKeyAdmin
)

func projectMiddleware(projects *Registry, admin AdminStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := chi.URLParam(r, "project")
			if slug == "" {
				writeError(w, http.StatusNotFound, "project not found")
				return
			}

			// Only registered projects get a database opened for them.
			exists, err := admin.ProjectExists(r.Context(), slug)
			if err != nil || !exists {
				writeError(w, http.StatusNotFound, "project not found")
				return
			}

			store, err := projects.Get(r.Context(), slug)
			if err != nil {
				writeError(w, http.StatusNotFound, "project not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyStore, Store(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminAuthMiddleware(admin AdminStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(adminCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			sess, err := admin.AdminFromSession(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func projectStore(r *http.Request) Store {
	return r.Context().Value(ctxKeyStore).(Store)
}
