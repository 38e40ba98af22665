package server

import (
	"net/http"
	"strings"
)

type GuestRegisterRequest struct {
	Name string `json:"name,omitempty"`
}

type GuestResponse struct {
	ID        string   `json:"id"`
	Token     string   `json:"token,omitempty"`
	Name      string   `json:"name,omitempty"`
	Completed []string `json:"completed"`
}

// handleGuestRegister creates an (often anonymous) guest record for the
// project and returns its bearer token.
func handleGuestRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuestRegisterRequest
		if r.ContentLength > 0 {
			if err := readJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		req.Name = strings.TrimSpace(req.Name)

		g, err := projectStore(r).CreateGuest(r.Context(), req.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, GuestResponse{
			ID:        g.ID,
			Token:     g.Token,
			Name:      g.Name,
			Completed: g.Completed,
		})
	}
}

// handleGuestMe returns the guest record, including which experiences the
// guest already completed (used by clients for pregate/preshare re-entry).
func handleGuestMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := guestFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing guest token")
			return
		}
		writeJSON(w, http.StatusOK, GuestResponse{
			ID:        g.ID,
			Name:      g.Name,
			Completed: g.Completed,
		})
	}
}
