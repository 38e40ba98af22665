package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snapflowhq/snapflow/internal/experience"
)

// AdminEventRequest is the body for creating an event or replacing its
// draft slot wiring.
type AdminEventRequest struct {
	Name  string             `json:"name"`
	Draft experience.SlotMap `json:"draft"`
}

type AdminEventResponse struct {
	ID                    string              `json:"id"`
	Name                  string              `json:"name"`
	DraftVersion          int64               `json:"draftVersion"`
	PublishedVersion      *int64              `json:"publishedVersion"`
	HasUnpublishedChanges bool                `json:"hasUnpublishedChanges"`
	Draft                 experience.SlotMap  `json:"draft"`
	Published             *experience.SlotMap `json:"published,omitempty"`
	CreatedAt             string              `json:"createdAt"`
	UpdatedAt             string              `json:"updatedAt"`
}

func adminEventResponse(rec eventRecord) AdminEventResponse {
	return AdminEventResponse{
		ID:                    rec.ID,
		Name:                  rec.Name,
		DraftVersion:          rec.DraftVersion,
		PublishedVersion:      rec.PublishedVersion,
		HasUnpublishedChanges: experience.HasUnpublishedChanges(rec.DraftVersion, rec.PublishedVersion),
		Draft:                 rec.Draft,
		Published:             rec.Published,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
	}
}

// validateSlotWiring rejects wiring that assigns an experience to a slot
// its profile is not compatible with, or that references a missing
// experience. Empty slots are always fine.
func validateSlotWiring(ctx context.Context, store Store, m experience.SlotMap) error {
	for _, slot := range experience.JourneyOrder {
		id := m.Get(slot)
		if id == "" {
			continue
		}
		rec, err := store.GetExperience(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("slot %s references unknown experience %s", slot, id)
		}
		if err != nil {
			return err
		}
		if !experience.SlotAllows(slot, rec.Profile) {
			return fmt.Errorf("slot %s does not accept %s experiences", slot, rec.Profile)
		}
	}
	return nil
}

func handleAdminListEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := projectStore(r).ListEvents(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]AdminEventResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, adminEventResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminEventRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		store := projectStore(r)
		if err := validateSlotWiring(r.Context(), store, req.Draft); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		rec, err := store.CreateEvent(r.Context(), req.Name, req.Draft)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, adminEventResponse(rec))
	}
}

func handleAdminGetEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := projectStore(r).GetEvent(r.Context(), chi.URLParam(r, "eventID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminEventResponse(rec))
	}
}

func handleAdminUpdateEventDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminEventRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		store := projectStore(r)
		if err := validateSlotWiring(r.Context(), store, req.Draft); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		rec, err := store.UpdateEventDraft(r.Context(), chi.URLParam(r, "eventID"), req.Name, req.Draft)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminEventResponse(rec))
	}
}

func handleAdminPublishEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := projectStore(r).PublishEvent(r.Context(), chi.URLParam(r, "eventID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminEventResponse(rec))
	}
}

func handleAdminDeleteEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		id := chi.URLParam(r, "eventID")

		if _, err := store.GetEvent(r.Context(), id); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		hasSessions, err := store.EventHasSessions(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if hasSessions {
			writeError(w, http.StatusConflict, "event has recorded sessions")
			return
		}

		if err := store.DeleteEvent(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
