package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snapflowhq/snapflow/internal/experience"
)

// AdminExperienceRequest is the body for creating an experience or
// replacing its draft.
type AdminExperienceRequest struct {
	Name    string              `json:"name"`
	Profile experience.Profile  `json:"profile,omitempty"`
	Draft   experience.Snapshot `json:"draft"`
}

// AdminExperienceResponse is the admin view of an experience, including
// the version gate state guests never see.
type AdminExperienceResponse struct {
	ID                    string               `json:"id"`
	Name                  string               `json:"name"`
	Profile               experience.Profile   `json:"profile"`
	DraftVersion          int64                `json:"draftVersion"`
	PublishedVersion      *int64               `json:"publishedVersion"`
	HasUnpublishedChanges bool                 `json:"hasUnpublishedChanges"`
	Draft                 experience.Snapshot  `json:"draft"`
	Published             *experience.Snapshot `json:"published,omitempty"`
	CreatedAt             string               `json:"createdAt"`
	UpdatedAt             string               `json:"updatedAt"`
}

func adminExperienceResponse(rec experienceRecord) AdminExperienceResponse {
	return AdminExperienceResponse{
		ID:                    rec.ID,
		Name:                  rec.Name,
		Profile:               rec.Profile,
		DraftVersion:          rec.DraftVersion,
		PublishedVersion:      rec.PublishedVersion,
		HasUnpublishedChanges: experience.HasUnpublishedChanges(rec.DraftVersion, rec.PublishedVersion),
		Draft:                 rec.Draft,
		Published:             rec.Published,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
	}
}

func validateExperienceRequest(req *AdminExperienceRequest) (int, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return http.StatusBadRequest, "name is required"
	}
	if err := experience.ValidateSteps(req.Draft.Steps); err != nil {
		return http.StatusBadRequest, err.Error()
	}
	return 0, ""
}

func handleAdminListExperiences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := projectStore(r).ListExperiences(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]AdminExperienceResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, adminExperienceResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateExperience() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminExperienceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !experience.ValidProfile(req.Profile) {
			writeError(w, http.StatusBadRequest, "unknown profile")
			return
		}
		if code, msg := validateExperienceRequest(&req); code != 0 {
			writeError(w, code, msg)
			return
		}

		rec, err := projectStore(r).CreateExperience(r.Context(), req.Name, req.Profile, req.Draft)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, adminExperienceResponse(rec))
	}
}

func handleAdminGetExperience() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := projectStore(r).GetExperience(r.Context(), chi.URLParam(r, "experienceID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminExperienceResponse(rec))
	}
}

// handleAdminUpdateExperienceDraft replaces the draft snapshot wholesale
// and bumps the draft version. The profile is fixed at creation.
func handleAdminUpdateExperienceDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminExperienceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if code, msg := validateExperienceRequest(&req); code != 0 {
			writeError(w, code, msg)
			return
		}

		rec, err := projectStore(r).UpdateExperienceDraft(r.Context(), chi.URLParam(r, "experienceID"), req.Name, req.Draft)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminExperienceResponse(rec))
	}
}

// handleAdminPublishExperience copies the draft snapshot into the
// published slot and aligns the published version with the draft
// version. Publishing an already-published draft is a harmless no-op.
func handleAdminPublishExperience() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := projectStore(r).PublishExperience(r.Context(), chi.URLParam(r, "experienceID"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, adminExperienceResponse(rec))
	}
}

func handleAdminDeleteExperience() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		id := chi.URLParam(r, "experienceID")

		if _, err := store.GetExperience(r.Context(), id); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		referenced, err := store.EventsReferencing(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if referenced {
			writeError(w, http.StatusConflict, "experience is assigned to an event")
			return
		}

		hasSessions, err := store.ExperienceHasSessions(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if hasSessions {
			writeError(w, http.StatusConflict, "experience has recorded sessions")
			return
		}

		if err := store.DeleteExperience(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
