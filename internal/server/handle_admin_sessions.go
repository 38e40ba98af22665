package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snapflowhq/snapflow/internal/experience"
)

// AdminSessionView is one row in the admin session listing. Status is
// derived: stalled sessions show as abandoned without ever being
// written back.
type AdminSessionView struct {
	ID          string                   `json:"id"`
	EventID     string                   `json:"eventId"`
	GuestID     string                   `json:"guestId"`
	Slot        experience.Slot          `json:"slot"`
	Mode        experience.Mode          `json:"mode"`
	Source      experience.Source        `json:"source"`
	Status      experience.SessionStatus `json:"status"`
	StepIndex   int                      `json:"stepIndex"`
	Responses   experience.ResponseSet   `json:"responses"`
	Outputs     experience.OutputSet     `json:"outputs,omitempty"`
	CreatedAt   string                   `json:"createdAt"`
	UpdatedAt   string                   `json:"updatedAt"`
	CompletedAt *string                  `json:"completedAt,omitempty"`
}

func handleAdminListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		experienceID := chi.URLParam(r, "experienceID")

		if _, err := store.GetExperience(r.Context(), experienceID); errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		recs, err := store.SessionsByExperience(r.Context(), experienceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		now := time.Now().UTC()
		out := make([]AdminSessionView, 0, len(recs))
		for _, rec := range recs {
			status := rec.Status
			if updated, err := time.Parse("2006-01-02T15:04:05.000Z", rec.UpdatedAt); err == nil {
				status = experience.DeriveStatus(rec.Status, updated, now, experience.AbandonCutoff)
			}
			out = append(out, AdminSessionView{
				ID:          rec.ID,
				EventID:     rec.EventID,
				GuestID:     rec.GuestID,
				Slot:        rec.Slot,
				Mode:        rec.Mode,
				Source:      rec.Source,
				Status:      status,
				StepIndex:   rec.StepIndex,
				Responses:   rec.Responses,
				Outputs:     rec.Outputs,
				CreatedAt:   rec.CreatedAt,
				UpdatedAt:   rec.UpdatedAt,
				CompletedAt: rec.CompletedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
