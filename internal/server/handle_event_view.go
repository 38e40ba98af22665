package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snapflowhq/snapflow/internal/experience"
)

type EventSlotView struct {
	Slot         string `json:"slot"`
	ExperienceID string `json:"experienceId"`
	Name         string `json:"name"`
	Profile      string `json:"profile"`
	Intro        string `json:"intro,omitempty"`
	StepCount    int    `json:"stepCount"`
}

type EventViewResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Slots []EventSlotView `json:"slots"`
}

// resolvedSlot is a slot whose assigned experience survived all the
// runtime checks: it exists, is published, its profile fits the slot, and
// it has at least one step.
type resolvedSlot struct {
	Slot       experience.Slot
	Experience experienceRecord
	Steps      []experience.Step
}

// resolveSlots walks the published slot wiring in journey order and drops
// anything misconfigured. A broken pregate or preshare never blocks the
// guest; it just falls out of the journey with a logged warning.
func resolveSlots(ctx context.Context, logger *slog.Logger, store Store, ev eventRecord) []resolvedSlot {
	if ev.Published == nil {
		return nil
	}
	var out []resolvedSlot
	for _, slot := range experience.JourneyOrder {
		id := ev.Published.Get(slot)
		if id == "" {
			continue
		}
		rec, err := store.GetExperience(ctx, id)
		if err != nil {
			logger.Warn("skipping slot: experience missing",
				"event", ev.ID, "slot", slot, "experience", id)
			continue
		}
		if rec.Published == nil {
			logger.Warn("skipping slot: experience never published",
				"event", ev.ID, "slot", slot, "experience", id)
			continue
		}
		if !experience.SlotAllows(slot, rec.Profile) {
			logger.Warn("skipping slot: profile not allowed",
				"event", ev.ID, "slot", slot, "experience", id, "profile", rec.Profile)
			continue
		}
		if len(rec.Published.Steps) == 0 {
			logger.Warn("skipping slot: experience has no steps",
				"event", ev.ID, "slot", slot, "experience", id)
			continue
		}
		out = append(out, resolvedSlot{Slot: slot, Experience: rec, Steps: rec.Published.Steps})
	}
	return out
}

// handleEventView returns the guest-facing view of a published event: the
// slots that survived resolution, in journey order. The main slot is the
// one slot the event cannot function without.
func handleEventView(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		id := chi.URLParam(r, "eventID")

		ev, err := store.GetEvent(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ev.Published == nil {
			writeError(w, http.StatusNotFound, "event not published")
			return
		}

		resolved := resolveSlots(r.Context(), logger, store, ev)
		hasMain := false
		slots := []EventSlotView{}
		for _, rs := range resolved {
			if rs.Slot == experience.SlotMain {
				hasMain = true
			}
			slots = append(slots, EventSlotView{
				Slot:         string(rs.Slot),
				ExperienceID: rs.Experience.ID,
				Name:         rs.Experience.Name,
				Profile:      string(rs.Experience.Profile),
				Intro:        rs.Experience.Published.Intro,
				StepCount:    len(rs.Steps),
			})
		}
		if !hasMain {
			writeError(w, http.StatusNotFound, "event has no runnable main experience")
			return
		}

		writeJSON(w, http.StatusOK, EventViewResponse{
			ID:    ev.ID,
			Name:  ev.Name,
			Slots: slots,
		})
	}
}
