package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snapflowhq/snapflow/internal/experience"
)

type SessionCreateRequest struct {
	EventID        string `json:"eventId"`
	ExperienceID   string `json:"experienceId"`
	Slot           string `json:"slot"`
	Mode           string `json:"mode,omitempty"`
	PregateSession string `json:"pregateSession,omitempty"`
}

// NextInfo tells the client where the guest goes after completion: the
// next runnable slot (empty when the journey is over) and the query
// string correlating this session to the next route.
type NextInfo struct {
	Slot         string `json:"slot,omitempty"`
	ExperienceID string `json:"experienceId,omitempty"`
	Query        string `json:"query"`
}

type SessionResponse struct {
	ID             string                 `json:"id"`
	EventID        string                 `json:"eventId,omitempty"`
	ExperienceID   string                 `json:"experienceId"`
	Slot           string                 `json:"slot"`
	Mode           string                 `json:"mode"`
	Source         string                 `json:"source"`
	Status         string                 `json:"status"`
	StepIndex      int                    `json:"stepIndex"`
	TotalSteps     int                    `json:"totalSteps"`
	CurrentStep    *experience.Step       `json:"currentStep"`
	Responses      experience.ResponseSet `json:"responses"`
	Outputs        experience.OutputSet   `json:"outputs"`
	PregateSession string                 `json:"pregateSession,omitempty"`
	CompletedAt    *string                `json:"completedAt,omitempty"`
	Next           *NextInfo              `json:"next,omitempty"`
}

type AdvanceRequest struct {
	// Response is the captured value for the current step. Absent means
	// no answer this advance; an explicit JSON null clears the answer.
	Response json.RawMessage `json:"response"`
	// Output is a produced media reference for the current step.
	Output string `json:"output,omitempty"`
}

func sessionResponse(rec sessionRecord, steps []experience.Step, next *NextInfo) SessionResponse {
	idx := experience.Clamp(rec.StepIndex, steps)
	return SessionResponse{
		ID:             rec.ID,
		EventID:        rec.EventID,
		ExperienceID:   rec.ExperienceID,
		Slot:           string(rec.Slot),
		Mode:           string(rec.Mode),
		Source:         string(rec.Source),
		Status:         string(rec.Status),
		StepIndex:      idx,
		TotalSteps:     len(steps),
		CurrentStep:    experience.CurrentStep(steps, idx),
		Responses:      rec.Responses,
		Outputs:        rec.Outputs,
		PregateSession: rec.PregateSessionID,
		CompletedAt:    rec.CompletedAt,
		Next:           next,
	}
}

// snapshotFor picks the config snapshot a session reads from.
func snapshotFor(rec experienceRecord, source experience.Source) *experience.Snapshot {
	if source == experience.SourceDraft {
		return &rec.Draft
	}
	return rec.Published
}

// computeNext finds the first runnable slot after the completed session's
// slot and builds the correlation query for the next route.
func computeNext(r *http.Request, logger *slog.Logger, store Store, rec sessionRecord) *NextInfo {
	next := &NextInfo{
		Query: experience.CorrelationParam(rec.Slot) + "=" + rec.ID,
	}
	if rec.EventID == "" {
		return next
	}
	ev, err := store.GetEvent(r.Context(), rec.EventID)
	if err != nil {
		return next
	}
	resolved := resolveSlots(r.Context(), logger, store, ev)
	past := false
	for _, slot := range experience.JourneyOrder {
		if slot == rec.Slot {
			past = true
			continue
		}
		if !past {
			continue
		}
		for _, rs := range resolved {
			if rs.Slot == slot {
				next.Slot = string(slot)
				next.ExperienceID = rs.Experience.ID
				return next
			}
		}
	}
	return next
}

func handleSessionCreate(logger *slog.Logger, admin AdminStore, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)

		var req SessionCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		slot := experience.Slot(req.Slot)
		if !experience.ValidSlot(slot) {
			writeError(w, http.StatusBadRequest, "unknown slot")
			return
		}
		if req.ExperienceID == "" {
			writeError(w, http.StatusBadRequest, "experienceId is required")
			return
		}

		mode := experience.ModeGuest
		if req.Mode == string(experience.ModePreview) {
			mode = experience.ModePreview
		}

		var guestID string
		source := experience.SourcePublished
		if mode == experience.ModePreview {
			// Preview runs against the draft and requires an admin.
			sess, err := adminFromRequest(r, admin)
			if err != nil {
				writeError(w, http.StatusForbidden, "preview requires admin authentication")
				return
			}
			source = experience.SourceDraft
			guestID = "admin:" + sess.AdminID
		} else {
			g, err := guestFromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing guest token")
				return
			}
			guestID = g.ID
		}

		rec, err := store.GetExperience(r.Context(), req.ExperienceID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !experience.SlotAllows(slot, rec.Profile) {
			writeError(w, http.StatusBadRequest, "experience profile is not allowed in this slot")
			return
		}

		snap := snapshotFor(rec, source)
		if snap == nil {
			writeError(w, http.StatusConflict, "experience is not published")
			return
		}

		// Guests can only start sessions through a published event that
		// actually wires this experience into the requested slot.
		if mode == experience.ModeGuest {
			if req.EventID == "" {
				writeError(w, http.StatusBadRequest, "eventId is required")
				return
			}
			ev, err := store.GetEvent(r.Context(), req.EventID)
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "event not found")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if ev.Published == nil || ev.Published.Get(slot) != req.ExperienceID {
				writeError(w, http.StatusConflict, "experience is not assigned to this slot")
				return
			}
		}

		sess := sessionRecord{
			EventID:          req.EventID,
			ExperienceID:     req.ExperienceID,
			GuestID:          guestID,
			Slot:             slot,
			Mode:             mode,
			Source:           source,
			Status:           experience.SessionCreated,
			StepIndex:        0,
			PregateSessionID: req.PregateSession,
		}

		// An experience with no steps completes the moment it starts;
		// no step is ever rendered.
		var next *NextInfo
		if experience.IsComplete(0, snap.Steps) {
			now := nowUTC()
			sess.Status = experience.SessionCompleted
			sess.CompletedAt = &now
		}

		created, err := store.CreateSession(r.Context(), sess)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}

		if created.Status == experience.SessionCompleted {
			if mode == experience.ModeGuest {
				store.MarkCompleted(r.Context(), guestID, created.ExperienceID)
			}
			next = computeNext(r, logger, store, created)
			broker.Publish(r.Context(), SessionEvent{
				Type:      "session_completed",
				SessionID: created.ID,
				StepIndex: created.StepIndex,
				Status:    string(created.Status),
				Next:      next.Query,
			})
		}

		writeJSON(w, http.StatusCreated, sessionResponse(created, snap.Steps, next))
	}
}

// sessionForRequest loads the session and checks the caller owns it:
// either the guest who created it, or any authenticated admin.
func sessionForRequest(r *http.Request, admin AdminStore, id string) (sessionRecord, int, string) {
	rec, err := projectStore(r).GetSession(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return rec, http.StatusNotFound, "session not found"
	}
	if err != nil {
		return rec, http.StatusInternalServerError, "internal error"
	}

	if g, err := guestFromRequest(r); err == nil && g.ID == rec.GuestID {
		return rec, 0, ""
	}
	if _, err := adminFromRequest(r, admin); err == nil {
		return rec, 0, ""
	}
	return rec, http.StatusUnauthorized, "not authorized for this session"
}

func handleSessionGet(logger *slog.Logger, admin AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		rec, status, msg := sessionForRequest(r, admin, chi.URLParam(r, "sessionID"))
		if status != 0 {
			writeError(w, status, msg)
			return
		}

		exp, err := store.GetExperience(r.Context(), rec.ExperienceID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		snap := snapshotFor(exp, rec.Source)
		if snap == nil {
			writeError(w, http.StatusConflict, "experience is no longer published")
			return
		}

		// A resumed index past the (possibly edited) step list means the
		// session is complete, not an error. Close it lazily.
		var next *NextInfo
		if rec.Status != experience.SessionCompleted && experience.IsComplete(rec.StepIndex, snap.Steps) {
			now := nowUTC()
			rec.StepIndex = experience.Clamp(rec.StepIndex, snap.Steps)
			rec.Status = experience.SessionCompleted
			rec.CompletedAt = &now
			if err := store.SaveProgress(r.Context(), rec.ID, rec.StepIndex, rec.Status, rec.Responses, rec.Outputs, &now); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if rec.Mode == experience.ModeGuest {
				store.MarkCompleted(r.Context(), rec.GuestID, rec.ExperienceID)
			}
		}
		if rec.Status == experience.SessionCompleted {
			next = computeNext(r, logger, store, rec)
		}

		writeJSON(w, http.StatusOK, sessionResponse(rec, snap.Steps, next))
	}
}

func handleSessionAdvance(logger *slog.Logger, admin AdminStore, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := projectStore(r)
		rec, status, msg := sessionForRequest(r, admin, chi.URLParam(r, "sessionID"))
		if status != 0 {
			writeError(w, status, msg)
			return
		}

		if rec.Status == experience.SessionCompleted {
			writeError(w, http.StatusConflict, "session is already completed")
			return
		}

		var req AdvanceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		exp, err := store.GetExperience(r.Context(), rec.ExperienceID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "experience not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		snap := snapshotFor(exp, rec.Source)
		if snap == nil {
			writeError(w, http.StatusConflict, "experience is no longer published")
			return
		}

		idx := experience.Clamp(rec.StepIndex, snap.Steps)
		cur := experience.CurrentStep(snap.Steps, idx)

		if cur != nil {
			if req.Response != nil {
				rec.Responses = rec.Responses.Set(cur.ID, req.Response)
			}
			if req.Output != "" {
				rec.Outputs = rec.Outputs.Set(cur.ID, req.Output)
			}
		}

		idx = experience.Advance(idx, snap.Steps)
		rec.StepIndex = idx
		rec.Status = experience.SessionActive

		var completedAt *string
		if experience.IsComplete(idx, snap.Steps) {
			now := nowUTC()
			rec.Status = experience.SessionCompleted
			rec.CompletedAt = &now
			completedAt = &now
		}

		if err := store.SaveProgress(r.Context(), rec.ID, rec.StepIndex, rec.Status, rec.Responses, rec.Outputs, completedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "could not save progress")
			return
		}

		var next *NextInfo
		if rec.Status == experience.SessionCompleted {
			if rec.Mode == experience.ModeGuest {
				store.MarkCompleted(r.Context(), rec.GuestID, rec.ExperienceID)
			}
			next = computeNext(r, logger, store, rec)
			broker.Publish(r.Context(), SessionEvent{
				Type:      "session_completed",
				SessionID: rec.ID,
				StepIndex: rec.StepIndex,
				Status:    string(rec.Status),
				Next:      next.Query,
			})
		} else {
			broker.Publish(r.Context(), SessionEvent{
				Type:      "progress",
				SessionID: rec.ID,
				StepIndex: rec.StepIndex,
				Status:    string(rec.Status),
			})
		}

		writeJSON(w, http.StatusOK, sessionResponse(rec, snap.Steps, next))
	}
}
