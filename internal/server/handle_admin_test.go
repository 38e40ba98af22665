package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snapflowhq/snapflow/internal/experience"
)

func (env *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(AdminLoginRequest{Email: "admin@snapflow.dev", Password: "changeme"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookieName {
			return c
		}
	}
	t.Fatal("login: expected admin_session cookie")
	return nil
}

func (env *testEnv) adminDo(t *testing.T, cookie *http.Cookie, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestAdminLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// Wrong password.
	body, _ := json.Marshal(AdminLoginRequest{Email: "admin@snapflow.dev", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}

	cookie := env.login(t)

	w = env.adminDo(t, cookie, http.MethodGet, "/api/admin/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	var me AdminMeResponse
	json.NewDecoder(w.Body).Decode(&me)
	if me.Email != "admin@snapflow.dev" {
		t.Errorf("me: expected seeded admin, got %q", me.Email)
	}

	// Logout invalidates the session server-side.
	env.adminDo(t, cookie, http.MethodPost, "/api/admin/logout", nil)
	w = env.adminDo(t, cookie, http.MethodGet, "/api/admin/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestAdminAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.adminDo(t, nil, http.MethodGet, "/api/admin/projects/demo/experiences", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAdminProjects(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	w := env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects",
		AdminProjectRequest{Slug: "Bad Slug!", Name: "Nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad slug: expected 400, got %d", w.Code)
	}

	w = env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects",
		AdminProjectRequest{Slug: "gala", Name: "Gala"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects",
		AdminProjectRequest{Slug: "gala", Name: "Gala Again"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", w.Code)
	}

	w = env.adminDo(t, cookie, http.MethodGet, "/api/admin/projects", nil)
	var projects []ProjectInfo
	json.NewDecoder(w.Body).Decode(&projects)
	if len(projects) != 2 {
		t.Errorf("expected 2 projects, got %d", len(projects))
	}
}

func TestExperienceVersionGate(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	base := "/api/admin/projects/demo/experiences"

	w := env.adminDo(t, cookie, http.MethodPost, base, AdminExperienceRequest{
		Name:    "Portrait",
		Profile: experience.ProfileFreeform,
		Draft: experience.Snapshot{Steps: []experience.Step{
			{ID: "pose", Type: experience.StepCapture, Config: experience.CaptureConfig{}},
		}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var exp AdminExperienceResponse
	json.NewDecoder(w.Body).Decode(&exp)

	if exp.DraftVersion != 1 || exp.PublishedVersion != nil {
		t.Errorf("fresh: expected draft v1 unpublished, got v%d pub=%v", exp.DraftVersion, exp.PublishedVersion)
	}
	if !exp.HasUnpublishedChanges {
		t.Error("fresh: expected unpublished changes")
	}

	// Editing the draft bumps the draft version only.
	w = env.adminDo(t, cookie, http.MethodPut, base+"/"+exp.ID+"/draft", AdminExperienceRequest{
		Name: "Portrait",
		Draft: experience.Snapshot{Steps: []experience.Step{
			{ID: "pose", Type: experience.StepCapture, Config: experience.CaptureConfig{Countdown: 3}},
		}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update draft: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&exp)
	if exp.DraftVersion != 2 {
		t.Errorf("after edit: expected draft v2, got v%d", exp.DraftVersion)
	}

	// Publishing aligns the published version with the draft version.
	w = env.adminDo(t, cookie, http.MethodPost, base+"/"+exp.ID+"/publish", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&exp)
	if exp.PublishedVersion == nil || *exp.PublishedVersion != 2 {
		t.Fatalf("after publish: expected published v2, got %v", exp.PublishedVersion)
	}
	if exp.HasUnpublishedChanges {
		t.Error("after publish: expected no unpublished changes")
	}

	// Another edit reopens the gate; republish closes it again.
	w = env.adminDo(t, cookie, http.MethodPut, base+"/"+exp.ID+"/draft", AdminExperienceRequest{
		Name: "Portrait",
		Draft: experience.Snapshot{Steps: []experience.Step{
			{ID: "pose", Type: experience.StepCapture, Config: experience.CaptureConfig{Countdown: 5}},
		}},
	})
	json.NewDecoder(w.Body).Decode(&exp)
	if !exp.HasUnpublishedChanges {
		t.Error("after re-edit: expected unpublished changes")
	}

	w = env.adminDo(t, cookie, http.MethodPost, base+"/"+exp.ID+"/publish", nil)
	json.NewDecoder(w.Body).Decode(&exp)
	if exp.HasUnpublishedChanges || *exp.PublishedVersion != 3 {
		t.Errorf("after republish: expected aligned v3, got pub=%v changed=%v",
			exp.PublishedVersion, exp.HasUnpublishedChanges)
	}
}

func TestExperienceValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	base := "/api/admin/projects/demo/experiences"

	w := env.adminDo(t, cookie, http.MethodPost, base, AdminExperienceRequest{
		Name:    "Bad Profile",
		Profile: "mystery",
		Draft:   experience.Snapshot{},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown profile: expected 400, got %d", w.Code)
	}

	// Transform without a preceding capture is rejected.
	w = env.adminDo(t, cookie, http.MethodPost, base, AdminExperienceRequest{
		Name:    "Orphan Transform",
		Profile: experience.ProfileFreeform,
		Draft: experience.Snapshot{Steps: []experience.Step{
			{ID: "fx", Type: experience.StepTransform, Config: experience.TransformConfig{
				SourceStep: "missing", Style: "neon",
			}},
		}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("orphan transform: expected 400, got %d", w.Code)
	}
}

func TestEventSlotWiringValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	// Informational experiences are not allowed in the main slot.
	w := env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects/demo/events", AdminEventRequest{
		Name:  "Bad Wiring",
		Draft: experience.SlotMap{Main: env.preshare.ID},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("informational in main: expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// A survey works in any slot.
	w = env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects/demo/events", AdminEventRequest{
		Name:  "Survey Everywhere",
		Draft: experience.SlotMap{Main: env.pregate.ID, Preshare: env.pregate.ID},
	})
	if w.Code != http.StatusCreated {
		t.Errorf("survey wiring: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	// Unknown experience ids are rejected.
	w = env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects/demo/events", AdminEventRequest{
		Name:  "Ghost Wiring",
		Draft: experience.SlotMap{Main: "does-not-exist"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown experience: expected 400, got %d", w.Code)
	}
}

func TestDeleteGuards(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	// The main experience is wired into the seeded event.
	w := env.adminDo(t, cookie, http.MethodDelete,
		"/api/admin/projects/demo/experiences/"+env.main.ID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("referenced experience: expected 409, got %d", w.Code)
	}

	// Events with sessions cannot be deleted.
	guest := env.registerGuest(t)
	env.startSession(t, guest.Token, SessionCreateRequest{
		EventID:      env.event.ID,
		ExperienceID: env.main.ID,
		Slot:         "main",
	})
	w = env.adminDo(t, cookie, http.MethodDelete,
		"/api/admin/projects/demo/events/"+env.event.ID, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("event with sessions: expected 409, got %d", w.Code)
	}

	// An unreferenced experience deletes cleanly.
	w = env.adminDo(t, cookie, http.MethodPost, "/api/admin/projects/demo/experiences",
		AdminExperienceRequest{
			Name:    "Scratch",
			Profile: experience.ProfileSurvey,
			Draft:   experience.Snapshot{},
		})
	var scratch AdminExperienceResponse
	json.NewDecoder(w.Body).Decode(&scratch)

	w = env.adminDo(t, cookie, http.MethodDelete,
		"/api/admin/projects/demo/experiences/"+scratch.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("scratch experience: expected 204, got %d", w.Code)
	}
}

func TestPreviewSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	ctx := context.Background()

	// Put an unpublished edit in the main draft; preview must see it.
	draft := experience.Snapshot{Steps: []experience.Step{
		{ID: "draft-only", Type: experience.StepInput, Config: experience.InputConfig{Label: "Draft question"}},
	}}
	if _, err := env.store.UpdateExperienceDraft(ctx, env.main.ID, "Color Story", draft); err != nil {
		t.Fatalf("update draft: %v", err)
	}

	body, _ := json.Marshal(SessionCreateRequest{
		ExperienceID: env.main.ID,
		Slot:         "main",
		Mode:         "preview",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/demo/sessions", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("preview: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sess SessionResponse
	json.NewDecoder(w.Body).Decode(&sess)
	if sess.Source != "draft" || sess.Mode != "preview" {
		t.Errorf("expected draft/preview, got %s/%s", sess.Source, sess.Mode)
	}
	if sess.CurrentStep == nil || sess.CurrentStep.ID != "draft-only" {
		t.Errorf("expected draft step, got %+v", sess.CurrentStep)
	}

	// Without an admin session, preview is forbidden.
	req = httptest.NewRequest(http.MethodPost, "/api/demo/sessions", bytes.NewReader(body))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("preview without admin: expected 403, got %d", w.Code)
	}
}

func TestAdminSessionListing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	ctx := context.Background()

	guest := env.registerGuest(t)
	fresh := env.startSession(t, guest.Token, SessionCreateRequest{
		EventID:      env.event.ID,
		ExperienceID: env.main.ID,
		Slot:         "main",
	})
	stale := env.startSession(t, guest.Token, SessionCreateRequest{
		EventID:      env.event.ID,
		ExperienceID: env.main.ID,
		Slot:         "main",
	})

	// Age the second session past the abandonment cutoff.
	if _, err := env.store.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = '2000-01-01T00:00:00.000Z' WHERE id = ?`, stale.ID); err != nil {
		t.Fatalf("age session: %v", err)
	}

	w := env.adminDo(t, cookie, http.MethodGet,
		"/api/admin/projects/demo/experiences/"+env.main.ID+"/sessions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var views []AdminSessionView
	json.NewDecoder(w.Body).Decode(&views)
	if len(views) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(views))
	}

	statuses := map[string]experience.SessionStatus{}
	for _, v := range views {
		statuses[v.ID] = v.Status
	}
	if statuses[fresh.ID] != experience.SessionCreated {
		t.Errorf("fresh session: expected created, got %q", statuses[fresh.ID])
	}
	if statuses[stale.ID] != experience.SessionAbandoned {
		t.Errorf("stale session: expected abandoned, got %q", statuses[stale.ID])
	}
}

func TestPublishedSnapshotIsolation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	guest := env.registerGuest(t)

	sess := env.startSession(t, guest.Token, SessionCreateRequest{
		EventID:      env.event.ID,
		ExperienceID: env.main.ID,
		Slot:         "main",
	})

	// Editing the draft must not change what a running guest session sees.
	env.adminDo(t, cookie, http.MethodPut,
		"/api/admin/projects/demo/experiences/"+env.main.ID+"/draft", AdminExperienceRequest{
			Name: "Color Story",
			Draft: experience.Snapshot{Steps: []experience.Step{
				{ID: "new-only", Type: experience.StepInput, Config: experience.InputConfig{Label: "New"}},
			}},
		})

	req := httptest.NewRequest(http.MethodGet, "/api/demo/sessions/"+sess.ID, nil)
	req.Header.Set("Authorization", "Bearer "+guest.Token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp SessionResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.TotalSteps != 3 {
		t.Errorf("expected published 3 steps, got %d", resp.TotalSteps)
	}
	if resp.CurrentStep == nil || resp.CurrentStep.ID != "color" {
		t.Errorf("expected published step 'color', got %+v", resp.CurrentStep)
	}
}
