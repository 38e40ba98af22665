package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Snapflow API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for Snapflow guest experiences.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/{project}/guests
	postGuest, _ := r.NewOperationContext(http.MethodPost, "/api/{project}/guests")
	postGuest.SetSummary("Register guest")
	postGuest.SetDescription("Creates a guest for the project and returns its bearer token.")
	postGuest.AddReqStructure(GuestRegisterRequest{})
	postGuest.AddRespStructure(GuestResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postGuest)

	// GET /api/{project}/guests/me
	getGuestMe, _ := r.NewOperationContext(http.MethodGet, "/api/{project}/guests/me")
	getGuestMe.SetSummary("Current guest")
	getGuestMe.SetDescription("Returns the guest record, including completed experiences. Requires Bearer token.")
	getGuestMe.AddRespStructure(GuestResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGuestMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getGuestMe)

	// GET /api/{project}/events/{eventID}
	getEvent, _ := r.NewOperationContext(http.MethodGet, "/api/{project}/events/{eventID}")
	getEvent.SetSummary("Event view")
	getEvent.SetDescription("Returns the guest-facing view of a published event: runnable slots in journey order.")
	getEvent.AddRespStructure(EventViewResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getEvent)

	// POST /api/{project}/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/{project}/sessions")
	postSession.SetSummary("Start session")
	postSession.SetDescription("Starts a session for an experience in an event slot. Guests need a Bearer token; preview mode needs an admin cookie.")
	postSession.AddReqStructure(SessionCreateRequest{})
	postSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSession)

	// GET /api/{project}/sessions/{sessionID}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/{project}/sessions/{sessionID}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns session state including the current step. Resuming past the end closes the session.")
	getSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getSession)

	// POST /api/{project}/sessions/{sessionID}/advance
	postAdvance, _ := r.NewOperationContext(http.MethodPost, "/api/{project}/sessions/{sessionID}/advance")
	postAdvance.SetSummary("Advance session")
	postAdvance.SetDescription("Records the current step's response and moves the cursor forward by one.")
	postAdvance.AddReqStructure(AdvanceRequest{})
	postAdvance.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postAdvance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postAdvance)

	// GET /api/{project}/sessions/{sessionID}/events
	getSessionEvents, _ := r.NewOperationContext(http.MethodGet, "/api/{project}/sessions/{sessionID}/events")
	getSessionEvents.SetSummary("SSE session stream")
	getSessionEvents.SetDescription("Server-Sent Events stream of session progress. Pass the guest token as a query parameter.")
	getSessionEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getSessionEvents)

	// GET /api/{project}/sessions/{sessionID}/ws
	getSessionWS, _ := r.NewOperationContext(http.MethodGet, "/api/{project}/sessions/{sessionID}/ws")
	getSessionWS.SetSummary("WebSocket session stream")
	getSessionWS.SetDescription("Same event feed as the SSE endpoint over a websocket.")
	getSessionWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getSessionWS)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/projects
	listProjects, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects")
	listProjects.SetSummary("List projects")
	listProjects.SetDescription("Returns all projects. Requires admin_session cookie.")
	listProjects.AddRespStructure([]ProjectInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	listProjects.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listProjects)

	// POST /api/admin/projects
	createProject, _ := r.NewOperationContext(http.MethodPost, "/api/admin/projects")
	createProject.SetSummary("Create project")
	createProject.SetDescription("Creates a project and opens its database. Requires admin_session cookie.")
	createProject.AddReqStructure(AdminProjectRequest{})
	createProject.AddRespStructure(ProjectInfo{}, openapi.WithHTTPStatus(http.StatusCreated))
	createProject.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createProject.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createProject)

	// GET /api/admin/projects/{project}/experiences
	listExperiences, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects/{project}/experiences")
	listExperiences.SetSummary("List experiences")
	listExperiences.SetDescription("Returns all experiences with draft and published versions. Requires admin_session cookie.")
	listExperiences.AddRespStructure([]AdminExperienceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listExperiences.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listExperiences)

	// POST /api/admin/projects/{project}/experiences
	createExperience, _ := r.NewOperationContext(http.MethodPost, "/api/admin/projects/{project}/experiences")
	createExperience.SetSummary("Create experience")
	createExperience.SetDescription("Creates an experience with an initial draft. The profile is fixed at creation.")
	createExperience.AddReqStructure(AdminExperienceRequest{})
	createExperience.AddRespStructure(AdminExperienceResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createExperience.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createExperience)

	// GET /api/admin/projects/{project}/experiences/{experienceID}
	getExperience, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects/{project}/experiences/{experienceID}")
	getExperience.SetSummary("Get experience")
	getExperience.AddRespStructure(AdminExperienceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getExperience.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getExperience)

	// PUT /api/admin/projects/{project}/experiences/{experienceID}/draft
	updateDraft, _ := r.NewOperationContext(http.MethodPut, "/api/admin/projects/{project}/experiences/{experienceID}/draft")
	updateDraft.SetSummary("Replace draft")
	updateDraft.SetDescription("Replaces the draft snapshot and bumps the draft version.")
	updateDraft.AddReqStructure(AdminExperienceRequest{})
	updateDraft.AddRespStructure(AdminExperienceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateDraft)

	// POST /api/admin/projects/{project}/experiences/{experienceID}/publish
	publishExperience, _ := r.NewOperationContext(http.MethodPost, "/api/admin/projects/{project}/experiences/{experienceID}/publish")
	publishExperience.SetSummary("Publish experience")
	publishExperience.SetDescription("Copies the draft into the published snapshot and aligns versions.")
	publishExperience.AddRespStructure(AdminExperienceResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	publishExperience.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(publishExperience)

	// DELETE /api/admin/projects/{project}/experiences/{experienceID}
	deleteExperience, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/projects/{project}/experiences/{experienceID}")
	deleteExperience.SetSummary("Delete experience")
	deleteExperience.SetDescription("Deletes an experience. Blocked while events reference it or sessions exist.")
	deleteExperience.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteExperience.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteExperience.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteExperience)

	// GET /api/admin/projects/{project}/experiences/{experienceID}/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects/{project}/experiences/{experienceID}/sessions")
	listSessions.SetSummary("List sessions")
	listSessions.SetDescription("Returns sessions for an experience with derived statuses.")
	listSessions.AddRespStructure([]AdminSessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	listSessions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listSessions)

	// GET /api/admin/projects/{project}/events
	listEvents, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects/{project}/events")
	listEvents.SetSummary("List events")
	listEvents.AddRespStructure([]AdminEventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listEvents.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listEvents)

	// POST /api/admin/projects/{project}/events
	createEvent, _ := r.NewOperationContext(http.MethodPost, "/api/admin/projects/{project}/events")
	createEvent.SetSummary("Create event")
	createEvent.SetDescription("Creates an event with draft slot wiring, validated against each experience's profile.")
	createEvent.AddReqStructure(AdminEventRequest{})
	createEvent.AddRespStructure(AdminEventResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createEvent)

	// GET /api/admin/projects/{project}/events/{eventID}
	getAdminEvent, _ := r.NewOperationContext(http.MethodGet, "/api/admin/projects/{project}/events/{eventID}")
	getAdminEvent.SetSummary("Get event")
	getAdminEvent.AddRespStructure(AdminEventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getAdminEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getAdminEvent)

	// PUT /api/admin/projects/{project}/events/{eventID}/draft
	updateEventDraft, _ := r.NewOperationContext(http.MethodPut, "/api/admin/projects/{project}/events/{eventID}/draft")
	updateEventDraft.SetSummary("Replace event draft")
	updateEventDraft.SetDescription("Replaces the draft slot wiring and bumps the draft version.")
	updateEventDraft.AddReqStructure(AdminEventRequest{})
	updateEventDraft.AddRespStructure(AdminEventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	updateEventDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateEventDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateEventDraft)

	// POST /api/admin/projects/{project}/events/{eventID}/publish
	publishEvent, _ := r.NewOperationContext(http.MethodPost, "/api/admin/projects/{project}/events/{eventID}/publish")
	publishEvent.SetSummary("Publish event")
	publishEvent.AddRespStructure(AdminEventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	publishEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(publishEvent)

	// DELETE /api/admin/projects/{project}/events/{eventID}
	deleteEvent, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/projects/{project}/events/{eventID}")
	deleteEvent.SetSummary("Delete event")
	deleteEvent.SetDescription("Deletes an event. Blocked while sessions exist.")
	deleteEvent.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	deleteEvent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteEvent)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
