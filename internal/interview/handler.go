// HTTP handlers for the interview service.
//
// All routes expect an x-user-id header forwarded by the Gateway; it is
// recorded as the acting user on lifecycle mutations.
//
// Routes:
//
//	POST /interviews                       → schedule at a caller-chosen time
//	POST /interviews/auto-schedule         → allocate the next free slot for a stage
//	GET  /interviews?jobId=|applicationId= → list interviews
//	GET  /interviews/{id}                  → fetch one interview
//	POST /interviews/{id}/reschedule       → move to a new time
//	POST /interviews/{id}/cancel           → cancel with a reason
//	POST /interviews/{id}/no-show          → record a candidate no-show
//	POST /interviews/{id}/status           → start / complete
//	POST /interviews/{id}/feedback         → submit interviewer feedback
//	GET  /interviews/{id}/progression      → feedback progression status
package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler adapts the Service to HTTP. It owns no business logic: request
// decoding, actor extraction and error-to-status mapping only.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all interview-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/interviews", h.handleInterviews)
	mux.HandleFunc("/interviews/", h.handleInterviewAction)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleInterviews handles GET /interviews and POST /interviews.
func (h *Handler) handleInterviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listInterviews(w, r)
	case http.MethodPost:
		h.createManual(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleInterviewAction handles /interviews/{id} and /interviews/{id}/{action},
// plus the id-less POST /interviews/auto-schedule.
func (h *Handler) handleInterviewAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && parts[1] == "auto-schedule":
		h.autoSchedule(w, r)
	case len(parts) == 2:
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getInterview(w, r, parts[1])
	case len(parts) == 3:
		h.dispatchAction(w, r, parts[1], parts[2])
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

func (h *Handler) dispatchAction(w http.ResponseWriter, r *http.Request, id, action string) {
	if action == "progression" {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.progression(w, r, id)
		return
	}
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "reschedule":
		h.reschedule(w, r, id)
	case "cancel":
		h.cancel(w, r, id)
	case "no-show":
		h.markNoShow(w, r, id)
	case "status":
		h.updateStatus(w, r, id)
	case "feedback":
		h.recordFeedback(w, r, id)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) autoSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		ApplicationID string `json:"applicationId"`
		StageID       string `json:"stageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	iv, err := h.svc.AutoSchedule(r.Context(), body.ApplicationID, body.StageID, actor)
	if err != nil {
		h.writeError(w, "autoSchedule", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) createManual(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		ApplicationID   string   `json:"applicationId"`
		StageID         string   `json:"stageId"`
		ScheduledDate   string   `json:"scheduledDate"`
		DurationMinutes int      `json:"durationMinutes"`
		Type            string   `json:"type"`
		InterviewerIDs  []string `json:"interviewerIds"`
		Notes           string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	when, err := time.Parse(time.RFC3339, body.ScheduledDate)
	if err != nil {
		jsonError(w, "scheduledDate must be RFC 3339", http.StatusBadRequest)
		return
	}
	var format Format
	if body.Type != "" {
		if format, err = ParseFormat(body.Type); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	iv, err := h.svc.CreateManual(r.Context(), ManualParams{
		ApplicationID:   body.ApplicationID,
		StageID:         body.StageID,
		ScheduledDate:   when,
		DurationMinutes: body.DurationMinutes,
		Format:          format,
		InterviewerIDs:  body.InterviewerIDs,
		CreatedBy:       actor,
		Notes:           body.Notes,
	})
	if err != nil {
		h.writeError(w, "createManual", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) getInterview(w http.ResponseWriter, r *http.Request, id string) {
	iv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) listInterviews(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	applicationID := r.URL.Query().Get("applicationId")

	var (
		ivs []Interview
		err error
	)
	switch {
	case jobID != "":
		ivs, err = h.svc.ListByJob(r.Context(), jobID)
	case applicationID != "":
		ivs, err = h.svc.ListByApplication(r.Context(), applicationID)
	default:
		jsonError(w, "jobId or applicationId query parameter is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	jsonOK(w, ivs)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		ScheduledDate string `json:"scheduledDate"`
		Reason        string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	when, err := time.Parse(time.RFC3339, body.ScheduledDate)
	if err != nil {
		jsonError(w, "scheduledDate must be RFC 3339", http.StatusBadRequest)
		return
	}

	iv, err := h.svc.Reschedule(r.Context(), id, when, actor, body.Reason)
	if err != nil {
		h.writeError(w, "reschedule", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Reason == "" {
		jsonError(w, "body must contain reason", http.StatusBadRequest)
		return
	}

	iv, err := h.svc.Cancel(r.Context(), id, actor, body.Reason)
	if err != nil {
		h.writeError(w, "cancel", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) markNoShow(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	iv, err := h.svc.MarkNoShow(r.Context(), id, actor, body.Reason)
	if err != nil {
		h.writeError(w, "markNoShow", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		Status         string   `json:"status"`
		OverallScore   *float64 `json:"overallScore"`
		Recommendation string   `json:"recommendation"`
		Notes          string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		jsonError(w, "body must contain status", http.StatusBadRequest)
		return
	}
	status, err := ParseStatus(body.Status)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	iv, err := h.svc.UpdateStatus(r.Context(), id, status, actor, &Outcome{
		OverallScore:   body.OverallScore,
		Recommendation: body.Recommendation,
		Notes:          body.Notes,
	})
	if err != nil {
		h.writeError(w, "updateStatus", err)
		return
	}
	jsonOK(w, iv)
}

func (h *Handler) recordFeedback(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body struct {
		InterviewerID  string         `json:"interviewerId"`
		Rating         int            `json:"rating"`
		CriteriaScores map[string]int `json:"criteriaScores"`
		Strengths      string         `json:"strengths"`
		Weaknesses     string         `json:"weaknesses"`
		Comments       string         `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.InterviewerID == "" {
		body.InterviewerID = actor
	}

	fb, err := h.svc.RecordFeedback(r.Context(), id, FeedbackInput{
		InterviewerID:  body.InterviewerID,
		Rating:         body.Rating,
		CriteriaScores: body.CriteriaScores,
		Strengths:      body.Strengths,
		Weaknesses:     body.Weaknesses,
		Comments:       body.Comments,
	})
	if err != nil {
		h.writeError(w, "recordFeedback", err)
		return
	}
	jsonOK(w, fb)
}

func (h *Handler) progression(w http.ResponseWriter, r *http.Request, id string) {
	st, err := h.svc.Progression(r.Context(), id)
	if err != nil {
		h.writeError(w, "progression", err)
		return
	}
	jsonOK(w, st)
}

// ─── Error mapping & helpers ─────────────────────────────────────────────────

// writeError maps engine error types onto HTTP statuses. Unclassified
// errors become opaque 500s with the detail kept server-side.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		cfgErr      *ConfigurationError
		transErr    *InvalidTransitionError
		conflictErr *ConflictError
		pastErr     *PastDateError
		tooFarErr   *DateTooFarError
		validErr    *ValidationError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &conflictErr):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &transErr):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &cfgErr),
		errors.As(err, &pastErr),
		errors.As(err, &tooFarErr),
		errors.As(err, &validErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[interview] %s error: %v", op, err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

// requireActor extracts the acting user from the x-user-id header.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := r.Header.Get("x-user-id")
	if actor == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return actor, true
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
