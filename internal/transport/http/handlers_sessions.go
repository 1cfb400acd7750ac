package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sahayak/internal/collaborator"
	"sahayak/internal/core"
	tracking "sahayak/internal/tracking/models"
	workflow "sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_sessions.go -destination=mocks/mocks.go -package=mocks Core

// Core is the citizen-facing service.
type Core interface {
	StartSession(ctx context.Context, owner domain.OwnerID, language string) (*workflow.Session, error)
	SubmitApplicationFacts(ctx context.Context, owner domain.OwnerID, id domain.SessionID, facts workflow.ApplicationFacts) (*workflow.Session, error)
	RequestEligibility(ctx context.Context, owner domain.OwnerID, id domain.SessionID, parcels workflow.ParcelsSubmitted) (*workflow.Session, error)
	AdvanceWorkflow(ctx context.Context, owner domain.OwnerID, id domain.SessionID, ev workflow.Event) (*workflow.Session, error)
	SubmitVoice(ctx context.Context, owner domain.OwnerID, id domain.SessionID, audio collaborator.Audio) (*workflow.Session, error)
	ResumeSession(ctx context.Context, owner domain.OwnerID, id domain.SessionID) (*workflow.Session, error)
	ListApplications(ctx context.Context, owner domain.OwnerID) ([]*tracking.Record, error)
	CompleteApplication(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*tracking.Record, error)
	DeleteOwnerData(ctx context.Context, owner domain.OwnerID) (core.DeletionReport, error)
}

// Handler serves the owner-scoped routes. Authentication happens in
// middleware; handlers read the owner from the request context.
type Handler struct {
	core   Core
	logger *slog.Logger
}

func NewHandler(core Core, logger *slog.Logger) *Handler {
	return &Handler{core: core, logger: logger}
}

// Register mounts the owner-scoped routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.handleStartSession)
	r.Get("/sessions/{sessionID}", h.handleResumeSession)
	r.Post("/sessions/{sessionID}/applications", h.handleSubmitApplication)
	r.Post("/sessions/{sessionID}/eligibility", h.handleRequestEligibility)
	r.Post("/sessions/{sessionID}/events", h.handleAdvance)
	r.Post("/sessions/{sessionID}/voice", h.handleVoice)
	r.Get("/applications", h.handleListApplications)
	r.Post("/applications/{applicationID}/complete", h.handleCompleteApplication)
	r.Delete("/me", h.handleDeleteOwnerData)
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	language := req.Language
	if language == "" {
		language = requestcontext.Language(ctx)
	}
	session, err := h.core.StartSession(ctx, owner, language)
	if err != nil {
		h.fail(ctx, w, "start session failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id, ok := h.sessionTarget(w, r)
	if !ok {
		return
	}
	session, err := h.core.ResumeSession(ctx, owner, id)
	if err != nil {
		h.fail(ctx, w, "resume session failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id, ok := h.sessionTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApplicationFactsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	session, err := h.core.SubmitApplicationFacts(ctx, owner, id, req.Facts())
	if err != nil {
		h.fail(ctx, w, "submit application facts failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleRequestEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id, ok := h.sessionTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EligibilityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	session, err := h.core.RequestEligibility(ctx, owner, id, req.Submitted())
	if err != nil {
		h.fail(ctx, w, "eligibility request failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id, ok := h.sessionTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EventRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	session, err := h.core.AdvanceWorkflow(ctx, owner, id, req.Event())
	if err != nil {
		h.fail(ctx, w, "advance session failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, id, ok := h.sessionTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VoiceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	session, err := h.core.SubmitVoice(ctx, owner, id, collaborator.Audio{
		Data:      req.Audio,
		MediaType: req.MediaType,
		Language:  requestcontext.Language(ctx),
	})
	if err != nil {
		h.fail(ctx, w, "voice input failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	records, err := h.core.ListApplications(ctx, owner)
	if err != nil {
		h.fail(ctx, w, "list applications failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationList(records))
}

func (h *Handler) handleCompleteApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.core.CompleteApplication(ctx, owner, id)
	if err != nil {
		h.fail(ctx, w, "complete application failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(record))
}

// handleDeleteOwnerData answers 200 when everything is gone and 202 when
// part of the deletion was queued for retry.
func (h *Handler) handleDeleteOwnerData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	report, err := h.core.DeleteOwnerData(ctx, owner)
	if err != nil {
		h.fail(ctx, w, "owner data deletion failed", err)
		return
	}
	status := http.StatusOK
	if !report.Complete() {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, toDeletionResponse(report))
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (domain.OwnerID, bool) {
	owner := requestcontext.OwnerID(r.Context())
	if owner.IsNil() {
		h.logger.ErrorContext(r.Context(), "owner missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.OwnerID{}, false
	}
	return owner, true
}

func (h *Handler) sessionTarget(w http.ResponseWriter, r *http.Request) (domain.OwnerID, domain.SessionID, bool) {
	owner, ok := h.owner(w, r)
	if !ok {
		return domain.OwnerID{}, domain.SessionID{}, false
	}
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.OwnerID{}, domain.SessionID{}, false
	}
	return owner, id, true
}

// fail logs at warn for citizen-correctable errors and at error otherwise.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
