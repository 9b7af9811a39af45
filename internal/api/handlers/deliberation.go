package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/loancouncil/internal/api/middleware"
	"github.com/Harshitk-cp/loancouncil/internal/domain"
	"github.com/Harshitk-cp/loancouncil/internal/service"
	"github.com/Harshitk-cp/loancouncil/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliberationService is the subset of service.DeliberationService the
// handlers need.
type DeliberationService interface {
	Deliberate(ctx context.Context, req service.DeliberationRequest) (*domain.Deliberation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deliberation, error)
	List(ctx context.Context, limit int) ([]domain.Deliberation, error)
	Stats(ctx context.Context) (*domain.DeliberationStats, error)
	PreviewFeatures(profile string) (*service.FeaturePreview, error)
}

type DeliberationHandler struct {
	svc    DeliberationService
	logger *zap.Logger
}

func NewDeliberationHandler(svc DeliberationService, logger *zap.Logger) *DeliberationHandler {
	return &DeliberationHandler{svc: svc, logger: logger}
}

type createDeliberationRequest struct {
	Profile     string              `json:"profile"`
	Application *domain.Application `json:"application"`
	ExternalRef string              `json:"external_ref"`
}

func (h *DeliberationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeliberationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.svc.Deliberate(r.Context(), service.DeliberationRequest{
		Profile:     req.Profile,
		Application: req.Application,
		ExternalRef: req.ExternalRef,
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyProfile):
			writeError(w, http.StatusBadRequest, "profile or application is required")
		case errors.Is(err, domain.ErrInvalidApplication):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "deliberation cancelled")
		default:
			h.logger.Error("deliberation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to run deliberation")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (h *DeliberationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deliberation id")
		return
	}

	d, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DeliberationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := h.svc.List(r.Context(), limit)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	if items == nil {
		items = []domain.Deliberation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliberations": items})
}

func (h *DeliberationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *DeliberationHandler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDeliberationNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "deliberation not found")
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("deliberation lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read deliberations")
	}
}

type extractFeaturesRequest struct {
	Profile string `json:"profile"`
}

// ExtractFeatures is a dry run of the rule engine. No completion calls are made.
func (h *DeliberationHandler) ExtractFeatures(w http.ResponseWriter, r *http.Request) {
	var req extractFeaturesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.PreviewFeatures(req.Profile)
	if err != nil {
		if errors.Is(err, service.ErrEmptyProfile) {
			writeError(w, http.StatusBadRequest, "profile is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to extract features")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
