package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	identitymodels "idgov/internal/identity/models"
	"idgov/internal/reconciliation/models"
	"idgov/internal/reconciliation/service"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/platform/httputil"
	"idgov/pkg/requestcontext"
)

const (
	// GenerationHeader carries the store generation a response reflects.
	GenerationHeader = "X-Store-Generation"
	// CacheHeader reports whether a dashboard was served from the cache.
	CacheHeader = "X-Cache"
)

// Service defines the read operations of the reconciliation surface.
type Service interface {
	Dashboard(ctx context.Context, scope string) (*service.Dashboard, error)
	Divergences(ctx context.Context, scope string) (*models.DivergenceReport, error)
	Systems(ctx context.Context) (*identitymodels.Catalog, error)
}

// Handler serves dashboards and their drill-down views.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a reconciliation Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register registers the read-only reconciliation routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/dashboard/{system}", h.HandleDashboard)
	r.Get("/api/v1/dashboard/{system}/divergences", h.HandleDivergences)
	r.Get("/api/v1/systems", h.HandleSystems)
}

// HandleDashboard returns the dashboard document for one system or "Geral".
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scopeParam(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(ctx, scope)
	if err != nil {
		h.writeError(ctx, w, "dashboard", scope, err)
		return
	}

	w.Header().Set(GenerationHeader, strconv.FormatInt(dash.Generation, 10))
	if dash.Cached {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	httputil.WriteJSON(w, http.StatusOK, dash.Document)
}

// HandleDivergences returns the audit rows behind a dashboard.
func (h *Handler) HandleDivergences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope, ok := h.scopeParam(w, r)
	if !ok {
		return
	}

	report, err := h.service.Divergences(ctx, scope)
	if err != nil {
		h.writeError(ctx, w, "divergences", scope, err)
		return
	}

	w.Header().Set(GenerationHeader, strconv.FormatInt(report.Generation, 10))
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleSystems lists the partitions known to the store.
func (h *Handler) HandleSystems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catalog, err := h.service.Systems(ctx)
	if err != nil {
		h.writeError(ctx, w, "systems", "", err)
		return
	}
	if catalog.Systems == nil {
		catalog.Systems = []identitymodels.SystemSummary{}
	}

	w.Header().Set(GenerationHeader, strconv.FormatInt(catalog.Generation, 10))
	httputil.WriteJSON(w, http.StatusOK, catalog)
}

// scopeParam reads {system}. chi matches on the raw path when it carries
// escapes the default encoding would not produce, so those are decoded here.
func (h *Handler) scopeParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "system")
	if r.URL.RawPath == "" {
		return raw, true
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid system name encoding"))
		return "", false
	}
	return decoded, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op, scope string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "reconciliation request failed",
			"operation", op,
			"scope", scope,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, "reconciliation request rejected",
			"operation", op,
			"scope", scope,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
