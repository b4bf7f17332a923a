package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idgov/internal/ingestion/models"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/platform/httputil"
	"idgov/pkg/platform/middleware/admin"
	"idgov/pkg/requestcontext"
)

const (
	formField        = "file"
	defaultListLimit = 50
	maxListLimit     = 500
	// multipartOverhead leaves room for boundaries and part headers on top
	// of the file size limit.
	multipartOverhead = 1 << 20
	maxFormMemory     = 8 << 20
)

// Service defines the ingestion operations exposed over HTTP.
type Service interface {
	Import(ctx context.Context, system string, src models.Source, content io.Reader) (*models.ImportRun, error)
	Runs(ctx context.Context, system string, limit int) ([]models.ImportRun, error)
}

// Handler serves the operator-only import endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
	maxBytes   int64
}

// New creates an ingestion Handler. Every route requires adminToken.
func New(svc Service, logger *slog.Logger, adminToken string, maxBytes int64) *Handler {
	return &Handler{service: svc, logger: logger, adminToken: adminToken, maxBytes: maxBytes}
}

// Register registers the import routes behind the admin token guard.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/api/v1/imports/{system}", h.HandleImport)
		r.Get("/api/v1/imports", h.HandleListRuns)
	})
}

// HandleImport replaces one partition from a multipart upload.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	system := chi.URLParam(r, "system")
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(system)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid system name encoding"))
			return
		}
		system = decoded
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge, "upload exceeds the configured size limit"))
			return
		}
		h.logger.WarnContext(ctx, "invalid import upload",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected a multipart/form-data body"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formField)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing form file field \"file\""))
		return
	}
	defer file.Close()

	run, err := h.service.Import(ctx, system, models.Source{
		Filename:  header.Filename,
		UserAgent: requestcontext.UserAgent(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	}, file)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "import failed",
				"request_id", requestID,
				"system", system,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, run)
}

// HandleListRuns lists import provenance, optionally filtered by ?system=.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	runs, err := h.service.Runs(ctx, r.URL.Query().Get("system"), limit)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to list import runs",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
