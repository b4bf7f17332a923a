package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	identitymodels "idgov/internal/identity/models"
	"idgov/internal/ingestion/events"
	"idgov/internal/ingestion/metrics"
	"idgov/internal/ingestion/models"
	"idgov/internal/ingestion/parser"
	"idgov/pkg/domain"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/platform/sentinel"
	"idgov/pkg/requestcontext"
)

// IdentityStore is the write side of the identity store.
type IdentityStore interface {
	ReplaceSystem(ctx context.Context, system domain.SystemName, records []identitymodels.Identity) (int64, error)
}

// RunStore persists import provenance.
type RunStore interface {
	Save(ctx context.Context, run *models.ImportRun) error
	List(ctx context.Context, system domain.SystemName, limit int) ([]models.ImportRun, error)
}

// EventPublisher announces finished imports.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, evt events.ImportCompleted) error
}

const (
	defaultMaxBytes   = 32 << 20
	maxFilenameLength = 255
	maxAgentLength    = 256
)

// Service replaces identity partitions from uploaded files and records the
// provenance of every attempt.
type Service struct {
	identities IdentityStore
	runs       RunStore
	publisher  EventPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	maxBytes   int64
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher enables import events. A nil publisher leaves them disabled.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMaxBytes bounds the size of one upload.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithClock replaces time.Now for provenance timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(identities IdentityStore, runs RunStore, opts ...Option) (*Service, error) {
	if identities == nil {
		return nil, errors.New("identity store is required")
	}
	if runs == nil {
		return nil, errors.New("import run store is required")
	}
	s := &Service{
		identities: identities,
		runs:       runs,
		publisher:  events.NoopPublisher{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("idgov/ingestion"),
		maxBytes:   defaultMaxBytes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Import parses content and atomically replaces the partition of rawSystem.
// Rejected files leave the partition untouched and are still recorded as
// failed runs.
func (s *Service) Import(ctx context.Context, rawSystem string, src models.Source, content io.Reader) (*models.ImportRun, error) {
	system, err := domain.ParseSystemName(rawSystem)
	if err != nil {
		return nil, err
	}
	if system.IsGlobal() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "Geral is reserved for the all-systems dashboard")
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ingestion.import", trace.WithAttributes(attribute.String("system", system.String())))
	defer span.End()

	run := &models.ImportRun{
		ID:            uuid.New(),
		SourceSystem:  system,
		Filename:      sanitizeFilename(src.Filename),
		UploaderAgent: summarizeAgent(src.UserAgent),
		ClientIP:      src.ClientIP,
		StartedAt:     s.now().UTC(),
	}

	gen, err := s.replace(ctx, run, content)
	run.FinishedAt = s.now().UTC()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = clientMessage(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, run.Error)
	} else {
		run.Status = models.RunStatusSuccess
		run.Generation = gen
		span.SetAttributes(attribute.Int("rows.imported", run.RowsImported), attribute.Int64("store.generation", gen))
	}

	s.recordRun(ctx, run)
	s.publish(ctx, run)
	s.observe(run, start)

	if err != nil {
		s.logger.WarnContext(ctx, "partition import rejected",
			"run_id", run.ID.String(),
			"system", system.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}
	s.logger.InfoContext(ctx, "partition imported",
		"run_id", run.ID.String(),
		"system", system.String(),
		"rows", run.RowsImported,
		"warnings", len(run.Warnings),
		"generation", gen,
		"encoding", run.Encoding,
		"request_id", requestcontext.RequestID(ctx),
	)
	return run, nil
}

// Runs lists provenance records, newest first. An empty rawSystem lists every
// partition.
func (s *Service) Runs(ctx context.Context, rawSystem string, limit int) ([]models.ImportRun, error) {
	var system domain.SystemName
	if strings.TrimSpace(rawSystem) != "" {
		parsed, err := domain.ParseSystemName(rawSystem)
		if err != nil {
			return nil, err
		}
		system = parsed
	}
	runs, err := s.runs.List(ctx, system, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list import runs")
	}
	return runs, nil
}

func (s *Service) replace(ctx context.Context, run *models.ImportRun, content io.Reader) (int64, error) {
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read upload")
	}
	if int64(len(data)) > s.maxBytes {
		return 0, dErrors.New(dErrors.CodePayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	_, parseSpan := s.tracer.Start(ctx, "ingestion.parse")
	res, err := parser.Parse(data)
	parseSpan.End()
	if err != nil {
		if errors.Is(err, parser.ErrEmptyFile) || errors.Is(err, parser.ErrMissingIdentityColumn) {
			return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, err.Error())
		}
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "file is not a readable delimited export")
	}
	run.Encoding = res.Encoding
	run.RowsRead = res.Rows
	run.Warnings = res.Warnings

	records, dupes := identitymodels.DedupeByIdentityID(res.Records)
	run.Warnings = append(run.Warnings, duplicateWarnings(dupes)...)

	gen, err := s.identities.ReplaceSystem(ctx, run.SourceSystem, records)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.Wrap(err, dErrors.CodeConflict, "partition changed concurrently, retry the import")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace partition")
	}
	run.RowsImported = len(records)
	return gen, nil
}

// recordRun stores provenance. The partition is already committed, so a
// failure here is logged rather than returned.
func (s *Service) recordRun(ctx context.Context, run *models.ImportRun) {
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to record import run",
			"run_id", run.ID.String(),
			"system", run.SourceSystem.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) publish(ctx context.Context, run *models.ImportRun) {
	err := s.publisher.PublishImportCompleted(ctx, events.ImportCompleted{
		RunID:        run.ID.String(),
		System:       run.SourceSystem.String(),
		Status:       string(run.Status),
		RowsImported: run.RowsImported,
		Warnings:     len(run.Warnings),
		Generation:   run.Generation,
		RequestID:    requestcontext.RequestID(ctx),
		OccurredAt:   run.FinishedAt,
	})
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "import event not published",
		"run_id", run.ID.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementEventsDropped()
	}
}

func (s *Service) observe(run *models.ImportRun, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveImport(string(run.Status), start)
	s.metrics.AddWarnings(len(run.Warnings))
	if !run.Succeeded() {
		return
	}
	partition := "target"
	if run.SourceSystem.IsHR() {
		partition = "hr"
	}
	s.metrics.AddRecords(partition, run.RowsImported)
}

func duplicateWarnings(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, fmt.Sprintf("id_user %s: repeated; last occurrence kept", id))
	}
	return out
}

// clientMessage is the error text safe to store and show; internal causes
// are not exposed.
func clientMessage(err error) string {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		return de.Message
	}
	return "internal error"
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return truncateRunes(name, maxFilenameLength)
}

// summarizeAgent reduces a User-Agent header to "name version (os)".
func summarizeAgent(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return truncateRunes(raw, maxAgentLength)
	}
	summary := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		summary += " (" + os + ")"
	}
	if ua.Bot() {
		summary += " [bot]"
	}
	return truncateRunes(summary, maxAgentLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
