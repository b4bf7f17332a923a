package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	identitymodels "idgov/internal/identity/models"
	"idgov/internal/reconciliation/aggregate"
	"idgov/internal/reconciliation/engine"
	"idgov/internal/reconciliation/metrics"
	"idgov/internal/reconciliation/models"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/platform/sentinel"
	"idgov/pkg/requestcontext"
)

// IdentityStore is the read side of the identity store.
type IdentityStore interface {
	Snapshot(ctx context.Context) (*identitymodels.Snapshot, error)
	Generation(ctx context.Context) (int64, error)
	ListSystems(ctx context.Context) (*identitymodels.Catalog, error)
}

// DocumentCache stores rendered documents keyed by scope and store generation.
// Get returns sentinel.ErrCacheMiss when absent.
type DocumentCache interface {
	Get(ctx context.Context, scopeKey string, generation int64) (*models.Document, error)
	Set(ctx context.Context, scopeKey string, generation int64, doc *models.Document) error
}

// Dashboard is a rendered document with the scope and generation it reflects.
type Dashboard struct {
	Scope      string
	Generation int64
	Cached     bool
	Document   models.Document
}

// Service serves reconciliation dashboards from store snapshots.
type Service struct {
	store      IdentityStore
	cache      DocumentCache
	aggregator *aggregate.Aggregator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	group      singleflight.Group
}

type Option func(s *Service)

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

// WithCache enables the document cache. A nil cache leaves caching disabled.
func WithCache(c DocumentCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithCurrencyLocale selects the locale used for currency strings.
func WithCurrencyLocale(locale string) Option {
	return func(s *Service) {
		s.aggregator = aggregate.New(locale)
	}
}

// New constructs a Service.
func New(store IdentityStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity store is required")
	}
	s := &Service{
		store:      store,
		aggregator: aggregate.New("pt-BR"),
		logger:     slog.Default(),
		tracer:     otel.Tracer("idgov/reconciliation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dashboard returns the document for a system name or "Geral". Concurrent
// identical requests share one computation; documents are cached per store
// generation and evaluation day.
func (s *Service) Dashboard(ctx context.Context, rawScope string) (*Dashboard, error) {
	scope, err := engine.ParseScope(rawScope)
	if err != nil {
		return nil, err
	}

	generation, err := s.store.Generation(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read store generation")
	}

	day := evaluationDay(ctx)
	docKey := documentKey(scope, day)
	if doc, ok := s.cached(ctx, scope, docKey, generation); ok {
		return &Dashboard{Scope: scope.String(), Generation: generation, Cached: true, Document: *doc}, nil
	}

	key := docKey + "@" + strconv.FormatInt(generation, 10)
	// The shared computation outlives any single caller's cancellation.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.compute(sharedCtx, scope, day)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.incrementShared()
	}
	dash := v.(*Dashboard)
	return &Dashboard{Scope: dash.Scope, Generation: dash.Generation, Document: dash.Document}, nil
}

// Divergences returns the per-identity audit rows for a scope.
func (s *Service) Divergences(ctx context.Context, rawScope string) (*models.DivergenceReport, error) {
	scope, err := engine.ParseScope(rawScope)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res := s.reconcile(ctx, scope, snap, evaluationDay(ctx))
	return &models.DivergenceReport{
		Scope:      scope.String(),
		Generation: snap.Generation,
		Rows:       aggregate.Details(res),
	}, nil
}

// Systems lists the partitions known to the store.
func (s *Service) Systems(ctx context.Context) (*identitymodels.Catalog, error) {
	catalog, err := s.store.ListSystems(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list systems")
	}
	return catalog, nil
}

func (s *Service) compute(ctx context.Context, scope engine.Scope, day time.Time) (*Dashboard, error) {
	start := time.Now()
	defer s.observeCompute(scope, start)

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	res := s.reconcile(ctx, scope, snap, day)

	_, span := s.tracer.Start(ctx, "reconciliation.aggregate")
	doc := s.aggregator.Build(res)
	span.End()

	s.saveToCache(ctx, scope, documentKey(scope, day), snap.Generation, &doc)
	s.publishFigures(scope, doc, res)

	s.logger.InfoContext(ctx, "dashboard computed",
		"scope", scope.String(),
		"generation", snap.Generation,
		"records", len(res.Findings),
		"gaps", len(res.Gaps),
		"compliance_index", float64(doc.Riscos.IndiceConformidade),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Dashboard{Scope: scope.String(), Generation: snap.Generation, Document: doc}, nil
}

func (s *Service) snapshot(ctx context.Context) (*identitymodels.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "reconciliation.snapshot")
	defer span.End()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity snapshot")
	}
	span.SetAttributes(
		attribute.Int64("store.generation", snap.Generation),
		attribute.Int("identities.hr", len(snap.HR)),
		attribute.Int("identities.targets", len(snap.Targets)),
	)
	return snap, nil
}

func (s *Service) reconcile(ctx context.Context, scope engine.Scope, snap *identitymodels.Snapshot, day time.Time) *engine.Result {
	_, span := s.tracer.Start(ctx, "reconciliation.reconcile",
		trace.WithAttributes(attribute.String("scope", scope.String())))
	defer span.End()
	return engine.Reconcile(scope, snap.HR, snap.Targets, day)
}

// evaluationDay is the start of the request's UTC day. Dormancy is judged
// against it, so a document depends only on scope, generation and day.
func evaluationDay(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(24 * time.Hour)
}

// documentKey identifies a rendered document for the cache, e.g. "sap@2024-06-30".
func documentKey(scope engine.Scope, day time.Time) string {
	return scope.Key() + "@" + day.Format(time.DateOnly)
}

func (s *Service) cached(ctx context.Context, scope engine.Scope, docKey string, generation int64) (*models.Document, bool) {
	if s.cache == nil {
		return nil, false
	}
	doc, err := s.cache.Get(ctx, docKey, generation)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		return doc, true
	}
	if !errors.Is(err, sentinel.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "dashboard cache read failed, computing from store",
			"error", err,
			"scope", scope.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementCacheError()
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
	return nil, false
}

func (s *Service) saveToCache(ctx context.Context, scope engine.Scope, docKey string, generation int64, doc *models.Document) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, docKey, generation, doc); err != nil {
		s.logger.WarnContext(ctx, "dashboard cache write failed",
			"error", err,
			"scope", scope.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementCacheError()
		}
	}
}

func (s *Service) observeCompute(scope engine.Scope, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCompute(scope.Kind(), start)
}

func (s *Service) publishFigures(scope engine.Scope, doc models.Document, res *engine.Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetScopeFigures(scope.Key(), float64(doc.Riscos.IndiceConformidade), res.TotalUniqueDivergent())
}

func (s *Service) incrementShared() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementSharedCompute()
}
