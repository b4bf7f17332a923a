package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	identitymodels "idgov/internal/identity/models"
	"idgov/internal/reconciliation/metrics"
	"idgov/internal/reconciliation/models"
	"idgov/internal/reconciliation/service/mocks"
	"idgov/pkg/domain"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/platform/sentinel"
	"idgov/pkg/requestcontext"
)

// =============================================================================
// Reconciliation Service Test Suite
// =============================================================================
// Verifies scope validation, cache behaviour keyed by generation, error
// translation, and request collapsing. Engine and aggregate maths are covered
// in their own packages.

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockIdentityStore
	cache   *mocks.MockDocumentCache
	metrics *metrics.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockIdentityStore(s.ctrl)
	s.cache = mocks.NewMockDocumentCache(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.service, err = New(s.store, WithLogger(logger), WithCache(s.cache), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func snapshot(generation int64) *identitymodels.Snapshot {
	return &identitymodels.Snapshot{
		Generation: generation,
		HR: []identitymodels.Identity{
			{SourceSystem: domain.HRSystem, IdentityID: "1", Status: "Inativo", Name: "Ana"},
			{SourceSystem: domain.HRSystem, IdentityID: "2", Status: "Ativo", Name: "Bruno"},
		},
		Targets: []identitymodels.Identity{
			{SourceSystem: "SAP", IdentityID: "1", Status: "Ativo", Name: "Ana", UserType: "Funcionário"},
			{SourceSystem: "SAP", IdentityID: "2", Status: "Ativo", Name: "Bruno", UserType: "Funcionário"},
			{SourceSystem: "AD", IdentityID: "2", Status: "Ativo", Name: "Bruno"},
		},
	}
}

func (s *ServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "identity store is required")
	})
}

func (s *ServiceSuite) TestDashboardComputesOnCacheMissAndStores() {
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(3), nil)
	s.cache.EXPECT().Get(gomock.Any(), "sap@2024-06-30", int64(3)).Return(nil, sentinel.ErrCacheMiss)
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snapshot(3), nil)
	s.cache.EXPECT().Set(gomock.Any(), "sap@2024-06-30", int64(3), gomock.Any()).Return(nil)

	dash, err := s.service.Dashboard(s.ctx, "sap")

	s.Require().NoError(err)
	s.Equal("sap", dash.Scope)
	s.Equal(int64(3), dash.Generation)
	s.False(dash.Cached)
	s.Equal(2, dash.Document.Pills.Total)
	s.Equal(1, dash.Document.Divergencias.InativosRHAtivosApp)
	s.Equal("R$ 25.000,00", dash.Document.Riscos.PrejuizoPotencial)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheMisses))
}

func (s *ServiceSuite) TestDashboardServesCachedDocument() {
	cached := &models.Document{Pills: models.Pills{Total: 42}}
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(9), nil)
	s.cache.EXPECT().Get(gomock.Any(), "geral@2024-06-30", int64(9)).Return(cached, nil)

	dash, err := s.service.Dashboard(s.ctx, "Geral")

	s.Require().NoError(err)
	s.True(dash.Cached)
	s.Equal(42, dash.Document.Pills.Total)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.CacheHits))
}

func (s *ServiceSuite) TestDashboardBypassesFailingCache() {
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(1), nil)
	s.cache.EXPECT().Get(gomock.Any(), "geral@2024-06-30", int64(1)).Return(nil, errors.New("redis down"))
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snapshot(1), nil)
	s.cache.EXPECT().Set(gomock.Any(), "geral@2024-06-30", int64(1), gomock.Any()).Return(errors.New("redis down"))

	dash, err := s.service.Dashboard(s.ctx, "geral")

	s.Require().NoError(err)
	s.Equal(3, dash.Document.Pills.Total)
	s.Equal(float64(2), promtestutil.ToFloat64(s.metrics.CacheErrors))
}

func (s *ServiceSuite) TestDashboardCachesUnderSnapshotGeneration() {
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(4), nil)
	s.cache.EXPECT().Get(gomock.Any(), "ad@2024-06-30", int64(4)).Return(nil, sentinel.ErrCacheMiss)
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snapshot(5), nil)
	s.cache.EXPECT().Set(gomock.Any(), "ad@2024-06-30", int64(5), gomock.Any()).Return(nil)

	dash, err := s.service.Dashboard(s.ctx, "AD")

	s.Require().NoError(err)
	s.Equal(int64(5), dash.Generation)
}

// TestDashboardCacheKeyFollowsEvaluationDay verifies that a document cached
// on one day is not served the next, since dormancy moves with the clock even
// when the store generation does not.
func (s *ServiceSuite) TestDashboardCacheKeyFollowsEvaluationDay() {
	lastLogin := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	snap := &identitymodels.Snapshot{
		Generation: 7,
		HR: []identitymodels.Identity{
			{SourceSystem: domain.HRSystem, IdentityID: "1", Status: "Ativo", Name: "Ana"},
		},
		Targets: []identitymodels.Identity{
			{SourceSystem: "SAP", IdentityID: "1", Status: "Ativo", Name: "Ana",
				Extra: identitymodels.ExtraData{LastLogin: &lastLogin}},
		},
	}
	lateToday := requestcontext.WithTime(context.Background(), time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC))
	earlyTomorrow := requestcontext.WithTime(context.Background(), time.Date(2024, 7, 1, 1, 0, 0, 0, time.UTC))

	s.store.EXPECT().Generation(gomock.Any()).Return(int64(7), nil).Times(2)
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snap, nil).Times(2)
	gomock.InOrder(
		s.cache.EXPECT().Get(gomock.Any(), "sap@2024-06-30", int64(7)).Return(nil, sentinel.ErrCacheMiss),
		s.cache.EXPECT().Set(gomock.Any(), "sap@2024-06-30", int64(7), gomock.Any()).Return(nil),
		s.cache.EXPECT().Get(gomock.Any(), "sap@2024-07-01", int64(7)).Return(nil, sentinel.ErrCacheMiss),
		s.cache.EXPECT().Set(gomock.Any(), "sap@2024-07-01", int64(7), gomock.Any()).Return(nil),
	)

	today, err := s.service.Dashboard(lateToday, "SAP")
	s.Require().NoError(err)
	tomorrow, err := s.service.Dashboard(earlyTomorrow, "SAP")
	s.Require().NoError(err)

	s.Zero(today.Document.KPIs.ContasDormentes, "90 whole days is not dormant")
	s.Equal(1, tomorrow.Document.KPIs.ContasDormentes, "91 whole days is dormant")
}

func (s *ServiceSuite) TestDashboardRejectsHRScope() {
	_, err := s.service.Dashboard(s.ctx, "RH")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDashboardTranslatesStoreErrors() {
	s.Run("generation failure", func() {
		s.store.EXPECT().Generation(gomock.Any()).Return(int64(0), errors.New("db down"))
		_, err := s.service.Dashboard(s.ctx, "SAP")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("snapshot failure", func() {
		s.store.EXPECT().Generation(gomock.Any()).Return(int64(2), nil)
		s.cache.EXPECT().Get(gomock.Any(), "sap@2024-06-30", int64(2)).Return(nil, sentinel.ErrCacheMiss)
		s.store.EXPECT().Snapshot(gomock.Any()).Return(nil, errors.New("db down"))
		_, err := s.service.Dashboard(s.ctx, "SAP")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestUnknownSystemYieldsEmptyDocument() {
	svc, err := New(s.store)
	s.Require().NoError(err)
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(1), nil)
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snapshot(1), nil)

	dash, err := svc.Dashboard(s.ctx, "Desconhecido")

	s.Require().NoError(err)
	s.Zero(dash.Document.Pills.Total)
	s.Zero(dash.Document.Divergencias)
	s.Equal(models.Percent(100), dash.Document.Riscos.IndiceConformidade)
}

// TestConcurrentDashboardsShareComputation verifies identical concurrent
// requests collapse onto a single snapshot load.
func (s *ServiceSuite) TestConcurrentDashboardsShareComputation() {
	svc, err := New(s.store, WithMetrics(s.metrics))
	s.Require().NoError(err)

	release := make(chan struct{})
	s.store.EXPECT().Generation(gomock.Any()).Return(int64(1), nil).Times(5)
	s.store.EXPECT().Snapshot(gomock.Any()).DoAndReturn(func(context.Context) (*identitymodels.Snapshot, error) {
		<-release
		return snapshot(1), nil
	}).MinTimes(1).MaxTimes(5)

	var wg sync.WaitGroup
	results := make(chan *Dashboard, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dash, err := svc.Dashboard(s.ctx, "SAP")
			if err == nil {
				results <- dash
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	count := 0
	for dash := range results {
		s.Equal(2, dash.Document.Pills.Total)
		count++
	}
	s.Equal(5, count)
}

func (s *ServiceSuite) TestDivergences() {
	s.store.EXPECT().Snapshot(gomock.Any()).Return(snapshot(7), nil)

	report, err := s.service.Divergences(s.ctx, "Geral")

	s.Require().NoError(err)
	s.Equal("Geral", report.Scope)
	s.Equal(int64(7), report.Generation)
	s.Require().Len(report.Rows, 1)
	s.Equal("SAP", report.Rows[0].System)
	s.Equal([]string{"inativosRHAtivosApp"}, report.Rows[0].Divergences)
}

func (s *ServiceSuite) TestSystems() {
	catalog := &identitymodels.Catalog{Generation: 2, Systems: []identitymodels.SystemSummary{{System: "SAP", Records: 3}}}
	s.store.EXPECT().ListSystems(gomock.Any()).Return(catalog, nil)

	got, err := s.service.Systems(s.ctx)
	s.Require().NoError(err)
	s.Equal(catalog, got)

	s.store.EXPECT().ListSystems(gomock.Any()).Return(nil, errors.New("db down"))
	_, err = s.service.Systems(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
