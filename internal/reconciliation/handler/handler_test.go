package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	identitymodels "idgov/internal/identity/models"
	"idgov/internal/reconciliation/handler/mocks"
	"idgov/internal/reconciliation/models"
	"idgov/internal/reconciliation/service"
	dErrors "idgov/pkg/domain-errors"
	"idgov/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestDashboard() {
	s.Run("returns document with generation headers", func() {
		s.service.EXPECT().Dashboard(gomock.Any(), "SAP").Return(&service.Dashboard{
			Scope:      "SAP",
			Generation: 12,
			Document: models.Document{
				Pills:  models.Pills{Total: 4, Ativos: 3, Inativos: 1},
				Riscos: models.Riscos{PrejuizoPotencial: "R$ 58.000,00", IndiceConformidade: 50},
			},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/SAP"))

		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("12", rr.Header().Get(GenerationHeader))
		s.Equal("MISS", rr.Header().Get(CacheHeader))
		s.Contains(rr.Body.String(), `"indiceConformidade":50.0`)
		s.Contains(rr.Body.String(), `"prejuizoPotencial":"R$ 58.000,00"`)
		s.Contains(rr.Body.String(), `"kpisAdicionais"`)
	})

	s.Run("cached dashboards are flagged", func() {
		s.service.EXPECT().Dashboard(gomock.Any(), "Geral").Return(&service.Dashboard{Scope: "Geral", Generation: 1, Cached: true}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/Geral"))

		testutil.AssertStatusOK(s.T(), rr)
		s.Equal("HIT", rr.Header().Get(CacheHeader))
	})

	s.Run("escaped system names are decoded", func() {
		s.service.EXPECT().Dashboard(gomock.Any(), "Recursos Humanos").Return(&service.Dashboard{}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/Recursos%20Humanos"))

		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("HR scope is a bad request", func() {
		s.service.EXPECT().Dashboard(gomock.Any(), "RH").
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "the HR partition is the reference and cannot be reconciled"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/RH"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("store failures hide details", func() {
		s.service.EXPECT().Dashboard(gomock.Any(), "AD").
			Return(nil, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeInternal, "failed to load identity snapshot"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/AD"))

		s.NotContains(rr.Body.String(), "connection refused")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *HandlerSuite) TestDivergences() {
	s.service.EXPECT().Divergences(gomock.Any(), "sap").Return(&models.DivergenceReport{
		Scope:      "sap",
		Generation: 3,
		Rows: []models.DivergenceDetail{
			{System: "SAP", IdentityID: "7", Divergences: []string{"cpf"}},
		},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/dashboard/sap/divergences"))

	testutil.AssertStatusOK(s.T(), rr)
	s.Equal("3", rr.Header().Get(GenerationHeader))
	report := testutil.UnmarshalResponse[models.DivergenceReport](s.T(), rr)
	s.Require().Len(report.Rows, 1)
	s.Equal("7", report.Rows[0].IdentityID)
	s.Equal([]string{"cpf"}, report.Rows[0].Divergences)
}

func (s *HandlerSuite) TestSystems() {
	s.Run("empty store renders an empty list", func() {
		s.service.EXPECT().Systems(gomock.Any()).Return(&identitymodels.Catalog{}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/systems"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"generation":0,"systems":[]}`, rr.Body.String())
	})

	s.Run("lists partitions", func() {
		s.service.EXPECT().Systems(gomock.Any()).Return(&identitymodels.Catalog{
			Generation: 5,
			Systems: []identitymodels.SystemSummary{
				{System: "RH", Records: 10, Authoritative: true},
				{System: "SAP", Records: 8},
			},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/systems"))

		testutil.AssertStatusOK(s.T(), rr)
		catalog := testutil.UnmarshalResponse[identitymodels.Catalog](s.T(), rr)
		s.Len(catalog.Systems, 2)
		s.True(catalog.Systems[0].Authoritative)
	})
}
