//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idgov/internal/identity/models"
	"idgov/internal/identity/store"
	"idgov/pkg/domain"
	"idgov/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "identities"))
}

func (s *PostgresStoreSuite) TestReplaceAndSnapshotRoundTrip() {
	ctx := context.Background()
	lastLogin := time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC)

	_, err := s.store.ReplaceSystem(ctx, domain.HRSystem, []models.Identity{
		{IdentityID: "100", Name: "Ana Souza", Email: "ana@corp.com", CPF: "123.456.789-00", Status: "Ativo", UserType: "Funcionário", Profile: "Admin"},
	})
	s.Require().NoError(err)
	gen, err := s.store.ReplaceSystem(ctx, "SAP", []models.Identity{
		{IdentityID: "100", Name: "ANA SOUZA", Status: "Ativo", Extra: models.ExtraData{
			LastLogin:  &lastLogin,
			Attributes: map[string]string{"centro_custo": "TI \"core\""},
		}},
	})
	s.Require().NoError(err)
	s.Equal(int64(2), gen)

	snap, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), snap.Generation)
	s.Require().Len(snap.HR, 1)
	s.Require().Len(snap.Targets, 1)
	s.Equal("Admin", snap.HR[0].Profile)
	s.Require().NotNil(snap.Targets[0].Extra.LastLogin)
	s.True(lastLogin.Equal(*snap.Targets[0].Extra.LastLogin))
	s.Equal("TI \"core\"", snap.Targets[0].Extra.Attributes["centro_custo"])
}

func (s *PostgresStoreSuite) TestReplaceIsCaseInsensitiveOnSystem() {
	ctx := context.Background()
	_, err := s.store.ReplaceSystem(ctx, "SAP", []models.Identity{{IdentityID: "1"}, {IdentityID: "2"}})
	s.Require().NoError(err)
	_, err = s.store.ReplaceSystem(ctx, "sap", []models.Identity{{IdentityID: "3"}})
	s.Require().NoError(err)

	catalog, err := s.store.ListSystems(ctx)
	s.Require().NoError(err)
	s.Require().Len(catalog.Systems, 1)
	s.Equal(1, catalog.Systems[0].Records)
}

// TestConcurrentImportsAndSnapshots verifies that a snapshot taken while
// imports run sees either the whole old or the whole new partition.
func (s *PostgresStoreSuite) TestConcurrentImportsAndSnapshots() {
	ctx := context.Background()
	small := []models.Identity{{IdentityID: "1"}, {IdentityID: "2"}}
	large := []models.Identity{{IdentityID: "1"}, {IdentityID: "2"}, {IdentityID: "3"}, {IdentityID: "4"}, {IdentityID: "5"}}
	_, err := s.store.ReplaceSystem(ctx, "AD", small)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			records := small
			if i%2 == 0 {
				records = large
			}
			_, _ = s.store.ReplaceSystem(ctx, "AD", records)
		}
	}()

	var sizes []int
	var mu sync.Mutex
	go func() {
		defer wg.Done()
		for i := 0; i < 40; i++ {
			snap, err := s.store.Snapshot(ctx)
			if err != nil {
				continue
			}
			mu.Lock()
			sizes = append(sizes, len(snap.Targets))
			mu.Unlock()
		}
	}()
	wg.Wait()

	for _, n := range sizes {
		s.True(n == len(small) || n == len(large), "observed partial partition of %d records", n)
	}
}
