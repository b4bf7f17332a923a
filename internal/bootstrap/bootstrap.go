// Package bootstrap assembles the stores and publishers shared by the server
// and the importer CLI from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	identitystore "idgov/internal/identity/store"
	"idgov/internal/ingestion/events"
	ingestionservice "idgov/internal/ingestion/service"
	ingestionstore "idgov/internal/ingestion/store"
	"idgov/internal/platform/config"
	"idgov/internal/platform/kafka"
	"idgov/internal/platform/postgres"
	reconciliationservice "idgov/internal/reconciliation/service"
)

// IdentityStore is the full identity persistence surface used by both
// services plus readiness probing.
type IdentityStore interface {
	ingestionservice.IdentityStore
	reconciliationservice.IdentityStore
	Pinger
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Stores holds the selected persistence backends.
type Stores struct {
	Identities IdentityStore
	Runs       ingestionservice.RunStore
	DB         *sql.DB
}

// Close releases the database pool when Postgres is in use.
func (s *Stores) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStores selects Postgres when DATABASE_URL is set and the in-memory
// stores otherwise. Migrations run before the stores are returned.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Stores, error) {
	if !cfg.Enabled() {
		logger.InfoContext(ctx, "using in-memory stores")
		return &Stores{
			Identities: identitystore.NewInMemory(),
			Runs:       ingestionstore.NewInMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "using postgres stores")
	return &Stores{
		Identities: identitystore.NewPostgres(db),
		Runs:       ingestionstore.NewPostgres(db),
		DB:         db,
	}, nil
}

// Publisher is an import event publisher that owns its broker connection.
type Publisher struct {
	ingestionservice.EventPublisher
	client *kgo.Client
}

// Close flushes and closes the Kafka client, if any.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Close()
}

// OpenPublisher connects to Kafka when brokers are configured and falls back
// to a no-op publisher otherwise.
func OpenPublisher(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	client, err := kafka.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.InfoContext(ctx, "import events disabled: no kafka brokers configured")
		return &Publisher{EventPublisher: events.NoopPublisher{}}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.ImportTopic, 1); err != nil {
		client.Close()
		return nil, err
	}
	pub, err := events.NewKafkaPublisher(client, cfg.ImportTopic, events.WithLogger(logger))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create import event publisher: %w", err)
	}
	return &Publisher{EventPublisher: pub, client: client}, nil
}

// ErrNotReady is returned by Ready when a dependency ping fails.
var ErrNotReady = errors.New("dependency not ready")

// Ready pings every non-nil dependency and joins the failures.
func Ready(ctx context.Context, deps map[string]Pinger) error {
	var errs []error
	for name, dep := range deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w: %w", name, ErrNotReady, err))
		}
	}
	return errors.Join(errs...)
}
