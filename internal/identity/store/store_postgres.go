package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"idgov/internal/identity/models"
	"idgov/pkg/domain"
	"idgov/pkg/platform/sentinel"
	"idgov/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists identities in PostgreSQL. The single-row
// store_generation table is bumped inside every replacement transaction and
// read together with the rows under repeatable read.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	bumpGenerationSQL = `UPDATE store_generation SET generation = generation + 1 WHERE id = 1 RETURNING generation`
	deleteSystemSQL   = `DELETE FROM identities WHERE source_key = $1`
	insertSystemSQL   = `
INSERT INTO identities (source_key, source_system, identity_id, name, email, cpf, status, user_type, profile, last_login, attributes)
SELECT $1, $2, t.identity_id, t.name, t.email, t.cpf, t.status, t.user_type, t.profile, t.last_login::timestamptz, t.attributes::jsonb
FROM unnest($3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[], $9::text[], $10::text[], $11::text[])
    AS t(identity_id, name, email, cpf, status, user_type, profile, last_login, attributes)`
	selectGenerationSQL = `SELECT generation FROM store_generation WHERE id = 1`
	selectAllSQL        = `
SELECT source_system, identity_id, name, email, cpf, status, user_type, profile, last_login, attributes
FROM identities
ORDER BY source_key, identity_id`
	listSystemsSQL = `
SELECT MIN(source_system), COUNT(*)
FROM identities
GROUP BY source_key
ORDER BY source_key`
)

// ReplaceSystem deletes every record of system and bulk-inserts records in one
// transaction, returning the new generation. The generation row lock
// serializes concurrent imports.
func (s *PostgresStore) ReplaceSystem(ctx context.Context, system domain.SystemName, records []models.Identity) (int64, error) {
	deduped, _ := models.DedupeByIdentityID(records)
	cols, err := toColumns(deduped)
	if err != nil {
		return 0, err
	}

	var generation int64
	err = tx.Run(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		if err := exec.QueryRowContext(ctx, bumpGenerationSQL).Scan(&generation); err != nil {
			return fmt.Errorf("bump generation: %w", err)
		}
		if _, err := exec.ExecContext(ctx, deleteSystemSQL, system.Key()); err != nil {
			return fmt.Errorf("delete system %s: %w", system, err)
		}
		if len(deduped) == 0 {
			return nil
		}
		_, err := exec.ExecContext(ctx, insertSystemSQL,
			system.Key(), system.String(),
			pq.Array(cols.ids), pq.Array(cols.names), pq.Array(cols.emails), pq.Array(cols.cpfs),
			pq.Array(cols.statuses), pq.Array(cols.userTypes), pq.Array(cols.profiles),
			pq.Array(cols.lastLogins), pq.Array(cols.attributes),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("insert system %s: %w", system, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert system %s: %w", system, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return generation, nil
}

// Snapshot reads the generation and every row inside one read-only repeatable
// read transaction.
func (s *PostgresStore) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	err := tx.Run(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		if err := exec.QueryRowContext(ctx, selectGenerationSQL).Scan(&snap.Generation); err != nil {
			return fmt.Errorf("read generation: %w", err)
		}

		rows, err := exec.QueryContext(ctx, selectAllSQL)
		if err != nil {
			return fmt.Errorf("query identities: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanIdentity(rows)
			if err != nil {
				return err
			}
			if rec.IsHR() {
				snap.HR = append(snap.HR, rec)
			} else {
				snap.Targets = append(snap.Targets, rec)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate identities: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Generation returns the current store generation.
func (s *PostgresStore) Generation(ctx context.Context) (int64, error) {
	var generation int64
	if err := s.db.QueryRowContext(ctx, selectGenerationSQL).Scan(&generation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return generation, nil
}

// ListSystems describes every partition with its record count.
func (s *PostgresStore) ListSystems(ctx context.Context) (*models.Catalog, error) {
	catalog := &models.Catalog{Systems: []models.SystemSummary{}}
	err := tx.Run(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(ctx context.Context) error {
		exec := tx.ExecutorFrom(ctx, s.db)
		if err := exec.QueryRowContext(ctx, selectGenerationSQL).Scan(&catalog.Generation); err != nil {
			return fmt.Errorf("read generation: %w", err)
		}
		rows, err := exec.QueryContext(ctx, listSystemsSQL)
		if err != nil {
			return fmt.Errorf("list systems: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			var summary models.SystemSummary
			if err := rows.Scan(&name, &summary.Records); err != nil {
				return fmt.Errorf("scan system: %w", err)
			}
			summary.System = domain.SystemName(name)
			summary.Authoritative = summary.System.IsHR()
			catalog.Systems = append(catalog.Systems, summary)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (models.Identity, error) {
	var (
		rec        models.Identity
		system     string
		lastLogin  sql.NullTime
		attributes []byte
	)
	if err := row.Scan(&system, &rec.IdentityID, &rec.Name, &rec.Email, &rec.CPF,
		&rec.Status, &rec.UserType, &rec.Profile, &lastLogin, &attributes); err != nil {
		return models.Identity{}, fmt.Errorf("scan identity: %w", err)
	}
	rec.SourceSystem = domain.SystemName(system)
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		rec.Extra.LastLogin = &t
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &rec.Extra.Attributes); err != nil {
			return models.Identity{}, fmt.Errorf("decode attributes for %s: %w", rec.IdentityID, err)
		}
		if len(rec.Extra.Attributes) == 0 {
			rec.Extra.Attributes = nil
		}
	}
	return rec, nil
}

type identityColumns struct {
	ids, names, emails, cpfs, statuses, userTypes, profiles []string
	lastLogins                                              []sql.NullString
	attributes                                              []string
}

func toColumns(records []models.Identity) (identityColumns, error) {
	n := len(records)
	cols := identityColumns{
		ids: make([]string, 0, n), names: make([]string, 0, n), emails: make([]string, 0, n),
		cpfs: make([]string, 0, n), statuses: make([]string, 0, n), userTypes: make([]string, 0, n),
		profiles: make([]string, 0, n), lastLogins: make([]sql.NullString, 0, n), attributes: make([]string, 0, n),
	}
	for _, rec := range records {
		cols.ids = append(cols.ids, rec.IdentityID)
		cols.names = append(cols.names, rec.Name)
		cols.emails = append(cols.emails, rec.Email)
		cols.cpfs = append(cols.cpfs, rec.CPF)
		cols.statuses = append(cols.statuses, rec.Status)
		cols.userTypes = append(cols.userTypes, rec.UserType)
		cols.profiles = append(cols.profiles, rec.Profile)

		var lastLogin sql.NullString
		if rec.Extra.LastLogin != nil {
			lastLogin = sql.NullString{String: rec.Extra.LastLogin.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		cols.lastLogins = append(cols.lastLogins, lastLogin)

		attrs := rec.Extra.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		encoded, err := json.Marshal(attrs)
		if err != nil {
			return identityColumns{}, fmt.Errorf("encode attributes for %s: %w", rec.IdentityID, err)
		}
		cols.attributes = append(cols.attributes, string(encoded))
	}
	return cols, nil
}
