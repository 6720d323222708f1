package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/provider-directory/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS providers (
	provider_id        TEXT PRIMARY KEY,
	name               TEXT,
	npi                TEXT,
	identity_status    TEXT,
	address            TEXT,
	phone              TEXT,
	specialty          TEXT,
	profile_confidence DOUBLE PRECISION,
	decision           TEXT,
	canonical_record   JSONB NOT NULL,
	last_updated       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id                BIGSERIAL PRIMARY KEY,
	provider_id       TEXT NOT NULL,
	version_timestamp TIMESTAMPTZ NOT NULL,
	record_snapshot   JSONB NOT NULL,
	change_summary    TEXT
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id              BIGSERIAL PRIMARY KEY,
	run_timestamp       TIMESTAMPTZ NOT NULL,
	total_processed     INTEGER,
	auto_count          INTEGER,
	review_count        INTEGER,
	hold_count          INTEGER,
	avg_auto_confidence DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_providers_specialty ON providers(specialty);
CREATE INDEX IF NOT EXISTS idx_providers_decision ON providers(decision);
CREATE INDEX IF NOT EXISTS idx_versions_provider ON versions(provider_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertProfile replaces the canonical row and appends a version entry in
// one transaction. Rows for different provider IDs never block each other;
// same-ID writers serialize on the row lock.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p *model.ProviderProfile) (*model.VersionEntry, error) {
	now := time.Now().UTC()

	recordJSON, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal profile")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	prev, err := scanPgProfile(tx.QueryRow(ctx,
		`SELECT canonical_record FROM providers WHERE provider_id = $1 FOR UPDATE`, p.ProviderID))
	if err != nil {
		return nil, err
	}

	summary := ChangeSummary(prev, p)

	confidence, decision := qaColumns(p)
	_, err = tx.Exec(ctx,
		`INSERT INTO providers (
			provider_id, name, npi, identity_status, address, phone,
			specialty, profile_confidence, decision, canonical_record, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (provider_id) DO UPDATE SET
			name = EXCLUDED.name,
			npi = EXCLUDED.npi,
			identity_status = EXCLUDED.identity_status,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			specialty = EXCLUDED.specialty,
			profile_confidence = EXCLUDED.profile_confidence,
			decision = EXCLUDED.decision,
			canonical_record = EXCLUDED.canonical_record,
			last_updated = EXCLUDED.last_updated`,
		p.ProviderID, p.Name, p.NPI, string(p.IdentityStatus), p.Address, p.Phone,
		p.EffectiveSpecialty(), confidence, string(decision), recordJSON, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert provider %s", p.ProviderID)
	}

	var versionID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO versions (provider_id, version_timestamp, record_snapshot, change_summary)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		p.ProviderID, now, recordJSON, summary,
	).Scan(&versionID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: append version for %s", p.ProviderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit upsert")
	}

	return &model.VersionEntry{
		ID:               versionID,
		ProviderID:       p.ProviderID,
		VersionTimestamp: now,
		Snapshot:         p,
		ChangeSummary:    summary,
	}, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, providerID string) (*model.ProviderProfile, error) {
	return scanPgProfile(s.pool.QueryRow(ctx,
		`SELECT canonical_record FROM providers WHERE provider_id = $1`, providerID))
}

func (s *PostgresStore) ListByDecision(ctx context.Context, decision model.Decision) ([]*model.ProviderProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT canonical_record FROM providers WHERE decision = $1 ORDER BY name`,
		string(decision),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list by decision")
	}
	defer rows.Close()

	var profiles []*model.ProviderProfile
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		p := &model.ProviderProfile{}
		if err := json.Unmarshal(recordJSON, p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal provider")
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list by decision iterate")
}

func (s *PostgresStore) ListVersions(ctx context.Context, providerID string) ([]model.VersionEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, version_timestamp, record_snapshot, change_summary
		 FROM versions WHERE provider_id = $1 ORDER BY version_timestamp, id`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list versions")
	}
	defer rows.Close()

	var entries []model.VersionEntry
	for rows.Next() {
		var e model.VersionEntry
		var snapshotJSON []byte
		var summary *string
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.VersionTimestamp, &snapshotJSON, &summary); err != nil {
			return nil, eris.Wrap(err, "postgres: scan version")
		}
		e.Snapshot = &model.ProviderProfile{}
		if err := json.Unmarshal(snapshotJSON, e.Snapshot); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal snapshot")
		}
		if summary != nil {
			e.ChangeSummary = *summary
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list versions iterate")
}

func (s *PostgresStore) RecordRun(ctx context.Context, stats *model.RunStats) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (run_timestamp, total_processed, auto_count, review_count, hold_count, avg_auto_confidence)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING run_id`,
		stats.RunTimestamp.UTC(), stats.TotalProcessed, stats.AutoCount, stats.ReviewCount, stats.HoldCount, stats.AvgAutoConfidence,
	).Scan(&stats.RunID)
	return eris.Wrap(err, "postgres: record run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, run_timestamp, total_processed, auto_count, review_count, hold_count, avg_auto_confidence
		 FROM pipeline_runs ORDER BY run_timestamp DESC, run_id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunStats
	for rows.Next() {
		var r model.RunStats
		if err := rows.Scan(&r.RunID, &r.RunTimestamp, &r.TotalProcessed, &r.AutoCount, &r.ReviewCount, &r.HoldCount, &r.AvgAutoConfidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) DirectoryStats(ctx context.Context) (*model.DirectoryStats, error) {
	stats := &model.DirectoryStats{
		ByDecision:              make(map[model.Decision]int),
		AvgConfidenceByDecision: make(map[model.Decision]float64),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT decision, COUNT(*), AVG(profile_confidence) FROM providers GROUP BY decision`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by decision")
	}
	defer rows.Close()
	for rows.Next() {
		var decision string
		var count int
		var avg sql.NullFloat64
		if err := rows.Scan(&decision, &count, &avg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision stats")
		}
		stats.ByDecision[model.Decision(decision)] = count
		stats.AvgConfidenceByDecision[model.Decision(decision)] = avg.Float64
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats by decision iterate")
	}

	specRows, err := s.pool.Query(ctx,
		`SELECT specialty, COUNT(*) AS cnt FROM providers
		 WHERE decision = 'AUTO' AND specialty != 'Unknown'
		 GROUP BY specialty ORDER BY cnt DESC, specialty LIMIT 10`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top specialties")
	}
	defer specRows.Close()
	for specRows.Next() {
		var sc model.SpecialtyCount
		if err := specRows.Scan(&sc.Specialty, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan specialty")
		}
		stats.TopSpecialties = append(stats.TopSpecialties, sc)
	}
	if err := specRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: top specialties iterate")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT
			COUNT(CASE WHEN profile_confidence >= 0.9 THEN 1 END),
			COUNT(CASE WHEN profile_confidence >= 0.75 AND profile_confidence < 0.9 THEN 1 END),
			COUNT(CASE WHEN profile_confidence < 0.75 THEN 1 END)
		 FROM providers WHERE decision = 'AUTO'`,
	).Scan(&stats.Confidence.High, &stats.Confidence.Medium, &stats.Confidence.Low)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: confidence distribution")
	}

	return stats, nil
}

func scanPgProfile(row pgx.Row) (*model.ProviderProfile, error) {
	var recordJSON []byte
	err := row.Scan(&recordJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan profile")
	}
	p := &model.ProviderProfile{}
	if err := json.Unmarshal(recordJSON, p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return p, nil
}
