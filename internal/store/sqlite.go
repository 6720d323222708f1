package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/provider-directory/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS providers (
	provider_id        TEXT PRIMARY KEY,
	name               TEXT,
	npi                TEXT,
	identity_status    TEXT,
	address            TEXT,
	phone              TEXT,
	specialty          TEXT,
	profile_confidence REAL,
	decision           TEXT,
	canonical_record   TEXT NOT NULL,
	last_updated       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	provider_id       TEXT NOT NULL,
	version_timestamp DATETIME NOT NULL,
	record_snapshot   TEXT NOT NULL,
	change_summary    TEXT
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_timestamp       DATETIME NOT NULL,
	total_processed     INTEGER,
	auto_count          INTEGER,
	review_count        INTEGER,
	hold_count          INTEGER,
	avg_auto_confidence REAL
);

CREATE INDEX IF NOT EXISTS idx_providers_npi ON providers(npi);
CREATE INDEX IF NOT EXISTS idx_providers_specialty ON providers(specialty);
CREATE INDEX IF NOT EXISTS idx_providers_decision ON providers(decision);
CREATE INDEX IF NOT EXISTS idx_versions_provider ON versions(provider_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertProfile replaces the canonical row and appends a version entry in
// one transaction. A version is appended even when nothing changed; the
// "processed but unchanged" entry timestamps the re-examination.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *model.ProviderProfile) (*model.VersionEntry, error) {
	now := time.Now().UTC()

	recordJSON, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	prev, err := scanProfileRow(tx.QueryRowContext(ctx,
		`SELECT canonical_record FROM providers WHERE provider_id = ?`, p.ProviderID))
	if err != nil {
		return nil, err
	}

	summary := ChangeSummary(prev, p)

	confidence, decision := qaColumns(p)
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO providers (
			provider_id, name, npi, identity_status, address, phone,
			specialty, profile_confidence, decision, canonical_record, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ProviderID, p.Name, p.NPI, string(p.IdentityStatus), p.Address, p.Phone,
		p.EffectiveSpecialty(), confidence, string(decision), string(recordJSON), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert provider %s", p.ProviderID)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO versions (provider_id, version_timestamp, record_snapshot, change_summary)
		 VALUES (?, ?, ?, ?)`,
		p.ProviderID, now, string(recordJSON), summary,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: append version for %s", p.ProviderID)
	}
	versionID, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: version id")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit upsert")
	}

	return &model.VersionEntry{
		ID:               versionID,
		ProviderID:       p.ProviderID,
		VersionTimestamp: now,
		Snapshot:         p,
		ChangeSummary:    summary,
	}, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, providerID string) (*model.ProviderProfile, error) {
	return scanProfileRow(s.db.QueryRowContext(ctx,
		`SELECT canonical_record FROM providers WHERE provider_id = ?`, providerID))
}

func (s *SQLiteStore) ListByDecision(ctx context.Context, decision model.Decision) ([]*model.ProviderProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT canonical_record FROM providers WHERE decision = ? ORDER BY name`,
		string(decision),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list by decision")
	}
	defer rows.Close() //nolint:errcheck

	var profiles []*model.ProviderProfile
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		p := &model.ProviderProfile{}
		if err := json.Unmarshal([]byte(recordJSON), p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal provider")
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list by decision iterate")
}

func (s *SQLiteStore) ListVersions(ctx context.Context, providerID string) ([]model.VersionEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, version_timestamp, record_snapshot, change_summary
		 FROM versions WHERE provider_id = ? ORDER BY version_timestamp, id`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list versions")
	}
	defer rows.Close() //nolint:errcheck

	var entries []model.VersionEntry
	for rows.Next() {
		var e model.VersionEntry
		var snapshotJSON string
		var summary sql.NullString
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.VersionTimestamp, &snapshotJSON, &summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan version")
		}
		e.Snapshot = &model.ProviderProfile{}
		if err := json.Unmarshal([]byte(snapshotJSON), e.Snapshot); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal snapshot")
		}
		e.ChangeSummary = summary.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list versions iterate")
}

func (s *SQLiteStore) RecordRun(ctx context.Context, stats *model.RunStats) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_timestamp, total_processed, auto_count, review_count, hold_count, avg_auto_confidence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stats.RunTimestamp.UTC(), stats.TotalProcessed, stats.AutoCount, stats.ReviewCount, stats.HoldCount, stats.AvgAutoConfidence,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: record run")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: run id")
	}
	stats.RunID = id
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, run_timestamp, total_processed, auto_count, review_count, hold_count, avg_auto_confidence
		 FROM pipeline_runs ORDER BY run_timestamp DESC, run_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.RunStats
	for rows.Next() {
		var r model.RunStats
		if err := rows.Scan(&r.RunID, &r.RunTimestamp, &r.TotalProcessed, &r.AutoCount, &r.ReviewCount, &r.HoldCount, &r.AvgAutoConfidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) DirectoryStats(ctx context.Context) (*model.DirectoryStats, error) {
	stats := &model.DirectoryStats{
		ByDecision:              make(map[model.Decision]int),
		AvgConfidenceByDecision: make(map[model.Decision]float64),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT decision, COUNT(*), AVG(profile_confidence) FROM providers GROUP BY decision`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by decision")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var decision string
		var count int
		var avg sql.NullFloat64
		if err := rows.Scan(&decision, &count, &avg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision stats")
		}
		stats.ByDecision[model.Decision(decision)] = count
		stats.AvgConfidenceByDecision[model.Decision(decision)] = avg.Float64
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by decision iterate")
	}

	specRows, err := s.db.QueryContext(ctx,
		`SELECT specialty, COUNT(*) AS cnt FROM providers
		 WHERE decision = 'AUTO' AND specialty != 'Unknown'
		 GROUP BY specialty ORDER BY cnt DESC, specialty LIMIT 10`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top specialties")
	}
	defer specRows.Close() //nolint:errcheck
	for specRows.Next() {
		var sc model.SpecialtyCount
		if err := specRows.Scan(&sc.Specialty, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan specialty")
		}
		stats.TopSpecialties = append(stats.TopSpecialties, sc)
	}
	if err := specRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: top specialties iterate")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN profile_confidence >= 0.9 THEN 1 END),
			COUNT(CASE WHEN profile_confidence >= 0.75 AND profile_confidence < 0.9 THEN 1 END),
			COUNT(CASE WHEN profile_confidence < 0.75 THEN 1 END)
		 FROM providers WHERE decision = 'AUTO'`,
	).Scan(&stats.Confidence.High, &stats.Confidence.Medium, &stats.Confidence.Low)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: confidence distribution")
	}

	return stats, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

// scanProfileRow reads a single canonical_record column; a missing row
// yields (nil, nil).
func scanProfileRow(row scannable) (*model.ProviderProfile, error) {
	var recordJSON string
	err := row.Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan profile")
	}
	p := &model.ProviderProfile{}
	if err := json.Unmarshal([]byte(recordJSON), p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return p, nil
}

func qaColumns(p *model.ProviderProfile) (float64, model.Decision) {
	if p.QA == nil {
		return 0, model.DecisionHold
	}
	return p.QA.ProfileConfidence, p.QA.Decision
}
