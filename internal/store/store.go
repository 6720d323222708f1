package store

import (
	"context"

	"github.com/sells-group/provider-directory/internal/model"
)

// Store defines the persistence interface for the provider directory.
// UpsertProfile is the one mutating path for provider state: it atomically
// replaces the canonical row and appends a version entry in a single
// transaction, so a crash can never leave a canonical row without a
// matching version row.
type Store interface {
	// Profiles
	UpsertProfile(ctx context.Context, p *model.ProviderProfile) (*model.VersionEntry, error)
	GetProfile(ctx context.Context, providerID string) (*model.ProviderProfile, error)
	ListByDecision(ctx context.Context, decision model.Decision) ([]*model.ProviderProfile, error)

	// Versions
	ListVersions(ctx context.Context, providerID string) ([]model.VersionEntry, error)

	// Runs
	RecordRun(ctx context.Context, stats *model.RunStats) error
	ListRuns(ctx context.Context, limit int) ([]model.RunStats, error)

	// Aggregates
	DirectoryStats(ctx context.Context) (*model.DirectoryStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
