package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provider-directory/internal/config"
	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/internal/reconcile"
	"github.com/sells-group/provider-directory/internal/store"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

// Pipeline orchestrates the per-record flow: source lookups, field
// reconciliation, enrichment, and QA scoring.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	registry npi.Client
	places   places.Client
	enricher enrich.Enricher
	fetcher  enrich.Fetcher
}

// New creates a Pipeline with all collaborators.
func New(
	cfg *config.Config,
	st store.Store,
	registryClient npi.Client,
	placesClient places.Client,
	enricher enrich.Enricher,
	fetcher enrich.Fetcher,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		registry: registryClient,
		places:   placesClient,
		enricher: enricher,
		fetcher:  fetcher,
	}
}

// ProcessRecord runs one input row end to end and always returns a
// profile. Collaborator failures degrade to partial data; a panic from
// any stage degrades to a minimal HOLD profile. It never writes to the
// store.
func (p *Pipeline) ProcessRecord(ctx context.Context, row model.InputRow) (profile *model.ProviderProfile) {
	log := zap.L().With(zap.String("provider_id", row.ProviderID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: record processing panicked", zap.Any("panic", r))
			profile = p.fallbackProfile(ctx, row)
		}
	}()

	obs := p.gather(ctx, row, log)
	profile = reconcile.Reconcile(row, obs)

	subject := enrich.Subject{
		Name:      profile.Name,
		Address:   profile.Address,
		Locality:  locality(row),
		Specialty: profile.Specialty,
		NPI:       profile.NPI,
	}
	enrichment, err := p.enricher.Enrich(ctx, subject)
	if err != nil {
		log.Warn("pipeline: enrichment failed", zap.Error(err))
	} else {
		profile.Enrichment = enrichment
	}

	profile.QA = EvaluateQA(ctx, profile, p.cfg.QA, p.fetcher)

	log.Info("pipeline: record processed",
		zap.String("decision", string(profile.QA.Decision)),
		zap.Float64("confidence", profile.QA.ProfileConfidence),
	)
	return profile
}

// gather collects per-source observations. Each lookup failure is logged
// and leaves that observation nil; reconciliation handles the gaps.
func (p *Pipeline) gather(ctx context.Context, row model.InputRow, log *zap.Logger) reconcile.Observations {
	var obs reconcile.Observations

	if npiNumber := strings.TrimSpace(row.NPI); npiNumber != "" {
		rec, err := p.registry.FetchIdentity(ctx, npiNumber)
		if err != nil {
			log.Warn("pipeline: registry lookup failed", zap.Error(err))
		} else {
			obs.Registry = rec
		}
	}

	if addr := addressText(row); addr != "" {
		res, err := p.places.VerifyAddress(ctx, addr)
		if err != nil {
			log.Warn("pipeline: address verification failed", zap.Error(err))
		} else {
			obs.Address = res
		}
	}

	if row.FullName != "" {
		place, err := p.places.FindPlace(ctx, row.FullName, locality(row))
		if err != nil {
			log.Warn("pipeline: place lookup failed", zap.Error(err))
		} else {
			obs.Place = place
		}
	}

	return obs
}

// fallbackProfile builds the minimal profile emitted when a record cannot
// be processed. The previous canonical specialty is carried forward when
// one exists so a transient failure does not erase known data.
func (p *Pipeline) fallbackProfile(ctx context.Context, row model.InputRow) *model.ProviderProfile {
	specialty := model.SpecialtyUnknown
	if p.store != nil {
		if prev, err := p.store.GetProfile(ctx, row.ProviderID); err == nil && prev != nil {
			specialty = prev.EffectiveSpecialty()
		}
	}

	profile := &model.ProviderProfile{
		ProviderID:     row.ProviderID,
		Name:           row.FullName,
		NPI:            strings.TrimSpace(row.NPI),
		IdentityStatus: model.IdentityNPIMissing,
		Address:        row.Address,
		Phone:          reconcile.NormalizePhone(row.Phone),
		Specialty:      specialty,
	}
	if profile.NPI != "" {
		profile.IdentityStatus = model.IdentityNPIUnverified
		profile.Sources.NPIProvided = true
	}

	qa := EvaluateQA(ctx, profile, p.cfg.QA, nil)
	qa.Decision = model.DecisionHold
	qa.Reasons = append(qa.Reasons, model.ReasonProcessingError)
	qa.Description = describe(profile, qa.Decision, qa.ProfileConfidence)
	profile.QA = qa
	return profile
}

// BatchResult is the outcome of one batch run, partitioned by decision.
type BatchResult struct {
	Profiles []*model.ProviderProfile
	Auto     []*model.ProviderProfile
	Review   []*model.ProviderProfile
	Hold     []*model.ProviderProfile
	Versions []*model.VersionEntry
	Stats    model.RunStats
}

// ProcessBatch processes rows concurrently, then persists results
// sequentially in input order so version history stays deterministic.
// Store failures mark the run degraded instead of aborting it.
func (p *Pipeline) ProcessBatch(ctx context.Context, rows []model.InputRow) (*BatchResult, error) {
	start := time.Now().UTC()
	log := zap.L().With(zap.Int("rows", len(rows)))
	log.Info("pipeline: starting batch")

	profiles := make([]*model.ProviderProfile, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Batch.MaxConcurrent)
	for i, row := range rows {
		g.Go(func() error {
			profiles[i] = p.ProcessRecord(gctx, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BatchResult{
		Profiles: profiles,
		Stats: model.RunStats{
			RunTimestamp:   start,
			TotalProcessed: len(profiles),
		},
	}

	var autoConfidenceSum float64
	for _, profile := range profiles {
		switch profile.QA.Decision {
		case model.DecisionAuto:
			result.Auto = append(result.Auto, profile)
			result.Stats.AutoCount++
			autoConfidenceSum += profile.QA.ProfileConfidence
		case model.DecisionReview:
			result.Review = append(result.Review, profile)
			result.Stats.ReviewCount++
		default:
			result.Hold = append(result.Hold, profile)
			result.Stats.HoldCount++
		}
	}
	if result.Stats.AutoCount > 0 {
		result.Stats.AvgAutoConfidence = Round3(autoConfidenceSum / float64(result.Stats.AutoCount))
	}

	for _, profile := range profiles {
		entry, err := p.store.UpsertProfile(ctx, profile)
		if err != nil {
			log.Error("pipeline: persist failed",
				zap.String("provider_id", profile.ProviderID), zap.Error(err))
			result.Stats.Degraded = true
			continue
		}
		result.Versions = append(result.Versions, entry)
	}

	if err := p.store.RecordRun(ctx, &result.Stats); err != nil {
		log.Error("pipeline: record run failed", zap.Error(err))
		result.Stats.Degraded = true
	}

	log.Info("pipeline: batch complete",
		zap.Int("auto", result.Stats.AutoCount),
		zap.Int("review", result.Stats.ReviewCount),
		zap.Int("hold", result.Stats.HoldCount),
		zap.Bool("degraded", result.Stats.Degraded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func addressText(row model.InputRow) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{row.Address, row.City, row.State} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func locality(row model.InputRow) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{row.City, row.State} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
