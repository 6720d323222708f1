package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/config"
	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/internal/store"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

// memStore is an in-memory store.Store for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	profiles  map[string]*model.ProviderProfile
	upserts   []string
	runs      []model.RunStats
	nextID    int64
	upsertErr error
	runErr    error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{profiles: make(map[string]*model.ProviderProfile)}
}

func (m *memStore) UpsertProfile(_ context.Context, p *model.ProviderProfile) (*model.VersionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.nextID++
	m.profiles[p.ProviderID] = p
	m.upserts = append(m.upserts, p.ProviderID)
	return &model.VersionEntry{ID: m.nextID, ProviderID: p.ProviderID, Snapshot: p}, nil
}

func (m *memStore) GetProfile(_ context.Context, providerID string) (*model.ProviderProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[providerID], nil
}

func (m *memStore) ListByDecision(context.Context, model.Decision) ([]*model.ProviderProfile, error) {
	return nil, nil
}

func (m *memStore) ListVersions(context.Context, string) ([]model.VersionEntry, error) {
	return nil, nil
}

func (m *memStore) RecordRun(_ context.Context, stats *model.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runErr != nil {
		return m.runErr
	}
	stats.RunID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, *stats)
	return nil
}

func (m *memStore) ListRuns(context.Context, int) ([]model.RunStats, error) { return m.runs, nil }

func (m *memStore) DirectoryStats(context.Context) (*model.DirectoryStats, error) {
	return &model.DirectoryStats{}, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

type errRegistry struct{}

func (errRegistry) FetchIdentity(context.Context, string) (*npi.IdentityRecord, error) {
	return nil, eris.New("registry unavailable")
}

type errPlaces struct{}

func (errPlaces) VerifyAddress(context.Context, string) (*places.AddressResult, error) {
	return nil, eris.New("places unavailable")
}

func (errPlaces) FindPlace(context.Context, string, string) (*places.PlaceResult, error) {
	return nil, eris.New("places unavailable")
}

type panicEnricher struct{}

func (panicEnricher) Enrich(context.Context, enrich.Subject) (model.Enrichment, error) {
	panic("enricher exploded")
}

func testConfig() *config.Config {
	return &config.Config{
		QA:    config.QAConfig{THAuto: 0.90, THReview: 0.60},
		Batch: config.BatchConfig{MaxConcurrent: 3},
	}
}

func testPipeline(st store.Store) *Pipeline {
	return New(testConfig(), st, &StubRegistryClient{}, &StubPlacesClient{}, &StubEnricher{}, &StubFetcher{})
}

func TestProcessRecord_HappyPath(t *testing.T) {
	p := testPipeline(newMemStore())
	row := model.InputRow{
		ProviderID: "P001",
		FullName:   "John Smith",
		NPI:        "1234567890",
		Phone:      "(217) 555-0100",
		Address:    "100 Main St",
		City:       "Springfield",
		State:      "IL",
	}

	profile := p.ProcessRecord(context.Background(), row)

	require.NotNil(t, profile)
	assert.Equal(t, model.IdentityNPIVerified, profile.IdentityStatus)
	assert.Equal(t, "Dr. Stub Provider", profile.Name)
	require.NotNil(t, profile.QA)
	assert.NotEmpty(t, profile.QA.ComponentScores)
	assert.NotEqual(t, model.Decision(""), profile.QA.Decision)
}

func TestProcessRecord_CollaboratorFailuresDegrade(t *testing.T) {
	p := New(testConfig(), newMemStore(), errRegistry{}, errPlaces{}, &StubEnricher{}, &StubFetcher{})
	row := model.InputRow{ProviderID: "P002", FullName: "Jane Doe", NPI: "1234567890"}

	profile := p.ProcessRecord(context.Background(), row)

	require.NotNil(t, profile)
	assert.Equal(t, model.IdentityNPIUnverified, profile.IdentityStatus)
	assert.Equal(t, "Jane Doe", profile.Name)
	require.NotNil(t, profile.QA)
}

func TestProcessRecord_PanicFallsBack(t *testing.T) {
	st := newMemStore()
	st.profiles["P003"] = &model.ProviderProfile{
		ProviderID: "P003",
		Specialty:  "Cardiology",
	}
	p := New(testConfig(), st, &StubRegistryClient{}, &StubPlacesClient{}, panicEnricher{}, &StubFetcher{})
	row := model.InputRow{ProviderID: "P003", FullName: "Jane Doe", NPI: "1234567890"}

	profile := p.ProcessRecord(context.Background(), row)

	require.NotNil(t, profile)
	require.NotNil(t, profile.QA)
	assert.Equal(t, model.DecisionHold, profile.QA.Decision)
	assert.Contains(t, profile.QA.Reasons, model.ReasonProcessingError)
	// previous canonical specialty carried forward
	assert.Equal(t, "Cardiology", profile.Specialty)
	assert.Equal(t, model.IdentityNPIUnverified, profile.IdentityStatus)
}

func TestProcessBatch_OrderStable(t *testing.T) {
	st := newMemStore()
	p := testPipeline(st)

	rows := make([]model.InputRow, 20)
	ids := make([]string, 20)
	for i := range rows {
		id := fmt.Sprintf("P%03d", i)
		rows[i] = model.InputRow{ProviderID: id, FullName: "Provider " + id, NPI: "1234567890"}
		ids[i] = id
	}

	result, err := p.ProcessBatch(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, result.Profiles, 20)
	for i, profile := range result.Profiles {
		assert.Equal(t, ids[i], profile.ProviderID)
	}
	// persisted sequentially in input order
	assert.Equal(t, ids, st.upserts)
	assert.Len(t, result.Versions, 20)
}

func TestProcessBatch_StatsAndPartitions(t *testing.T) {
	st := newMemStore()
	p := testPipeline(st)

	rows := []model.InputRow{
		{ProviderID: "P001", FullName: "John Smith", NPI: "1234567890", Address: "100 Main St", City: "Springfield", State: "IL", Phone: "(217) 555-0100"},
		{ProviderID: "P002", FullName: "Jane Doe"},
	}

	result, err := p.ProcessBatch(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.TotalProcessed)
	assert.Equal(t, result.Stats.AutoCount, len(result.Auto))
	assert.Equal(t, result.Stats.ReviewCount, len(result.Review))
	assert.Equal(t, result.Stats.HoldCount, len(result.Hold))
	assert.Equal(t, 2, result.Stats.AutoCount+result.Stats.ReviewCount+result.Stats.HoldCount)
	assert.False(t, result.Stats.Degraded)

	// run recorded with an assigned ID
	require.Len(t, st.runs, 1)
	assert.Equal(t, int64(1), result.Stats.RunID)
}

func TestProcessBatch_StoreFailureDegrades(t *testing.T) {
	st := newMemStore()
	st.upsertErr = eris.New("disk full")
	p := testPipeline(st)

	result, err := p.ProcessBatch(context.Background(), []model.InputRow{
		{ProviderID: "P001", FullName: "John Smith"},
	})
	require.NoError(t, err)

	assert.True(t, result.Stats.Degraded)
	assert.Empty(t, result.Versions)
	assert.Len(t, result.Profiles, 1)
}
