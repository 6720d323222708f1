package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/model"
)

type staticEnricher struct {
	out model.Enrichment
	err error
}

func (s *staticEnricher) Enrich(context.Context, Subject) (model.Enrichment, error) {
	return s.out, s.err
}

func TestChain_EarlierStrategyWins(t *testing.T) {
	first := &staticEnricher{out: model.Enrichment{
		Specialty: model.FieldValue{Value: "Cardiology", Confidence: 0.75, Source: "NPI Registry"},
	}}
	second := &staticEnricher{out: model.Enrichment{
		Specialty: model.FieldValue{Value: "Dermatology", Confidence: 0.7, Source: "https://example.com"},
		Services:  model.ListFieldValue{Values: []string{"Skin Checks"}, Confidence: 0.8},
	}}

	out, err := Chain{first, second}.Enrich(context.Background(), Subject{})
	require.NoError(t, err)

	// the first strategy's specialty survives; the gap is filled by the second
	assert.Equal(t, "Cardiology", out.Specialty.Value)
	assert.Equal(t, "NPI Registry", out.Specialty.Source)
	assert.Equal(t, []string{"Skin Checks"}, out.Services.Values)
}

func TestChain_StrategyErrorSkipped(t *testing.T) {
	failing := &staticEnricher{err: eris.New("network down")}
	working := &staticEnricher{out: model.Enrichment{
		Education: model.FieldValue{Value: "MD", Confidence: 0.7},
	}}

	out, err := Chain{failing, working}.Enrich(context.Background(), Subject{})
	require.NoError(t, err)
	assert.Equal(t, "MD", out.Education.Value)
}

func TestChain_Empty(t *testing.T) {
	out, err := Chain{}.Enrich(context.Background(), Subject{})
	require.NoError(t, err)
	assert.Equal(t, model.Enrichment{}, out)
}
