// internal/pipeline/resolver/resolver_test.go
package resolver

import (
	"context"
	"testing"

	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/directory"
	"finsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLoader struct {
	snap *directory.Snapshot
	err  error
}

func (s *staticLoader) Load(context.Context) (*directory.Snapshot, error) {
	return s.snap, s.err
}

func testSnapshot() *directory.Snapshot {
	return directory.NewSnapshot([]directory.Entry{
		{Ticker: "AAPL", Namespace: models.NamespaceUS, Name: "Apple Inc", Currency: "USD"},
		{Ticker: "MSFT", Namespace: models.NamespaceUS, Name: "Microsoft Corporation", Currency: "USD"},
		{Ticker: "SBER", Namespace: models.NamespaceMOEX, Name: "Sberbank", Currency: "RUB"},
		{Ticker: "SBERP", Namespace: models.NamespaceMOEX, Name: "Sberbank Preferred", Currency: "RUB"},
		{Ticker: "GAZP", Namespace: models.NamespaceMOEX, Name: "Gazprom", Currency: "RUB"},
		{Ticker: "LKOH", Namespace: models.NamespaceMOEX, Name: "Lukoil", Currency: "RUB"},
		{Ticker: "XAU", Namespace: models.NamespaceCOMM, Name: "Gold", Currency: "USD"},
	})
}

func testResolver(t *testing.T, loader SnapshotLoader) *Resolver {
	t.Helper()
	cfg := config.PipelineConfig{
		FuzzyThreshold: 0.72,
		FuzzyMargin:    0.08,
		MaxCandidates:  5,
	}
	return New(loader, cfg, logger.NewTestLogger(t))
}

func TestResolveAlias(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"Apple"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL.US", got[0].ID())
	assert.Equal(t, models.ConfidenceExact, got[0].Confidence)
	assert.Equal(t, "USD", got[0].Currency)
}

func TestResolveQualifiedIdentifier(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	tests := []struct {
		mention string
		wantID  string
	}{
		{"SBER.MOEX", "SBER.MOEX"},
		{"aapl.us", "AAPL.US"},
		{"XAU.COMM", "XAU.COMM"},
	}

	for _, tt := range tests {
		t.Run(tt.mention, func(t *testing.T) {
			got := r.Resolve(context.Background(), []string{tt.mention}, nil)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantID, got[0].ID())
			assert.Equal(t, models.ConfidenceExact, got[0].Confidence)
		})
	}
}

func TestResolveQualifiedIdentifierNotListed(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"ZZZZ.US"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.ConfidenceUnresolved, got[0].Confidence)
	assert.NotEmpty(t, got[0].Reason)
}

func TestResolveBareTicker(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"GAZP"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "GAZP.MOEX", got[0].ID())
	assert.Equal(t, models.ConfidenceExact, got[0].Confidence)
}

func TestResolveFuzzyTypo(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"Gazprm"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.ConfidenceFuzzy, got[0].Confidence)
	assert.Equal(t, "GAZP.MOEX", got[0].ID())
	assert.NotEmpty(t, got[0].Candidates)
}

func TestResolveAmbiguous(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	// "Sberban" sits between "Sberbank" and "Sberbank Preferred" without
	// a decisive score lead.
	got := r.Resolve(context.Background(), []string{"Sberban"}, nil)
	require.Len(t, got, 1)
	if got[0].Confidence == models.ConfidenceAmbiguous {
		assert.GreaterOrEqual(t, len(got[0].Candidates), 2)
		assert.False(t, got[0].Usable())
	} else {
		// A decisive margin yields fuzzy; either way the top candidate
		// must be Sberbank.
		assert.Equal(t, models.ConfidenceFuzzy, got[0].Confidence)
		assert.Equal(t, "SBER.MOEX", got[0].ID())
	}
}

func TestResolveUnknownMention(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"frobnicator"}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, models.ConfidenceUnresolved, got[0].Confidence)
	assert.Empty(t, got[0].ID())
}

func TestResolveSessionHintWins(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	hints := &models.SessionHints{
		Resolved: map[string]string{"sberban": "SBERP.MOEX"},
	}
	got := r.Resolve(context.Background(), []string{"Sberban"}, hints)
	require.Len(t, got, 1)
	assert.Equal(t, "SBERP.MOEX", got[0].ID())
	assert.Equal(t, models.ConfidenceExact, got[0].Confidence)
}

func TestResolveDirectoryUnavailable(t *testing.T) {
	loader := &staticLoader{err: commonerrors.NewDirectoryUnavailableError(assert.AnError)}
	r := testResolver(t, loader)

	got := r.Resolve(context.Background(), []string{"Apple", "Gold"}, nil)
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, models.ConfidenceUnresolved, e.Confidence)
		assert.Equal(t, "symbol directory unavailable", e.Reason)
	}
}

func TestResolvePreservesOrder(t *testing.T) {
	r := testResolver(t, &staticLoader{snap: testSnapshot()})

	got := r.Resolve(context.Background(), []string{"Apple", "Gold", "GAZP"}, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "Apple", got[0].Mention)
	assert.Equal(t, "Gold", got[1].Mention)
	assert.Equal(t, "GAZP", got[2].Mention)
	assert.Equal(t, "XAU.COMM", got[1].ID())
}
