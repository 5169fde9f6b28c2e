// internal/pipeline/intent/classifier_test.go
package intent

import (
	"math"
	"testing"

	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg := config.PipelineConfig{
		DefaultYears:     10,
		DefaultRebalance: "year",
	}
	return NewClassifier(cfg, logger.NewTestLogger(t))
}

func exact(ticker string, ns models.Namespace) models.ResolvedEntity {
	return models.ResolvedEntity{
		Mention:    ticker,
		Ticker:     ticker,
		Namespace:  ns,
		Currency:   models.CurrencyFor(ns),
		Confidence: models.ConfidenceExact,
	}
}

func TestClassifyPortfolioWithInlineWeights(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("SBER.MOEX:0.4 GAZP.MOEX:0.3 LKOH.MOEX:0.3")
	require.Len(t, parsed.WeightedMentions, 3)

	entities := []models.ResolvedEntity{
		exact("SBER", models.NamespaceMOEX),
		exact("GAZP", models.NamespaceMOEX),
		exact("LKOH", models.NamespaceMOEX),
	}

	intent, stdErr := c.Classify(&models.Query{Text: "x"}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentPortfolio, intent.Kind)
	assert.Equal(t, "RUB", intent.Currency)
	assert.Equal(t, "year", intent.Rebalancing)
	assert.Equal(t, 10, intent.Period.Years)

	sum := 0.0
	for _, a := range intent.Allocations {
		sum += a.Weight
	}
	assert.LessOrEqual(t, math.Abs(sum-1), models.WeightTolerance)
	assert.InDelta(t, 0.4, intent.Allocations[0].Weight, 1e-9)
}

func TestClassifyPortfolioRescalesWeights(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("SBER.MOEX:2 GAZP.MOEX:1 LKOH.MOEX:1")
	entities := []models.ResolvedEntity{
		exact("SBER", models.NamespaceMOEX),
		exact("GAZP", models.NamespaceMOEX),
		exact("LKOH", models.NamespaceMOEX),
	}

	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.InDelta(t, 0.5, intent.Allocations[0].Weight, models.WeightTolerance)
	assert.InDelta(t, 0.25, intent.Allocations[1].Weight, models.WeightTolerance)
}

func TestClassifyPortfolioPercentWeights(t *testing.T) {
	parsed := Parse("AAPL.US:60% MSFT.US:40%")
	require.Len(t, parsed.WeightedMentions, 2)
	assert.InDelta(t, 0.6, parsed.WeightedMentions[0].Weight, 1e-9)

	c := testClassifier(t)
	entities := []models.ResolvedEntity{
		exact("AAPL", models.NamespaceUS),
		exact("MSFT", models.NamespaceUS),
	}
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentPortfolio, intent.Kind)
	assert.Equal(t, "USD", intent.Currency)
}

func TestClassifyPortfolioVocabularyAssignsEqualWeights(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("portfolio of apple and microsoft")
	require.True(t, parsed.HasPortfolioMarker)
	require.Equal(t, []string{"apple", "microsoft"}, parsed.Mentions)

	entities := []models.ResolvedEntity{
		exact("AAPL", models.NamespaceUS),
		exact("MSFT", models.NamespaceUS),
	}
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentPortfolio, intent.Kind)
	require.Len(t, intent.Allocations, 2)
	assert.InDelta(t, 0.5, intent.Allocations[0].Weight, 1e-9)
	assert.InDelta(t, 0.5, intent.Allocations[1].Weight, 1e-9)
}

func TestParsePercentFirstAllocations(t *testing.T) {
	parsed := Parse("Portfolio 60% stocks 40% bonds")
	require.Len(t, parsed.WeightedMentions, 2)
	assert.Equal(t, "stocks", parsed.WeightedMentions[0].Mention)
	assert.InDelta(t, 0.6, parsed.WeightedMentions[0].Weight, 1e-9)
	assert.Equal(t, "bonds", parsed.WeightedMentions[1].Mention)
	assert.InDelta(t, 0.4, parsed.WeightedMentions[1].Weight, 1e-9)

	// Connector words between pairs do not leak into mentions.
	parsed = Parse("portfolio 60% stocks and 40% bonds")
	require.Len(t, parsed.WeightedMentions, 2)
	assert.Equal(t, "stocks", parsed.WeightedMentions[0].Mention)

	// A lone trailing percent outside portfolio vocabulary keeps its
	// plain reading.
	parsed = Parse("apple up 40%")
	assert.Empty(t, parsed.WeightedMentions)
	assert.False(t, parsed.HasPortfolioMarker)
}

func TestClassifySingleAsset(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("Tell me about Apple over 5 years")
	require.Equal(t, 5, parsed.Years)

	entities := []models.ResolvedEntity{exact("AAPL", models.NamespaceUS)}
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentSingleAsset, intent.Kind)
	assert.Equal(t, 5, intent.Period.Years)
	assert.Equal(t, "USD", intent.Currency)
}

func TestClassifyComparison(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("Compare Apple vs Microsoft")
	require.Len(t, parsed.Mentions, 2)

	entities := []models.ResolvedEntity{
		exact("AAPL", models.NamespaceUS),
		exact("MSFT", models.NamespaceUS),
	}
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentComparison, intent.Kind)
	assert.Len(t, intent.Entities, 2)
}

func TestClassifyComparisonMarkerBeatsSingleEntity(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("compare apple")
	require.True(t, parsed.HasComparisonMarker)

	entities := []models.ResolvedEntity{exact("AAPL", models.NamespaceUS)}
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentComparison, intent.Kind)
}

func TestParseInflationRegions(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"What is inflation in russia?", "RUB"},
		{"inflation in germany", "EUR"},
		{"inflation in the united states", "USD"},
		{"inflation", "USD"},
	}
	for _, tt := range tests {
		parsed := Parse(tt.text)
		assert.Equal(t, tt.want, parsed.MacroCurrency, tt.text)
	}
}

func TestClassifyMacroInflation(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("What is inflation in russia for 10 years?")
	require.Equal(t, "RUB", parsed.MacroCurrency)

	intent, stdErr := c.Classify(&models.Query{}, parsed, nil)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentMacro, intent.Kind)
	assert.Equal(t, "RUB.INFL", intent.MacroCode)
	assert.Equal(t, "RUB", intent.Currency)
}

func TestClassifyMacroFromFXEntity(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("USDRUB.FX")
	entities := []models.ResolvedEntity{exact("USDRUB", models.NamespaceFX)}

	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentMacro, intent.Kind)
	assert.Equal(t, "USDRUB.FX", intent.MacroCode)
}

func TestClassifyAmbiguousShortCircuits(t *testing.T) {
	c := testClassifier(t)

	entities := []models.ResolvedEntity{{
		Mention:    "sber",
		Confidence: models.ConfidenceAmbiguous,
		Candidates: []models.Candidate{
			{Ticker: "SBER", Namespace: models.NamespaceMOEX, Score: 0.9},
			{Ticker: "SBERP", Namespace: models.NamespaceMOEX, Score: 0.88},
		},
	}}

	_, stdErr := c.Classify(&models.Query{}, Parse("sber"), entities)
	require.NotNil(t, stdErr)
	assert.Equal(t, commonerrors.ErrCodeAmbiguousEntity, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, []string{"SBER.MOEX", "SBERP.MOEX"}, stdErr.Metadata["candidates"])
}

func TestClassifyUnresolvedShortCircuits(t *testing.T) {
	c := testClassifier(t)

	entities := []models.ResolvedEntity{
		exact("AAPL", models.NamespaceUS),
		{Mention: "frobnicator", Confidence: models.ConfidenceUnresolved, Reason: "no directory entry matched"},
	}

	_, stdErr := c.Classify(&models.Query{}, Parse("apple vs frobnicator"), entities)
	require.NotNil(t, stdErr)
	assert.Equal(t, commonerrors.ErrCodeUnknownEntity, stdErr.Code)
}

func TestClassifyCurrencyOverridePriority(t *testing.T) {
	c := testClassifier(t)

	parsed := Parse("Apple in eur")
	require.Equal(t, "EUR", parsed.Currency)

	entities := []models.ResolvedEntity{exact("AAPL", models.NamespaceUS)}

	// Explicit clause beats entity currency.
	intent, stdErr := c.Classify(&models.Query{}, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, "EUR", intent.Currency)

	// Caller override beats the clause.
	q := &models.Query{Overrides: &models.QueryOverride{Currency: "GBP"}}
	intent, stdErr = c.Classify(q, parsed, entities)
	require.Nil(t, stdErr)
	assert.Equal(t, "GBP", intent.Currency)
}

func TestClassifyOverrideWeightsPromoteToPortfolio(t *testing.T) {
	c := testClassifier(t)

	entities := []models.ResolvedEntity{
		exact("AAPL", models.NamespaceUS),
		exact("MSFT", models.NamespaceUS),
	}
	q := &models.Query{Overrides: &models.QueryOverride{Weights: []float64{0.7, 0.3}}}

	intent, stdErr := c.Classify(q, Parse("apple and microsoft"), entities)
	require.Nil(t, stdErr)
	assert.Equal(t, models.IntentPortfolio, intent.Kind)
	assert.InDelta(t, 0.7, intent.Allocations[0].Weight, 1e-9)
}

func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name    string
		in      []float64
		want    []float64
		wantErr bool
	}{
		{"already normalized", []float64{0.4, 0.3, 0.3}, []float64{0.4, 0.3, 0.3}, false},
		{"rescaled", []float64{2, 1, 1}, []float64{0.5, 0.25, 0.25}, false},
		{"negative", []float64{-0.5, 1.5}, nil, true},
		{"zero sum", []float64{0, 0}, nil, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWeights(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			sum := 0.0
			for i, w := range got {
				assert.InDelta(t, tt.want[i], w, models.WeightTolerance)
				sum += w
			}
			assert.LessOrEqual(t, math.Abs(sum-1), models.WeightTolerance)
		})
	}
}

func TestEqualWeightsSumToOne(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		w := EqualWeights(n)
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		assert.LessOrEqual(t, math.Abs(sum-1), models.WeightTolerance, "n=%d", n)
	}
}
