// internal/pipeline/intent/classifier.go
package intent

import (
	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"
)

// Classifier turns a parsed query plus resolved entities into a typed
// intent. Rule order: portfolio allocations or vocabulary win, then
// macro readings, then comparison vocabulary and the usable entity
// count decide between single asset and comparison.
type Classifier struct {
	cfg    config.PipelineConfig
	logger logger.Logger
}

func NewClassifier(cfg config.PipelineConfig, log logger.Logger) *Classifier {
	return &Classifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "intent"}),
	}
}

// Classify builds the intent. Entities are index-aligned with
// parsed.WeightedMentions when allocations are present, otherwise with
// parsed.Mentions.
func (c *Classifier) Classify(q *models.Query, parsed *ParsedQuery, entities []models.ResolvedEntity) (*models.Intent, *commonerrors.StandardError) {
	// Ambiguity always stops classification: the user has to pick.
	for _, e := range entities {
		if e.Confidence == models.ConfidenceAmbiguous {
			ids := make([]string, len(e.Candidates))
			for i, cand := range e.Candidates {
				ids[i] = cand.ID()
			}
			return nil, commonerrors.NewAmbiguousEntityError(e.Mention, ids)
		}
	}

	if len(parsed.WeightedMentions) > 0 {
		return c.classifyPortfolio(q, parsed, entities)
	}

	if parsed.MacroCurrency != "" {
		return &models.Intent{
			Kind:      models.IntentMacro,
			Currency:  parsed.MacroCurrency,
			Period:    c.period(q, parsed),
			MacroCode: parsed.MacroCurrency + ".INFL",
		}, nil
	}

	// Unresolved mentions short-circuit into a clarification, even when
	// other mentions resolved fine.
	for _, e := range entities {
		if e.Confidence == models.ConfidenceUnresolved {
			return nil, commonerrors.NewUnknownEntityError(e.Mention, e.Reason)
		}
	}

	usable := usableEntities(entities)
	if len(usable) == 0 {
		return nil, commonerrors.NewIntentUnsupportedError("no instrument mention found in query")
	}

	// Explicit weight overrides promote an entity list to a portfolio.
	if q.Overrides != nil && len(q.Overrides.Weights) == len(usable) && len(usable) > 1 {
		return c.buildPortfolio(q, parsed, usable, q.Overrides.Weights)
	}

	// Portfolio vocabulary without inline weights gets an equal split.
	if parsed.HasPortfolioMarker {
		return c.buildPortfolio(q, parsed, usable, EqualWeights(len(usable)))
	}

	// A macro series mention reads as a macro intent even without the
	// inflation keyword, e.g. "USDRUB.FX".
	if len(usable) == 1 && !parsed.HasComparisonMarker &&
		(usable[0].Namespace == models.NamespaceINFL || usable[0].Namespace == models.NamespaceFX) {
		return &models.Intent{
			Kind:      models.IntentMacro,
			Entities:  usable,
			Currency:  c.currency(q, parsed, usable),
			Period:    c.period(q, parsed),
			MacroCode: usable[0].ID(),
		}, nil
	}

	if len(usable) == 1 && !parsed.HasComparisonMarker {
		return &models.Intent{
			Kind:     models.IntentSingleAsset,
			Entities: usable,
			Currency: c.currency(q, parsed, usable),
			Period:   c.period(q, parsed),
		}, nil
	}

	return &models.Intent{
		Kind:     models.IntentComparison,
		Entities: usable,
		Currency: c.currency(q, parsed, usable),
		Period:   c.period(q, parsed),
	}, nil
}

func (c *Classifier) classifyPortfolio(q *models.Query, parsed *ParsedQuery, entities []models.ResolvedEntity) (*models.Intent, *commonerrors.StandardError) {
	for _, e := range entities {
		if !e.Usable() {
			return nil, commonerrors.NewUnknownEntityError(e.Mention, e.Reason)
		}
	}

	weights := make([]float64, len(parsed.WeightedMentions))
	for i, wm := range parsed.WeightedMentions {
		weights[i] = wm.Weight
	}
	return c.buildPortfolio(q, parsed, entities, weights)
}

func (c *Classifier) buildPortfolio(q *models.Query, parsed *ParsedQuery, entities []models.ResolvedEntity, weights []float64) (*models.Intent, *commonerrors.StandardError) {
	if len(weights) != len(entities) {
		return nil, commonerrors.NewInvalidWeightsError("weight count does not match asset count")
	}

	normalized, err := NormalizeWeights(weights)
	if err != nil {
		return nil, commonerrors.NewInvalidWeightsError(err.Error())
	}

	allocations := make([]models.Allocation, len(entities))
	for i, e := range entities {
		allocations[i] = models.Allocation{Entity: e, Weight: normalized[i]}
	}

	rebalancing := parsed.Rebalancing
	if rebalancing == "" {
		rebalancing = c.cfg.DefaultRebalance
	}

	return &models.Intent{
		Kind:        models.IntentPortfolio,
		Entities:    entities,
		Allocations: allocations,
		Currency:    c.currency(q, parsed, entities),
		Period:      c.period(q, parsed),
		Rebalancing: rebalancing,
	}, nil
}

// currency picks the report currency: caller override, then an explicit
// "in XXX" clause, then the first entity's trading currency.
func (c *Classifier) currency(q *models.Query, parsed *ParsedQuery, entities []models.ResolvedEntity) string {
	if q.Overrides != nil && q.Overrides.Currency != "" {
		return q.Overrides.Currency
	}
	if parsed.Currency != "" {
		return parsed.Currency
	}
	if len(entities) > 0 {
		if entities[0].Currency != "" {
			return entities[0].Currency
		}
		return models.CurrencyFor(entities[0].Namespace)
	}
	return "USD"
}

func (c *Classifier) period(q *models.Query, parsed *ParsedQuery) models.Period {
	if q.Overrides != nil && q.Overrides.Years > 0 {
		return models.Period{Years: q.Overrides.Years}
	}
	if parsed.Years > 0 {
		return models.Period{Years: parsed.Years}
	}
	return models.Period{Years: c.cfg.DefaultYears}
}

func usableEntities(entities []models.ResolvedEntity) []models.ResolvedEntity {
	var out []models.ResolvedEntity
	for _, e := range entities {
		if e.Usable() {
			out = append(out, e)
		}
	}
	return out
}
