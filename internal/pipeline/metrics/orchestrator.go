// internal/pipeline/metrics/orchestrator.go
package metrics

import (
	"context"
	"fmt"
	"time"

	"finsight/internal/analytics"
	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	"golang.org/x/sync/errgroup"
)

// Provider is the analytics surface the orchestrator consumes.
type Provider interface {
	DescribeAsset(ctx context.Context, symbol string, years int, currency string) (*analytics.AssetDescribeResponse, error)
	DescribePortfolio(ctx context.Context, req *analytics.PortfolioDescribeRequest) (*analytics.PortfolioDescribeResponse, error)
	WealthSeries(ctx context.Context, symbol string, years int, currency string) ([]analytics.SeriesObservation, error)
}

// Orchestrator computes the metric bundle for a classified intent. It is
// the only component that sees raw provider values; everything past it
// operates on the canonical MetricSet shape.
type Orchestrator struct {
	provider Provider
	cfg      config.PipelineConfig
	logger   logger.Logger
}

func NewOrchestrator(provider Provider, cfg config.PipelineConfig, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "metrics"}),
	}
}

// Compute dispatches to the strategy for the intent variant.
func (o *Orchestrator) Compute(ctx context.Context, intent *models.Intent) (*models.MetricBundle, error) {
	switch intent.Kind {
	case models.IntentSingleAsset:
		return o.computeSingle(ctx, intent)
	case models.IntentComparison:
		return o.computeComparison(ctx, intent)
	case models.IntentPortfolio:
		return o.computePortfolio(ctx, intent)
	case models.IntentMacro:
		return o.computeMacro(ctx, intent)
	default:
		return nil, commonerrors.NewIntentUnsupportedError(fmt.Sprintf("no computation strategy for intent %q", intent.Kind))
	}
}

func (o *Orchestrator) computeSingle(ctx context.Context, intent *models.Intent) (*models.MetricBundle, error) {
	entity := intent.Entities[0]

	set, err := o.describeOne(ctx, entity.ID(), intent)
	if err != nil {
		return nil, err
	}
	o.attachWealthSeries(ctx, entity.ID(), intent, set)

	return &models.MetricBundle{
		Currency: intent.Currency,
		Period:   intent.Period,
		Entities: []models.EntityMetrics{{Entity: entity, Metrics: set}},
	}, nil
}

// attachWealthSeries adds the growth-of-wealth series to a single-asset
// set. The series is decoration on top of the headline metrics, so a
// provider failure here only logs; it never fails the computation.
func (o *Orchestrator) attachWealthSeries(ctx context.Context, symbol string, intent *models.Intent, set *models.MetricSet) {
	observations, err := o.provider.WealthSeries(ctx, symbol, intent.Period.Years, intent.Currency)
	if err != nil {
		o.logger.Warn("wealth series unavailable", map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		})
		return
	}

	points := make([]models.SeriesPoint, 0, len(observations))
	for _, obs := range observations {
		t, ok := parseDateString(obs.Date)
		if !ok {
			continue
		}
		points = append(points, models.SeriesPoint{Date: t, Value: obs.Value})
	}
	if len(points) == 0 {
		return
	}
	set.Set(models.MetricWealthSeries, models.Series(points))
}

// computeComparison fans out one provider call per entity and joins all
// of them before returning. A single entity's failure becomes a marked
// entry plus a note; only all entities failing is a pipeline error.
func (o *Orchestrator) computeComparison(ctx context.Context, intent *models.Intent) (*models.MetricBundle, error) {
	entries := make([]models.EntityMetrics, len(intent.Entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, entity := range intent.Entities {
		i, entity := i, entity
		g.Go(func() error {
			set, err := o.describeOne(gctx, entity.ID(), intent)
			if err != nil {
				o.logger.Warn("entity computation failed", map[string]interface{}{
					"entity": entity.ID(),
					"error":  err.Error(),
				})
				entries[i] = models.EntityMetrics{
					Entity: entity,
					Failed: true,
					Note:   fmt.Sprintf("metrics unavailable for %s", entity.ID()),
				}
				return nil
			}
			entries[i] = models.EntityMetrics{Entity: entity, Metrics: set}
			return nil
		})
	}
	_ = g.Wait()

	bundle := &models.MetricBundle{
		Currency: intent.Currency,
		Period:   intent.Period,
		Entities: entries,
	}

	failed := 0
	for _, e := range entries {
		if e.Failed {
			failed++
		}
	}
	if failed == len(entries) {
		return nil, commonerrors.NewDataUnavailableError("all", "every entity computation failed")
	}
	if failed > 0 {
		bundle.Notes = append(bundle.Notes, fmt.Sprintf("%d of %d entities could not be computed", failed, len(entries)))
	}

	return bundle, nil
}

func (o *Orchestrator) computePortfolio(ctx context.Context, intent *models.Intent) (*models.MetricBundle, error) {
	assets := make([]string, len(intent.Allocations))
	for i, a := range intent.Allocations {
		assets[i] = a.Entity.ID()
	}

	resp, err := o.provider.DescribePortfolio(ctx, &analytics.PortfolioDescribeRequest{
		Assets:      assets,
		Weights:     intent.Weights(),
		Currency:    intent.Currency,
		Years:       intent.Period.Years,
		Rebalancing: intent.Rebalancing,
	})
	if err != nil {
		return nil, err
	}

	aggregate := buildMetricSet(resp.Rows, intent.Period.Window())
	applyDerivedRatios(aggregate, o.cfg.RiskFreeRate)

	bundle := &models.MetricBundle{
		Currency:  intent.Currency,
		Period:    intent.Period,
		Aggregate: aggregate,
		Notes:     aggregate.Notes,
	}

	if len(resp.FirstDates) > 0 {
		bundle.FirstDates = make(map[string]time.Time, len(resp.FirstDates))
		for symbol, raw := range resp.FirstDates {
			if t, ok := parseDateString(raw); ok {
				bundle.FirstDates[symbol] = t
			}
		}
	}

	return bundle, nil
}

func (o *Orchestrator) computeMacro(ctx context.Context, intent *models.Intent) (*models.MetricBundle, error) {
	set, err := o.describeOne(ctx, intent.MacroCode, intent)
	if err != nil {
		return nil, err
	}

	return &models.MetricBundle{
		Currency:  intent.Currency,
		Period:    intent.Period,
		Aggregate: set,
		Notes:     set.Notes,
	}, nil
}

func (o *Orchestrator) describeOne(ctx context.Context, symbol string, intent *models.Intent) (*models.MetricSet, error) {
	resp, err := o.provider.DescribeAsset(ctx, symbol, intent.Period.Years, intent.Currency)
	if err != nil {
		return nil, err
	}

	set := buildMetricSet(resp.Rows, intent.Period.Window())
	applyDerivedRatios(set, o.cfg.RiskFreeRate)

	for _, note := range set.Notes {
		o.logger.Info("window substitution", map[string]interface{}{
			"symbol": symbol,
			"note":   note,
		})
	}

	return set, nil
}
