// internal/pipeline/report/assembler.go
package report

import (
	"fmt"
	"sort"
	"strings"

	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/models"
)

// Assembler turns a metric bundle into an ordered, render-ready report.
// It never calls the provider and never fails on unavailable metrics;
// those render as "n/a" in their usual position.
type Assembler struct {
	style  Style
	logger logger.Logger
}

func NewAssembler(log logger.Logger) *Assembler {
	return NewStyledAssembler(DefaultStyle(), log)
}

// NewStyledAssembler builds an assembler with explicit rendering
// conventions. The style is copied in; later requests cannot change it.
func NewStyledAssembler(style Style, log logger.Logger) *Assembler {
	return &Assembler{
		style:  style,
		logger: log.WithFields(map[string]interface{}{"component": "report"}),
	}
}

// Assemble builds the report for a computed intent.
func (a *Assembler) Assemble(intent *models.Intent, bundle *models.MetricBundle) (*models.Report, error) {
	switch intent.Kind {
	case models.IntentSingleAsset:
		return a.assembleSingle(intent, bundle), nil
	case models.IntentComparison:
		return a.assembleComparison(intent, bundle), nil
	case models.IntentPortfolio:
		return a.assemblePortfolio(intent, bundle), nil
	case models.IntentMacro:
		return a.assembleMacro(intent, bundle), nil
	default:
		return nil, commonerrors.NewIntentUnsupportedError(fmt.Sprintf("no report layout for intent %q", intent.Kind))
	}
}

func (a *Assembler) assembleSingle(intent *models.Intent, bundle *models.MetricBundle) *models.Report {
	entry := bundle.Entities[0]
	set := entry.Metrics

	report := &models.Report{
		Title:  fmt.Sprintf("%s (%s, %s)", entry.Entity.ID(), intent.Period.Window(), intent.Currency),
		Intent: intent.Kind,
	}

	report.Sections = append(report.Sections, a.overviewSection(entry.Entity, intent, set))
	report.Sections = append(report.Sections, a.metricSections(set)...)
	if series := set.Get(models.MetricWealthSeries); series.Available {
		report.Sections = append(report.Sections, models.Section{
			Title: "Wealth Growth",
			Body:  line("Growth of investment", a.style.growth(series)),
		})
	}
	appendNotes(report, bundle, set)

	report.Charts = []models.ChartRequest{
		{Kind: models.ChartCumulativeReturn, Symbols: []string{entry.Entity.ID()}, Currency: intent.Currency, Years: intent.Period.Years},
		{Kind: models.ChartDrawdown, Symbols: []string{entry.Entity.ID()}, Currency: intent.Currency, Years: intent.Period.Years},
	}

	return report
}

// assembleComparison keeps one section per entity in intent order. A
// failed entity keeps its slot with a short failure note so the reader
// sees which constituent is missing and why the table is shorter.
func (a *Assembler) assembleComparison(intent *models.Intent, bundle *models.MetricBundle) *models.Report {
	ids := make([]string, 0, len(bundle.Entities))
	for _, e := range bundle.Entities {
		if !e.Failed {
			ids = append(ids, e.Entity.ID())
		}
	}

	report := &models.Report{
		Title:  fmt.Sprintf("Comparison: %s (%s, %s)", strings.Join(entityIDs(bundle.Entities), " vs "), intent.Period.Window(), intent.Currency),
		Intent: intent.Kind,
	}

	for _, entry := range bundle.Entities {
		if entry.Failed {
			report.Sections = append(report.Sections, models.Section{
				Title: entry.Entity.ID(),
				Body:  entry.Note,
			})
			continue
		}
		report.Sections = append(report.Sections, models.Section{
			Title: entry.Entity.ID(),
			Body:  joinLines(a.metricLines(entry.Metrics)),
		})
	}
	appendNotes(report, bundle, nil)

	if len(ids) > 0 {
		report.Charts = []models.ChartRequest{
			{Kind: models.ChartCumulativeReturn, Symbols: ids, Currency: intent.Currency, Years: intent.Period.Years},
		}
	}

	return report
}

func (a *Assembler) assemblePortfolio(intent *models.Intent, bundle *models.MetricBundle) *models.Report {
	report := &models.Report{
		Title:  fmt.Sprintf("Portfolio (%s, %s)", intent.Period.Window(), intent.Currency),
		Intent: intent.Kind,
	}

	header := []string{
		line("Base currency", intent.Currency),
		line("Rebalancing", intent.Rebalancing),
		line("Period", intent.Period.Window()),
	}
	for _, alloc := range intent.Allocations {
		header = append(header, line(alloc.Entity.ID(), a.style.weight(alloc.Weight)))
	}
	if len(bundle.FirstDates) > 0 {
		header = append(header, "Earliest data:")
		ids := make([]string, 0, len(bundle.FirstDates))
		for id := range bundle.FirstDates {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			header = append(header, line("  "+id, a.style.calendar(bundle.FirstDates[id])))
		}
	}
	report.Sections = append(report.Sections, models.Section{Title: "Composition", Body: joinLines(header)})

	report.Sections = append(report.Sections, a.metricSections(bundle.Aggregate)...)
	appendNotes(report, bundle, bundle.Aggregate)

	symbols := make([]string, len(intent.Allocations))
	for i, alloc := range intent.Allocations {
		symbols[i] = alloc.Entity.ID()
	}
	report.Charts = []models.ChartRequest{
		{Kind: models.ChartAllocation, Symbols: symbols, Weights: intent.Weights(), Currency: intent.Currency, Years: intent.Period.Years},
		{Kind: models.ChartCumulativeReturn, Symbols: symbols, Weights: intent.Weights(), Currency: intent.Currency, Years: intent.Period.Years},
	}

	return report
}

func (a *Assembler) assembleMacro(intent *models.Intent, bundle *models.MetricBundle) *models.Report {
	set := bundle.Aggregate

	report := &models.Report{
		Title:  fmt.Sprintf("%s (%s)", intent.MacroCode, intent.Period.Window()),
		Intent: intent.Kind,
	}

	lines := []string{
		line("Series", intent.MacroCode),
		line("Period", intent.Period.Window()),
	}
	if v := set.Get(models.MetricInflation); v.Available || strings.HasSuffix(intent.MacroCode, ".INFL") {
		lines = append(lines, line("Annualized inflation", a.style.percent(v)))
	}
	if v := set.Get(models.MetricCAGR); v.Available {
		lines = append(lines, line("Annualized change", a.style.percent(v)))
	}
	report.Sections = append(report.Sections, models.Section{Title: "Macro", Body: joinLines(lines)})
	appendNotes(report, bundle, set)

	kind := models.ChartCumulativeReturn
	if strings.HasSuffix(intent.MacroCode, ".INFL") {
		kind = models.ChartInflation
	}
	report.Charts = []models.ChartRequest{
		{Kind: kind, Symbols: []string{intent.MacroCode}, Currency: intent.Currency, Years: intent.Period.Years},
	}

	return report
}

func (a *Assembler) overviewSection(entity models.ResolvedEntity, intent *models.Intent, set *models.MetricSet) models.Section {
	lines := []string{
		line("Symbol", entity.ID()),
	}
	if entity.Name != "" {
		lines = append(lines, line("Name", entity.Name))
	}
	lines = append(lines,
		line("Currency", intent.Currency),
		line("Period", intent.Period.Window()),
		line("First date", a.style.date(set.Get(models.MetricFirstDate))),
		line("Last date", a.style.date(set.Get(models.MetricLastDate))),
	)
	return models.Section{Title: "Overview", Body: joinLines(lines)}
}

// metricSections lays out the fixed performance / risk / ratio blocks.
// Every row is always present; unavailable values render as "n/a".
func (a *Assembler) metricSections(set *models.MetricSet) []models.Section {
	return []models.Section{
		{
			Title: "Performance",
			Body: joinLines([]string{
				line("Annualized return", a.style.percent(set.Get(models.MetricCAGR))),
			}),
		},
		{
			Title: "Risk",
			Body: joinLines([]string{
				line("Annualized risk", a.style.percent(set.Get(models.MetricRisk))),
				line("Max drawdown", a.style.percent(set.Get(models.MetricMaxDrawdown))),
			}),
		},
		{
			Title: "Risk-adjusted Ratios",
			Body: joinLines([]string{
				line("Sharpe ratio", a.style.ratio(set.Get(models.MetricSharpe))),
				line("Calmar ratio", a.style.ratio(set.Get(models.MetricCalmar))),
				line("Risk-free rate", a.style.percent(set.Get(models.MetricRiskFreeRate))),
			}),
		},
	}
}

// metricLines is the compact per-entity layout used inside comparison
// sections.
func (a *Assembler) metricLines(set *models.MetricSet) []string {
	return []string{
		line("Annualized return", a.style.percent(set.Get(models.MetricCAGR))),
		line("Annualized risk", a.style.percent(set.Get(models.MetricRisk))),
		line("Max drawdown", a.style.percent(set.Get(models.MetricMaxDrawdown))),
		line("Sharpe ratio", a.style.ratio(set.Get(models.MetricSharpe))),
		line("Calmar ratio", a.style.ratio(set.Get(models.MetricCalmar))),
		line("First date", a.style.date(set.Get(models.MetricFirstDate))),
		line("Last date", a.style.date(set.Get(models.MetricLastDate))),
	}
}

func appendNotes(report *models.Report, bundle *models.MetricBundle, set *models.MetricSet) {
	var notes []string
	notes = append(notes, bundle.Notes...)
	if set != nil {
		for _, n := range set.Notes {
			if !contains(notes, n) {
				notes = append(notes, n)
			}
		}
	}
	for _, e := range bundle.Entities {
		if e.Metrics != nil {
			for _, n := range e.Metrics.Notes {
				if !contains(notes, n) {
					notes = append(notes, n)
				}
			}
		}
	}
	if len(notes) > 0 {
		report.Sections = append(report.Sections, models.Section{Title: "Notes", Body: joinLines(notes)})
	}
}

func entityIDs(entries []models.EntityMetrics) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Entity.ID()
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
