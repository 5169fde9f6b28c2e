// internal/pipeline/resolver/resolver.go
package resolver

import (
	"context"
	"sort"
	"strings"

	"finsight/internal/common/config"
	"finsight/internal/common/logger"
	"finsight/internal/common/metrics"
	"finsight/internal/directory"
	"finsight/internal/models"

	"github.com/agext/levenshtein"
	"golang.org/x/sync/errgroup"
)

// SnapshotLoader yields the directory snapshot resolution runs against.
type SnapshotLoader interface {
	Load(ctx context.Context) (*directory.Snapshot, error)
}

// Resolver maps free-text instrument mentions to qualified identifiers
// against a single directory snapshot. It never returns an error: every
// mention yields a ResolvedEntity whose confidence tells the caller what
// happened.
type Resolver struct {
	directory SnapshotLoader
	cfg       config.PipelineConfig
	logger    logger.Logger
}

func New(dir SnapshotLoader, cfg config.PipelineConfig, log logger.Logger) *Resolver {
	return &Resolver{
		directory: dir,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "resolver"}),
	}
}

// Resolve resolves all mentions in order. One snapshot is loaded up
// front; a directory failure marks every mention unresolved with a
// reason instead of failing the pipeline.
func (r *Resolver) Resolve(ctx context.Context, mentions []string, hints *models.SessionHints) []models.ResolvedEntity {
	out := make([]models.ResolvedEntity, len(mentions))

	snap, err := r.directory.Load(ctx)
	if err != nil {
		r.logger.Warn("directory unavailable, marking mentions unresolved", map[string]interface{}{
			"error":    err.Error(),
			"mentions": len(mentions),
		})
		for i, m := range mentions {
			out[i] = models.ResolvedEntity{
				Mention:    m,
				Confidence: models.ConfidenceUnresolved,
				Reason:     "symbol directory unavailable",
			}
		}
		return out
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, m := range mentions {
		i, m := i, m
		g.Go(func() error {
			out[i] = r.resolveOne(snap, m, hints)
			return nil
		})
	}
	_ = g.Wait()

	for _, e := range out {
		metrics.ResolutionOutcomes.WithLabelValues(string(e.Confidence)).Inc()
	}
	return out
}

func (r *Resolver) resolveOne(snap *directory.Snapshot, mention string, hints *models.SessionHints) models.ResolvedEntity {
	normalized := normalize(mention)
	if normalized == "" {
		return models.ResolvedEntity{
			Mention:    mention,
			Confidence: models.ConfidenceUnresolved,
			Reason:     "empty mention",
		}
	}

	// A confirmation from an earlier clarification round wins outright.
	if hints != nil {
		if id, ok := hints.Resolved[normalized]; ok {
			if e, found := snap.Lookup(id); found {
				return exactFromEntry(mention, e)
			}
		}
	}

	if id, ok := lookupAlias(normalized); ok {
		if e, found := snap.Lookup(id); found {
			return exactFromEntry(mention, e)
		}
		return exactFromID(mention, id)
	}

	// Qualified identifier form, e.g. "AAPL.US" or "sber.moex".
	if dot := strings.LastIndex(normalized, "."); dot > 0 {
		suffix := normalized[dot+1:]
		if models.IsKnownNamespace(suffix) {
			if e, found := snap.Lookup(normalized); found {
				return exactFromEntry(mention, e)
			}
			return models.ResolvedEntity{
				Mention:    mention,
				Confidence: models.ConfidenceUnresolved,
				Reason:     "symbol not listed in directory",
			}
		}
	}

	// Bare ticker: first hit wins in namespace scan order.
	upper := strings.ToUpper(normalized)
	for _, ns := range models.KnownNamespaces {
		for _, e := range snap.InNamespace(ns) {
			if e.Ticker == upper {
				return exactFromEntry(mention, e)
			}
		}
	}

	return r.fuzzyMatch(snap, mention, normalized)
}

// fuzzyMatch scores the mention against every directory name and decides
// between fuzzy, ambiguous and unresolved based on the configured
// threshold and decisive margin.
func (r *Resolver) fuzzyMatch(snap *directory.Snapshot, mention, normalized string) models.ResolvedEntity {
	var candidates []models.Candidate
	for _, ns := range models.KnownNamespaces {
		for _, e := range snap.InNamespace(ns) {
			score := levenshtein.Similarity(normalized, strings.ToLower(e.Name), nil)
			if score < r.cfg.FuzzyThreshold {
				continue
			}
			candidates = append(candidates, models.Candidate{
				Ticker:    e.Ticker,
				Namespace: e.Namespace,
				Name:      e.Name,
				Score:     score,
			})
		}
	}

	if len(candidates) == 0 {
		return models.ResolvedEntity{
			Mention:    mention,
			Confidence: models.ConfidenceUnresolved,
			Reason:     "no directory entry matched",
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > r.cfg.MaxCandidates {
		candidates = candidates[:r.cfg.MaxCandidates]
	}

	best := candidates[0]
	decisive := len(candidates) == 1 || best.Score-candidates[1].Score >= r.cfg.FuzzyMargin
	if !decisive {
		return models.ResolvedEntity{
			Mention:    mention,
			Confidence: models.ConfidenceAmbiguous,
			Candidates: candidates,
			Reason:     "multiple directory entries matched with similar scores",
		}
	}

	entry, _ := snap.Lookup(best.ID())
	return models.ResolvedEntity{
		Mention:    mention,
		Ticker:     best.Ticker,
		Namespace:  best.Namespace,
		Name:       best.Name,
		Currency:   entry.Currency,
		Confidence: models.ConfidenceFuzzy,
		Candidates: candidates,
	}
}

func exactFromEntry(mention string, e directory.Entry) models.ResolvedEntity {
	return models.ResolvedEntity{
		Mention:    mention,
		Ticker:     e.Ticker,
		Namespace:  e.Namespace,
		Name:       e.Name,
		Currency:   e.Currency,
		Confidence: models.ConfidenceExact,
	}
}

// exactFromID builds an exact resolution from a qualified identifier
// alone, for aliases whose target is not in the current snapshot.
func exactFromID(mention, id string) models.ResolvedEntity {
	dot := strings.LastIndex(id, ".")
	ns := models.Namespace(id[dot+1:])
	return models.ResolvedEntity{
		Mention:    mention,
		Ticker:     id[:dot],
		Namespace:  ns,
		Currency:   models.CurrencyFor(ns),
		Confidence: models.ConfidenceExact,
	}
}

// normalize lowercases a mention, trims surrounding punctuation and
// collapses interior whitespace.
func normalize(mention string) string {
	s := strings.ToLower(strings.TrimSpace(mention))
	s = strings.Trim(s, ".,!?;:\"'()[]")
	return strings.Join(strings.Fields(s), " ")
}
