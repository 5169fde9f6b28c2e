// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	commonmetrics "finsight/internal/common/metrics"
	"finsight/internal/models"
	"finsight/internal/pipeline/intent"
	pipelinemetrics "finsight/internal/pipeline/metrics"
	"finsight/internal/pipeline/report"
	"finsight/internal/session"

	"github.com/google/uuid"
)

// Resolver resolves instrument mentions against the symbol directory.
type Resolver interface {
	Resolve(ctx context.Context, mentions []string, hints *models.SessionHints) []models.ResolvedEntity
}

// Augmenter appends optional commentary to a finished report.
type Augmenter interface {
	Augment(ctx context.Context, r *models.Report) *models.Report
}

// SessionStore loads and saves per-user hints around a run.
type SessionStore interface {
	Load(ctx context.Context, userID string) (*models.SessionHints, error)
	Save(ctx context.Context, userID string, hints *models.SessionHints)
}

// HistoryStore persists finished runs.
type HistoryStore interface {
	Insert(ctx context.Context, result *models.PipelineResult, userID, queryText string) error
}

// Pipeline drives one query through resolution, classification, metric
// computation, report assembly and optional augmentation. Stages advance
// strictly forward; any stage failure moves the run to errored with a
// structured error.
type Pipeline struct {
	resolver   Resolver
	classifier *intent.Classifier
	computer   *pipelinemetrics.Orchestrator
	assembler  *report.Assembler
	augmenter  Augmenter
	sessions   SessionStore
	history    HistoryStore
	logger     logger.Logger
}

// Option configures optional collaborators.
type Option func(*Pipeline)

func WithAugmenter(a Augmenter) Option {
	return func(p *Pipeline) { p.augmenter = a }
}

func WithSessionStore(s SessionStore) Option {
	return func(p *Pipeline) { p.sessions = s }
}

func WithHistoryStore(h HistoryStore) Option {
	return func(p *Pipeline) { p.history = h }
}

func New(r Resolver, c *intent.Classifier, m *pipelinemetrics.Orchestrator, a *report.Assembler, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:   r,
		classifier: c,
		computer:   m,
		assembler:  a,
		logger:     log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one query end to end. It never returns a Go error; every
// failure is a structured PipelineError on the result.
func (p *Pipeline) Run(ctx context.Context, q *models.Query) *models.PipelineResult {
	if q.RequestID == "" {
		q.RequestID = uuid.New().String()
	}

	result := &models.PipelineResult{
		RequestID: q.RequestID,
		Stage:     models.StageReceived,
		Started:   time.Now().UTC(),
	}

	log := p.logger.WithFields(map[string]interface{}{"request_id": q.RequestID})
	defer func() {
		result.Finished = time.Now().UTC()
		p.record(ctx, result, q, log)
	}()

	if q.Text == "" {
		p.fail(result, commonerrors.NewQueryValidationError("query text is empty"))
		return result
	}

	hints := p.loadHints(ctx, q, log)

	parsed := intent.Parse(q.Text)
	mentions := mentionsOf(parsed)

	entities := p.timedResolve(ctx, mentions, hints)
	result.Stage = models.StageResolved

	classified, stdErr := p.timedClassify(q, parsed, entities)
	if stdErr != nil {
		p.fail(result, stdErr)
		return result
	}
	result.Stage = models.StageClassified
	result.Intent = classified

	bundle, err := p.timedCompute(ctx, classified)
	if err != nil {
		p.fail(result, toStandardError(err))
		return result
	}
	result.Stage = models.StageComputed

	assembled, err := p.timedAssemble(classified, bundle)
	if err != nil {
		p.fail(result, toStandardError(err))
		return result
	}
	result.Stage = models.StageAssembled
	result.Report = assembled

	if p.augmenter != nil {
		result.Report = p.timedAugment(ctx, assembled)
		result.Stage = models.StageAugmented
	}

	result.Stage = models.StageDone
	p.saveHints(ctx, q, hints, classified, log)

	return result
}

func (p *Pipeline) timedResolve(ctx context.Context, mentions []string, hints *models.SessionHints) []models.ResolvedEntity {
	done := stageTimer("resolve")
	defer done()
	return p.resolver.Resolve(ctx, mentions, hints)
}

func (p *Pipeline) timedClassify(q *models.Query, parsed *intent.ParsedQuery, entities []models.ResolvedEntity) (*models.Intent, *commonerrors.StandardError) {
	done := stageTimer("classify")
	defer done()
	return p.classifier.Classify(q, parsed, entities)
}

func (p *Pipeline) timedCompute(ctx context.Context, classified *models.Intent) (*models.MetricBundle, error) {
	done := stageTimer("compute")
	defer done()
	return p.computer.Compute(ctx, classified)
}

func (p *Pipeline) timedAssemble(classified *models.Intent, bundle *models.MetricBundle) (*models.Report, error) {
	done := stageTimer("assemble")
	defer done()
	return p.assembler.Assemble(classified, bundle)
}

func (p *Pipeline) timedAugment(ctx context.Context, r *models.Report) *models.Report {
	done := stageTimer("augment")
	defer done()
	return p.augmenter.Augment(ctx, r)
}

// loadHints prefers hints carried on the query itself; otherwise the
// session store. A load failure costs context, not the query.
func (p *Pipeline) loadHints(ctx context.Context, q *models.Query, log logger.Logger) *models.SessionHints {
	if q.Hints != nil {
		return q.Hints
	}
	if p.sessions == nil || q.UserID == "" {
		return nil
	}
	hints, err := p.sessions.Load(ctx, q.UserID)
	if err != nil {
		log.Warn("session hints unavailable, resolving without context", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return hints
}

func (p *Pipeline) saveHints(ctx context.Context, q *models.Query, prev *models.SessionHints, classified *models.Intent, log logger.Logger) {
	if p.sessions == nil || q.UserID == "" {
		return
	}
	p.sessions.Save(ctx, q.UserID, session.HintsFromIntent(prev, classified))
}

func (p *Pipeline) record(ctx context.Context, result *models.PipelineResult, q *models.Query, log logger.Logger) {
	intentLabel := "none"
	if result.Intent != nil {
		intentLabel = string(result.Intent.Kind)
	}
	outcome := "ok"
	if result.Err != nil {
		outcome = result.Err.Code
	}
	commonmetrics.PipelineQueriesTotal.WithLabelValues(intentLabel, outcome).Inc()

	if p.history != nil {
		if err := p.history.Insert(ctx, result, q.UserID, q.Text); err != nil {
			log.Warn("history insert failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	log.Info("pipeline run finished", map[string]interface{}{
		"stage":    string(result.Stage),
		"intent":   intentLabel,
		"outcome":  outcome,
		"duration": result.Finished.Sub(result.Started).String(),
	})
}

func (p *Pipeline) fail(result *models.PipelineResult, stdErr *commonerrors.StandardError) {
	failedAt := result.Stage
	result.Stage = models.StageErrored
	result.Err = &models.PipelineError{
		Code:      string(stdErr.Code),
		Stage:     failedAt,
		Message:   stdErr.Message,
		Retryable: stdErr.Retryable,
	}
	if m, ok := stdErr.Metadata["mention"].(string); ok {
		result.Err.Mention = m
	}
	if ids, ok := stdErr.Metadata["candidates"].([]string); ok {
		for _, id := range ids {
			result.Err.Candidates = append(result.Err.Candidates, candidateFromID(id))
		}
	}
}

// mentionsOf selects the mention list the resolver should work on.
// Weighted tokens carry their own mentions; otherwise the free-text ones.
func mentionsOf(parsed *intent.ParsedQuery) []string {
	if len(parsed.WeightedMentions) > 0 {
		out := make([]string, len(parsed.WeightedMentions))
		for i, wm := range parsed.WeightedMentions {
			out[i] = wm.Mention
		}
		return out
	}
	return parsed.Mentions
}

func toStandardError(err error) *commonerrors.StandardError {
	if stdErr, ok := err.(*commonerrors.StandardError); ok {
		return stdErr
	}
	return commonerrors.NewExternalServiceError("pipeline", err)
}

func candidateFromID(id string) models.Candidate {
	for i := len(id) - 1; i > 0; i-- {
		if id[i] == '.' {
			return models.Candidate{Ticker: id[:i], Namespace: models.Namespace(id[i+1:])}
		}
	}
	return models.Candidate{Ticker: id}
}

func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		commonmetrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
