// internal/workers/advisor/analyze-query/handler_test.go
package analyzequery

import (
	"context"
	"testing"

	"finsight/internal/common/logger"
	"finsight/internal/common/metrics"
	"finsight/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result *models.PipelineResult
	seen   *models.Query
}

func (f *fakeRunner) Run(_ context.Context, q *models.Query) *models.PipelineResult {
	f.seen = q
	return f.result
}

func newTestHandler(t *testing.T, runner Runner) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), runner, logger.NewTestLogger(t))
}

func TestExecutePassesQueryThrough(t *testing.T) {
	runner := &fakeRunner{result: &models.PipelineResult{
		RequestID: "req-1",
		Stage:     models.StageDone,
		Report:    &models.Report{Title: "AAPL.US"},
	}}
	h := newTestHandler(t, runner)

	output := h.Execute(context.Background(), &Input{
		RequestId: "req-1",
		UserId:    "u1",
		Query:     "tell me about apple",
		Overrides: &models.QueryOverride{Currency: "EUR"},
	})

	require.NotNil(t, runner.seen)
	assert.Equal(t, "req-1", runner.seen.RequestID)
	assert.Equal(t, "u1", runner.seen.UserID)
	assert.Equal(t, "tell me about apple", runner.seen.Text)
	assert.Equal(t, "EUR", runner.seen.Overrides.Currency)

	assert.Nil(t, output.AnalysisError)
	assert.Equal(t, "AAPL.US", output.Result.Report.Title)
}

func TestExecuteSurfacesBusinessError(t *testing.T) {
	runner := &fakeRunner{result: &models.PipelineResult{
		RequestID: "req-2",
		Stage:     models.StageErrored,
		Err: &models.PipelineError{
			Code:      "AMBIGUOUS_ENTITY",
			Stage:     models.StageResolved,
			Mention:   "sber",
			Retryable: false,
		},
	}}
	h := newTestHandler(t, runner)

	output := h.Execute(context.Background(), &Input{Query: "sber"})

	require.NotNil(t, output.AnalysisError)
	assert.Equal(t, "AMBIGUOUS_ENTITY", output.AnalysisError.Code)
	assert.Equal(t, "sber", output.AnalysisError.Mention)
	assert.False(t, output.AnalysisError.Retryable)
}

func TestExecuteRecordsJobMetrics(t *testing.T) {
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failed := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, "DATA_UNAVAILABLE"))

	ok := newTestHandler(t, &fakeRunner{result: &models.PipelineResult{
		Stage:  models.StageDone,
		Report: &models.Report{Title: "AAPL.US"},
	}})
	ok.Execute(context.Background(), &Input{Query: "apple"})
	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))

	bad := newTestHandler(t, &fakeRunner{result: &models.PipelineResult{
		Stage: models.StageErrored,
		Err:   &models.PipelineError{Code: "DATA_UNAVAILABLE", Retryable: true},
	}})
	bad.Execute(context.Background(), &Input{Query: "apple"})
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, "DATA_UNAVAILABLE")))
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		wantErr bool
	}{
		{"valid", Input{Query: "apple", UserId: "u1"}, false},
		{"missing query", Input{UserId: "u1"}, true},
		{"empty query", Input{Query: ""}, true},
		{"query only", Input{Query: "compare apple and microsoft"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInput(&tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
