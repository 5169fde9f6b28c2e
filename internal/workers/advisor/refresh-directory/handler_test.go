// internal/workers/advisor/refresh-directory/handler_test.go
package refreshdirectory

import (
	"context"
	"testing"

	"finsight/internal/common/logger"
	"finsight/internal/common/metrics"
	"finsight/internal/directory"
	"finsight/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	snap *directory.Snapshot
	err  error
}

func (f *fakeRefresher) Refresh(context.Context) (*directory.Snapshot, error) {
	return f.snap, f.err
}

func TestExecuteReportsSnapshotSize(t *testing.T) {
	snap := directory.NewSnapshot([]directory.Entry{
		{Ticker: "AAPL", Namespace: models.NamespaceUS, Name: "Apple Inc", Currency: "USD"},
		{Ticker: "SBER", Namespace: models.NamespaceMOEX, Name: "Sberbank", Currency: "RUB"},
	})
	h := NewHandler(LoadConfig(), &fakeRefresher{snap: snap}, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, output.SymbolCount)
	assert.NotEmpty(t, output.FetchedAt)
}

func TestExecutePropagatesRefreshFailure(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeRefresher{err: assert.AnError}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)
}

func TestExecuteRecordsJobMetrics(t *testing.T) {
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failed := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INTERNAL_ERROR"))

	snap := directory.NewSnapshot([]directory.Entry{
		{Ticker: "AAPL", Namespace: models.NamespaceUS, Name: "Apple Inc", Currency: "USD"},
	})
	ok := NewHandler(LoadConfig(), &fakeRefresher{snap: snap}, logger.NewTestLogger(t))
	_, err := ok.Execute(context.Background(), &Input{})
	require.NoError(t, err)
	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))

	bad := NewHandler(LoadConfig(), &fakeRefresher{err: assert.AnError}, logger.NewTestLogger(t))
	_, err = bad.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, "INTERNAL_ERROR")))
}
