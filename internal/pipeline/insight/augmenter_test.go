// internal/pipeline/insight/augmenter_test.go
package insight

import (
	"context"
	"testing"
	"time"

	"finsight/internal/common/logger"
	"finsight/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	delay time.Duration
	seen  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.seen = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func testAugmenter(t *testing.T, c completer, timeout time.Duration) *Augmenter {
	t.Helper()
	return &Augmenter{
		client:    c,
		model:     "gpt-4o-mini",
		maxTokens: 400,
		timeout:   timeout,
		logger:    logger.NewTestLogger(t),
	}
}

func sampleReport() *models.Report {
	return &models.Report{
		Title:  "AAPL.US (10 years, USD)",
		Intent: models.IntentSingleAsset,
		Sections: []models.Section{
			{Title: "Performance", Body: "Annualized return: 6.92%"},
			{Title: "Risk", Body: "Annualized risk: 9.29%\nMax drawdown: -26.69%"},
		},
	}
}

func TestAugmentAppendsCommentary(t *testing.T) {
	fake := &fakeCompleter{reply: "Moderate growth with contained drawdowns."}
	a := testAugmenter(t, fake, time.Second)

	original := sampleReport()
	got := a.Augment(context.Background(), original)

	require.Len(t, got.Sections, 3)
	assert.Equal(t, "Commentary", got.Sections[2].Title)
	assert.Equal(t, "Moderate growth with contained drawdowns.", got.Commentary)

	// Prompt carries the numeric sections verbatim.
	require.Len(t, fake.seen.Messages, 2)
	assert.Contains(t, fake.seen.Messages[1].Content, "6.92%")

	// The assembled report itself is never mutated.
	assert.Len(t, original.Sections, 2)
	assert.Empty(t, original.Commentary)
}

func TestAugmentTimeoutReturnsReportUnchanged(t *testing.T) {
	fake := &fakeCompleter{reply: "too late", delay: 200 * time.Millisecond}
	a := testAugmenter(t, fake, 10*time.Millisecond)

	original := sampleReport()
	got := a.Augment(context.Background(), original)

	assert.Same(t, original, got)
	assert.Len(t, got.Sections, 2)
	assert.Empty(t, got.Commentary)
}

func TestAugmentErrorReturnsReportUnchanged(t *testing.T) {
	fake := &fakeCompleter{err: assert.AnError}
	a := testAugmenter(t, fake, time.Second)

	original := sampleReport()
	got := a.Augment(context.Background(), original)

	assert.Same(t, original, got)
}

func TestAugmentDisabledWithoutKey(t *testing.T) {
	a := testAugmenter(t, nil, time.Second)
	assert.False(t, a.Enabled())

	original := sampleReport()
	assert.Same(t, original, a.Augment(context.Background(), original))
}

func TestAugmentEmptyReplyReturnsReportUnchanged(t *testing.T) {
	fake := &fakeCompleter{reply: "   "}
	a := testAugmenter(t, fake, time.Second)

	original := sampleReport()
	assert.Same(t, original, a.Augment(context.Background(), original))
}
