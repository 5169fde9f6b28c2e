// internal/pipeline/insight/augmenter.go
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"finsight/internal/common/config"
	"finsight/internal/common/logger"
	"finsight/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a financial analyst. Write a short, neutral commentary " +
	"(3-5 sentences) on the metrics below. Base every statement strictly on the " +
	"numbers provided. Do not give investment advice and do not invent figures."

// completer is the slice of the OpenAI client the augmenter uses.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Augmenter appends an AI-written commentary section to a finished
// report. Strictly best-effort: any failure, including a timeout, leaves
// the report exactly as assembled.
type Augmenter struct {
	client    completer
	model     string
	maxTokens int
	timeout   time.Duration
	logger    logger.Logger
}

func NewAugmenter(cfg config.APIsConfig, log logger.Logger) *Augmenter {
	a := &Augmenter{
		model:     cfg.OpenAI.Model,
		maxTokens: cfg.OpenAI.MaxTokens,
		timeout:   config.GetDuration(cfg.OpenAI.Timeout),
		logger:    log.WithFields(map[string]interface{}{"component": "insight"}),
	}
	if cfg.OpenAI.APIKey != "" {
		a.client = openai.NewClient(cfg.OpenAI.APIKey)
	}
	return a
}

// Enabled reports whether an API key was configured.
func (a *Augmenter) Enabled() bool {
	return a.client != nil
}

// Augment returns the report with a commentary section appended, or the
// original report untouched when augmentation is disabled or fails.
func (a *Augmenter) Augment(ctx context.Context, report *models.Report) *models.Report {
	if !a.Enabled() || report == nil {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(report)},
		},
	})
	if err != nil {
		a.logger.Warn("commentary generation failed, returning report unchanged", map[string]interface{}{
			"error": err.Error(),
		})
		return report
	}
	if len(resp.Choices) == 0 {
		a.logger.Warn("commentary generation returned no choices", nil)
		return report
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return report
	}

	return report.WithCommentary(text)
}

// buildPrompt renders the report's numeric sections as the user message.
// Charts and any prior commentary are excluded.
func buildPrompt(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report: %s\n\n", report.Title)
	for _, s := range report.Sections {
		if s.Title == "Commentary" {
			continue
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", s.Title, s.Body)
	}
	return b.String()
}
