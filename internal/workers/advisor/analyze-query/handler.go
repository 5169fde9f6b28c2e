// internal/workers/advisor/analyze-query/handler.go
package analyzequery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"
	"finsight/internal/common/metrics"
	"finsight/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
)

const TaskType = "analyze-query"

// inputSchema guards the job payload before the pipeline sees it.
var inputSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"query"},
	"properties": map[string]interface{}{
		"query":     map[string]interface{}{"type": "string", "minLength": 1},
		"requestId": map[string]interface{}{"type": "string"},
		"userId":    map[string]interface{}{"type": "string"},
	},
}

// Runner is the pipeline surface the worker drives.
type Runner interface {
	Run(ctx context.Context, q *models.Query) *models.PipelineResult
}

type Handler struct {
	config   *Config
	pipeline Runner
	logger   logger.Logger
}

func NewHandler(config *Config, pipeline Runner, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		pipeline: pipeline,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}
	if err := validateInput(&input); err != nil {
		h.failJob(client, job, string(commonerrors.ErrCodeQueryValidation), err.Error(), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output := h.Execute(ctx, &input)

	// Retryable infrastructure failures become job failures so Zeebe
	// retries them; business errors complete the job and let the process
	// model route to a clarification step.
	if output.AnalysisError != nil && output.AnalysisError.Retryable {
		retries := commonerrors.GetRetryCount(commonerrors.ErrorCode(output.AnalysisError.Code))
		h.failJob(client, job, output.AnalysisError.Code, output.AnalysisError.Message, int32(retries))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	result := h.pipeline.Run(ctx, &models.Query{
		RequestID: input.RequestId,
		UserID:    input.UserId,
		Text:      input.Query,
		Overrides: input.Overrides,
		Received:  start.UTC(),
	})

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if result.Err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, result.Err.Code).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}

	return &Output{
		Result:        result,
		AnalysisError: result.Err,
	}
}

func validateInput(input *Input) error {
	document := map[string]interface{}{
		"query":     input.Query,
		"requestId": input.RequestId,
		"userId":    input.UserId,
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(inputSchema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("input validation failed: %v", errs)
	}

	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, message string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"errorCode": errorCode,
		"message":   message,
	})

	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(fmt.Sprintf("[%s] %s", errorCode, message)).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{"error": err})
	}
}
