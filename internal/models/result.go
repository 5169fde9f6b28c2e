// internal/models/result.go
package models

import "time"

// PipelineStage names the stage a request is in, for tracing and for the
// stage label on failures.
type PipelineStage string

const (
	StageReceived   PipelineStage = "received"
	StageResolved   PipelineStage = "resolved"
	StageClassified PipelineStage = "classified"
	StageComputed   PipelineStage = "computed"
	StageAssembled  PipelineStage = "assembled"
	StageAugmented  PipelineStage = "augmented"
	StageDone       PipelineStage = "done"
	StageErrored    PipelineStage = "errored"
)

// PipelineError is a user-presentable pipeline failure. It carries enough
// structure for the transport layer to render a clarification prompt
// instead of a bare error string.
type PipelineError struct {
	Code      string        `json:"code"`
	Stage     PipelineStage `json:"stage"`
	Message   string        `json:"message"`
	Mention   string        `json:"mention,omitempty"`
	Candidates []Candidate  `json:"candidates,omitempty"`
	Retryable bool          `json:"retryable"`
}

func (e *PipelineError) Error() string {
	return e.Code + ": " + e.Message
}

// PipelineResult is the terminal outcome of one query run: either a
// report or a structured error, never both.
type PipelineResult struct {
	RequestID string         `json:"requestId"`
	Stage     PipelineStage  `json:"stage"`
	Intent    *Intent        `json:"intent,omitempty"`
	Report    *Report        `json:"report,omitempty"`
	Err       *PipelineError `json:"error,omitempty"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
}

// OK reports whether the run produced a report.
func (r *PipelineResult) OK() bool {
	return r.Err == nil && r.Report != nil
}
