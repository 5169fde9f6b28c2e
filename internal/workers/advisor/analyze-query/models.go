// internal/workers/advisor/analyze-query/models.go
package analyzequery

import "finsight/internal/models"

type Input struct {
	RequestId string                `json:"requestId,omitempty"`
	UserId    string                `json:"userId,omitempty"`
	Query     string                `json:"query"`
	Overrides *models.QueryOverride `json:"overrides,omitempty"`
}

// Output carries the full pipeline result. When the run errored with a
// business code the process model routes on analysisError instead of an
// incident.
type Output struct {
	Result        *models.PipelineResult `json:"analysisResult"`
	AnalysisError *models.PipelineError  `json:"analysisError,omitempty"`
}
