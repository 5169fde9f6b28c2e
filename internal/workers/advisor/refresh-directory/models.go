// internal/workers/advisor/refresh-directory/models.go
package refreshdirectory

type Input struct {
	// Force skips freshness checks; the scheduled refresh process always
	// sets it.
	Force bool `json:"force,omitempty"`
}

type Output struct {
	SymbolCount int    `json:"symbolCount"`
	FetchedAt   string `json:"fetchedAt"` // ISO 8601
}
