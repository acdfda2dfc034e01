package models

// ParseResult is the outcome of detecting and running one strategy.
type ParseResult struct {
	StrategyName string               `json:"strategyName"`
	Format       Format               `json:"format"`
	CountryCode  string               `json:"countryCode,omitempty"`
	Records      []NormalizedProperty `json:"records"`
}

// ImportResult summarizes one reconciliation run. Errors holds one message per
// failed record, in input order.
type ImportResult struct {
	Success      bool                 `json:"success"`
	StrategyName string               `json:"strategyName"`
	CountryCode  string               `json:"countryCode"`
	Records      []NormalizedProperty `json:"records"`
	CreatedCount int                  `json:"createdCount"`
	UpdatedCount int                  `json:"updatedCount"`
	SkippedCount int                  `json:"skippedCount"`
	Errors       []string             `json:"errors"`
	ArchiveKey   string               `json:"archiveKey,omitempty"`
}
