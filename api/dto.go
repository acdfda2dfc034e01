package api

import "feed_importer/models"

type ParseRequestDTO struct {
	Content string        `json:"content"`
	Country string        `json:"country,omitempty"`
	Format  models.Format `json:"format,omitempty"`
}

type ImportRequestDTO struct {
	Content string        `json:"content"`
	Country string        `json:"country,omitempty"`
	Format  models.Format `json:"format,omitempty"`
	DryRun  bool          `json:"dryRun,omitempty"`
}

type FormatDTO struct {
	Format      models.Format `json:"format"`
	DisplayName string        `json:"displayName"`
}

type CountryDTO struct {
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Currency string      `json:"currency"`
	Formats  []FormatDTO `json:"formats"`
}
