package models

// ImportResult is the backend's report for an uploaded import file.
type ImportResult struct {
	ImportedCount int      `json:"imported_count"`
	SkippedCount  int      `json:"skipped_count"`
	Warnings      []string `json:"warnings"`
}

// HasWarnings reports whether any row-level warnings were returned.
func (r ImportResult) HasWarnings() bool { return len(r.Warnings) > 0 }

// LoginResult is returned by the backend's sign-in endpoint.
type LoginResult struct {
	Token       string   `json:"token"`
	User        Record   `json:"user"`
	Permissions []string `json:"permissions"`
}

// DefaultSiteName is shown in page headers.
const DefaultSiteName = "CareHub"
