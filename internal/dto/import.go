package dto

// ImportRowError reports why a spreadsheet row was skipped.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a transcript spreadsheet import.
type ImportResult struct {
	Created       int              `json:"created"`
	TranscriptIDs []string         `json:"transcriptIds"`
	Errors        []ImportRowError `json:"errors"`
}
