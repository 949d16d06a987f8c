package analyses

import "time"

// ReportVersion is written in the meta block of exported reports.
const ReportVersion = "2.0"

// Report is the JSON export of one analysis.
type Report struct {
	Meta struct {
		Version    string    `json:"version"`
		AnalyzedAt time.Time `json:"analyzed_at"`
	} `json:"meta"`
	File struct {
		Name        string   `json:"name"`
		Language    Language `json:"language"`
		Description string   `json:"description"`
	} `json:"file"`
	Result struct {
		Score      int    `json:"score"`
		Approved   bool   `json:"approved"`
		DurationMS int64  `json:"duration_ms"`
		ReportURL  string `json:"report_url,omitempty"`
	} `json:"result"`
	Statistics Counts    `json:"statistics"`
	Problems   []Problem `json:"problems"`
}

// BuildReport converts an analysis into its export document.
func BuildReport(a *Analysis) Report {
	var r Report
	r.Meta.Version = ReportVersion
	r.Meta.AnalyzedAt = a.CreatedAt
	r.File.Name = a.FileName
	r.File.Language = a.Language
	r.File.Description = a.Description
	r.Result.Score = a.Score
	r.Result.Approved = a.Approved
	r.Result.DurationMS = a.DurationMS
	r.Result.ReportURL = a.ReportURL
	r.Statistics = a.Counts
	r.Problems = a.Problems
	if r.Problems == nil {
		r.Problems = []Problem{}
	}
	return r
}
