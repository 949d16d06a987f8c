package analyses

import (
	"strings"
	"time"
)

// AnalysisID identifier type
type AnalysisID string

// Language enum
type Language string

const (
	LanguageSQL        Language = "SQL"
	LanguagePython     Language = "Python"
	LanguageDAX        Language = "DAX"
	LanguagePowerQuery Language = "PowerQuery"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguageSQL, LanguagePython, LanguageDAX, LanguagePowerQuery}

// ParseLanguage accepts the canonical name in any case, plus a few aliases.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sql":
		return LanguageSQL, true
	case "python", "py":
		return LanguagePython, true
	case "dax":
		return LanguageDAX, true
	case "powerquery", "power query", "m", "pq":
		return LanguagePowerQuery, true
	}
	return "", false
}

// Label is the human readable name shown in forms.
func (l Language) Label() string {
	switch l {
	case LanguageDAX:
		return "DAX (Power BI)"
	case LanguagePowerQuery:
		return "Power Query (M)"
	}
	return string(l)
}

// Severity enum
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities from worst to mildest; unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Icon for templates
func (s Severity) Icon() string {
	switch s {
	case SeverityCritical:
		return "❌"
	case SeverityWarning:
		return "⚠️"
	case SeverityInfo:
		return "ℹ️"
	}
	return "•"
}

// Color is the CSS class used to render the severity.
func (s Severity) Color() string {
	switch s {
	case SeverityCritical:
		return "danger"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return "secondary"
}

// Category enum
type Category string

const (
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryDataQuality Category = "data_quality"
	CategoryReadability Category = "readability"
	CategoryStyle       Category = "style"
	CategoryComplexity  Category = "complexity"
)

// Source tells which checker produced a problem.
type Source string

const (
	SourceManual Source = "manual"
	SourceFlake8 Source = "flake8"
	SourceBandit Source = "bandit"
	SourceOpenAI Source = "openai"
)

// Sources lists every checker in display order.
var Sources = []Source{SourceFlake8, SourceBandit, SourceOpenAI, SourceManual}

// BadgeColor is the CSS class used for the source badge.
func (s Source) BadgeColor() string {
	switch s {
	case SourceFlake8:
		return "purple"
	case SourceBandit:
		return "pink"
	case SourceOpenAI:
		return "success"
	}
	return "secondary"
}

// Problem is one finding attached to an analysis.
type Problem struct {
	ID         int64      `json:"id,omitempty"`
	AnalysisID AnalysisID `json:"-"`
	Severity   Severity   `json:"severity"`
	Category   Category   `json:"category"`
	Source     Source     `json:"source"`
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion"`
	Line       *int       `json:"line"`
	Column     *int       `json:"column,omitempty"`
	Code       string     `json:"code,omitempty"`
}

// LineNumber returns 0 when the problem has no line.
func (p Problem) LineNumber() int {
	if p.Line == nil {
		return 0
	}
	return *p.Line
}

// Counts value object
type Counts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Flake8   int `json:"flake8"`
	Bandit   int `json:"bandit"`
	OpenAI   int `json:"openai"`
	Manual   int `json:"manual"`
}

// Aggregate Root: Analysis
type Analysis struct {
	ID          AnalysisID `json:"id"`
	FileName    string     `json:"file_name"`
	Language    Language   `json:"language"`
	Content     string     `json:"content"`
	Description string     `json:"description"`
	Score       int        `json:"score"`
	Approved    bool       `json:"approved"`
	DurationMS  int64      `json:"duration_ms"`
	Counts      Counts     `json:"counts"`
	ReportURL   string     `json:"report_url,omitempty"`
	Author      string     `json:"author,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Problems    []Problem  `json:"problems"`
}

// ScoreColor maps the score to a CSS class.
func (a *Analysis) ScoreColor() string {
	switch {
	case a.Score >= 80:
		return "success"
	case a.Score >= 60:
		return "warning"
	}
	return "danger"
}

// Verdict is APPROVED or REJECTED.
func (a *Analysis) Verdict() string {
	if a.Approved {
		return "APPROVED"
	}
	return "REJECTED"
}

// BySource returns the problems reported by one checker.
func (a *Analysis) BySource(src Source) []Problem {
	var out []Problem
	for _, p := range a.Problems {
		if p.Source == src {
			out = append(out, p)
		}
	}
	return out
}

// BySeverity returns the problems with the given severity.
func (a *Analysis) BySeverity(sev Severity) []Problem {
	var out []Problem
	for _, p := range a.Problems {
		if p.Severity == sev {
			out = append(out, p)
		}
	}
	return out
}

// Filter narrows the history listing.
type Filter struct {
	Language Language
	// Status is "approved", "rejected" or empty.
	Status string
	// Search matches a substring of the file name, case-insensitively.
	Search string
}

const (
	StatusApproved = "approved"
	StatusRejected = "rejected"
)
