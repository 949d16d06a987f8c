package analyses

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	// Save inserts the analysis together with its problems.
	Save(ctx context.Context, a *Analysis) error
	// Get returns the analysis with problems, or ErrNotFound.
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	// Delete removes the analysis and its problems, or returns ErrNotFound.
	Delete(ctx context.Context, id AnalysisID) error
	Latest(ctx context.Context, limit int) ([]*Analysis, error)
	Paginate(ctx context.Context, f Filter, page, pageSize int) (PaginatedResult, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// RuleChecker runs the hand written rules for one language.
type RuleChecker interface {
	Analyze(content string, lang Language) []Problem
}

// ToolRequest selects which Python tools run.
type ToolRequest struct {
	Content string
	Flake8  bool
	Bandit  bool
}

// ToolResult splits tool problems by origin.
type ToolResult struct {
	Flake8 []Problem
	Bandit []Problem
}

// ToolRunner port (interface untuk eksekusi flake8 / bandit)
type ToolRunner interface {
	Run(ctx context.Context, req ToolRequest) ToolResult
	Status() map[string]bool
}

// ReviewRequest is what the AI reviewer sees.
type ReviewRequest struct {
	Language    Language
	Content     string
	Description string
}

// Reviewer port for the AI review step.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) []Problem
	Active() bool
}

// ReportStore port (interface untuk arsip laporan)
type ReportStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}
