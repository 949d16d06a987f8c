package analyses

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bryanwahyu/quality-gate/internal/application"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

// Submission limits.
const (
	MaxFileNameLen  = 255
	MinContentLen   = 10
	MaxContentLen   = 50000
	DefaultPageSize = 10
)

// Service implements the analysis use-cases.
// Service is safe for concurrent use when its collaborators are.
type Service struct {
	Repo     domain.Repository
	Rules    domain.RuleChecker
	Tools    domain.ToolRunner
	Reviewer domain.Reviewer
	// Reports is optional; nil disables archiving.
	Reports domain.ReportStore
	Clock   application.Clock
	Gate    domain.Gate
}

//
// ==== USE CASES ====
//

// Options toggles the optional checkers.
type Options struct {
	Flake8 bool `json:"flake8"`
	Bandit bool `json:"bandit"`
	AI     bool `json:"ai"`
}

// DefaultOptions enables every checker.
func DefaultOptions() Options {
	return Options{Flake8: true, Bandit: true, AI: true}
}

// AnalyzeCommand is one code submission.
type AnalyzeCommand struct {
	FileName    string
	Language    string
	Content     string
	Description string
	Author      string
	Options     Options
}

// Validate checks the submission and returns the parsed language.
func (cmd AnalyzeCommand) Validate() (domain.Language, error) {
	verr := &domain.ValidationError{}

	name := strings.TrimSpace(cmd.FileName)
	switch {
	case name == "":
		verr.Add("file_name", "file name is required")
	case utf8.RuneCountInString(name) > MaxFileNameLen:
		verr.Add("file_name", fmt.Sprintf("file name must be at most %d characters", MaxFileNameLen))
	}

	lang, ok := domain.ParseLanguage(cmd.Language)
	if !ok {
		verr.Add("language", fmt.Sprintf("unsupported language %q", cmd.Language))
	}

	trimmed := strings.TrimSpace(cmd.Content)
	switch {
	case trimmed == "":
		verr.Add("content", "code cannot be empty")
	case utf8.RuneCountInString(trimmed) < MinContentLen:
		verr.Add("content", fmt.Sprintf("code must contain at least %d characters", MinContentLen))
	case utf8.RuneCountInString(cmd.Content) > MaxContentLen:
		verr.Add("content", fmt.Sprintf("code must be at most %d characters", MaxContentLen))
	}

	if !verr.Empty() {
		return "", verr
	}
	return lang, nil
}

// Analyze runs every enabled checker, scores the result and stores it.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Analysis, error) {
	lang, err := cmd.Validate()
	if err != nil {
		return nil, err
	}
	opts := cmd.Options
	if lang != domain.LanguagePython {
		opts.Flake8, opts.Bandit = false, false
	}

	start := time.Now()
	var problems []domain.Problem
	if s.Rules != nil {
		problems = append(problems, s.Rules.Analyze(cmd.Content, lang)...)
	}
	if s.Tools != nil && (opts.Flake8 || opts.Bandit) {
		res := s.Tools.Run(ctx, domain.ToolRequest{Content: cmd.Content, Flake8: opts.Flake8, Bandit: opts.Bandit})
		problems = append(problems, res.Flake8...)
		problems = append(problems, res.Bandit...)
	}
	if s.Reviewer != nil && opts.AI {
		problems = append(problems, s.Reviewer.Review(ctx, domain.ReviewRequest{
			Language:    lang,
			Content:     cmd.Content,
			Description: cmd.Description,
		})...)
	}

	a := &domain.Analysis{
		ID:          domain.AnalysisID(uuid.New().String()),
		FileName:    strings.TrimSpace(cmd.FileName),
		Language:    lang,
		Content:     cmd.Content,
		Description: cmd.Description,
		Author:      cmd.Author,
		Problems:    problems,
	}
	for i := range a.Problems {
		a.Problems[i].AnalysisID = a.ID
	}
	a.Counts = domain.Tally(problems)
	a.Score = s.Gate.Score(problems)
	a.Approved = s.Gate.Approve(a.Score, a.Counts)
	a.DurationMS = time.Since(start).Milliseconds()
	a.CreatedAt = s.now()

	if s.Reports != nil {
		s.archive(ctx, a)
	}

	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	log.Printf("analysis stored id=%s file=%s lang=%s score=%d approved=%v problems=%d duration_ms=%d",
		a.ID, a.FileName, a.Language, a.Score, a.Approved, a.Counts.Total, a.DurationMS)
	return a, nil
}

// ReportKey is the archive object name of an analysis report.
func ReportKey(a *domain.Analysis) string {
	return fmt.Sprintf("reports/%04d/%02d/%s.json", a.CreatedAt.Year(), int(a.CreatedAt.Month()), a.ID)
}

func (s *Service) archive(ctx context.Context, a *domain.Analysis) {
	body, err := json.MarshalIndent(domain.BuildReport(a), "", "  ")
	if err != nil {
		log.Printf("report encode failed id=%s err=%v", a.ID, err)
		return
	}
	url, err := s.Reports.Put(ctx, ReportKey(a), body, "application/json")
	if err != nil {
		log.Printf("report archive failed id=%s err=%v", a.ID, err)
		return
	}
	a.ReportURL = url
}

// Get ambil 1 analysis by id
func (s *Service) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	domain.SortProblems(a.Problems)
	return a, nil
}

// Delete removes an analysis and its problems.
func (s *Service) Delete(ctx context.Context, id domain.AnalysisID) error {
	return s.Repo.Delete(ctx, id)
}

// History lists analyses newest first.
func (s *Service) History(ctx context.Context, f domain.Filter, page, pageSize int) (domain.PaginatedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if f.Status != domain.StatusApproved && f.Status != domain.StatusRejected {
		f.Status = ""
	}
	return s.Repo.Paginate(ctx, f, page, pageSize)
}

// Latest ambil N analysis terakhir
func (s *Service) Latest(ctx context.Context, n int) ([]*domain.Analysis, error) {
	return s.Repo.Latest(ctx, n)
}

// Statistics aggregates every stored analysis.
func (s *Service) Statistics(ctx context.Context) (domain.Statistics, error) {
	return s.Repo.Statistics(ctx)
}

// ToolsStatus reports which checkers are available.
func (s *Service) ToolsStatus() map[string]bool {
	st := map[string]bool{
		"flake8":       false,
		"bandit":       false,
		"openai":       false,
		"manual_rules": true,
	}
	if s.Tools != nil {
		for k, v := range s.Tools.Status() {
			st[k] = v
		}
	}
	if s.Reviewer != nil {
		st["openai"] = s.Reviewer.Active()
	}
	return st
}

// Export builds the JSON report of a stored analysis.
func (s *Service) Export(ctx context.Context, id domain.AnalysisID) (domain.Report, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	return domain.BuildReport(a), nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
