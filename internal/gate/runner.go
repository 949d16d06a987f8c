package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

const (
	Author      = "github-actions"
	Description = "automatic GitHub Actions analysis"
)

// Analyzer is satisfied by *appanalyses.Service.
type Analyzer interface {
	Analyze(ctx context.Context, cmd appanalyses.AnalyzeCommand) (*domain.Analysis, error)
}

var extLanguages = map[string]domain.Language{
	".py":  domain.LanguagePython,
	".sql": domain.LanguageSQL,
	".dax": domain.LanguageDAX,
	".m":   domain.LanguagePowerQuery,
	".pq":  domain.LanguagePowerQuery,
}

// LanguageFor infers the language from the file extension.
func LanguageFor(path string) (domain.Language, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ParseLanguages converts configured names; unknown names are an error.
func ParseLanguages(names []string) ([]domain.Language, error) {
	out := make([]domain.Language, 0, len(names))
	for _, n := range names {
		lang, ok := domain.ParseLanguage(n)
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", n)
		}
		out = append(out, lang)
	}
	return out, nil
}

// ChangedFiles lists the paths touched between two revisions.
func ChangedFiles(ctx context.Context, dir, base, head string) ([]string, error) {
	if base == "" {
		base = "HEAD~1"
	}
	if head == "" {
		head = "HEAD"
	}
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-only", base, head)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("git diff %s %s: %s", base, head, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("git diff %s %s: %w", base, head, err)
	}
	var files []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			files = append(files, l)
		}
	}
	return files, nil
}

// Target is a file selected for analysis.
type Target struct {
	Path     string
	Language domain.Language
}

// Runner analyses a set of files and builds the CI report.
type Runner struct {
	Analyzer Analyzer
	MinScore int
	// Languages enabled for the gate; empty means Python only.
	Languages   []domain.Language
	Concurrency int
	Options     appanalyses.Options
	// Dir resolves relative paths; empty means the working directory.
	Dir string
}

// Select keeps existing files whose language is enabled, without duplicates.
func (r *Runner) Select(paths []string) []Target {
	enabled := r.Languages
	if len(enabled) == 0 {
		enabled = []domain.Language{domain.LanguagePython}
	}
	seen := map[string]bool{}
	var out []Target
	for _, p := range paths {
		lang, ok := LanguageFor(p)
		if !ok || !contains(enabled, lang) || seen[p] {
			continue
		}
		if st, err := os.Stat(r.resolve(p)); err != nil || st.IsDir() {
			continue
		}
		seen[p] = true
		out = append(out, Target{Path: p, Language: lang})
	}
	return out
}

// Run analyses every selected target. Per-file failures are logged and skipped.
func (r *Runner) Run(ctx context.Context, targets []Target) Report {
	results := make([]*FileResult, len(targets))

	var g errgroup.Group
	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			res, err := r.analyze(ctx, t)
			if err != nil {
				log.Printf("gate: analysis failed file=%s err=%v", t.Path, err)
				return nil
			}
			log.Printf("gate: analysed file=%s score=%d approved=%v", t.Path, res.Score, res.Approved)
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	var done []FileResult
	for _, res := range results {
		if res != nil {
			done = append(done, *res)
		}
	}
	return Summarize(done, len(targets), r.MinScore)
}

func (r *Runner) analyze(ctx context.Context, t Target) (FileResult, error) {
	content, err := os.ReadFile(r.resolve(t.Path))
	if err != nil {
		return FileResult{}, err
	}
	a, err := r.Analyzer.Analyze(ctx, appanalyses.AnalyzeCommand{
		FileName:    t.Path,
		Language:    string(t.Language),
		Content:     string(content),
		Description: Description,
		Author:      Author,
		Options:     r.Options,
	})
	if err != nil {
		return FileResult{}, err
	}
	return resultOf(t.Path, a), nil
}

func (r *Runner) resolve(p string) string {
	if r.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.Dir, p)
}

func contains(langs []domain.Language, l domain.Language) bool {
	for _, x := range langs {
		if x == l {
			return true
		}
	}
	return false
}
