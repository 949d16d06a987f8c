package pytools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

const (
	defaultTimeout = 30 * time.Second
	waitDelay      = 2 * time.Second
)

// Options configures the flake8 and bandit invocations.
type Options struct {
	Flake8Path     string
	Flake8MaxLine  int
	Flake8Ignore   []string
	Flake8Timeout  time.Duration
	BanditPath     string
	BanditSeverity string
	BanditTimeout  time.Duration
	// TempDir holds the snippet files; empty means os.TempDir().
	TempDir string
}

// DefaultOptions mirrors the stock quality gate settings.
func DefaultOptions() Options {
	return Options{
		Flake8Path:     "flake8",
		Flake8MaxLine:  120,
		Flake8Ignore:   []string{"E203", "W503"},
		Flake8Timeout:  defaultTimeout,
		BanditPath:     "bandit",
		BanditSeverity: "low",
		BanditTimeout:  defaultTimeout,
	}
}

// Runner executes flake8 and bandit as one-shot subprocesses.
// It implements domain.ToolRunner.
type Runner struct {
	opts      Options
	flake8Bin string
	banditBin string
}

// NewRunner resolves the tool binaries once; a missing tool is simply skipped.
func NewRunner(opts Options) *Runner {
	r := &Runner{opts: opts}
	if p, err := exec.LookPath(opts.Flake8Path); err == nil {
		r.flake8Bin = p
	}
	if p, err := exec.LookPath(opts.BanditPath); err == nil {
		r.banditBin = p
	}
	return r
}

// Status reports which tools were found.
func (r *Runner) Status() map[string]bool {
	return map[string]bool{
		"flake8": r.flake8Bin != "",
		"bandit": r.banditBin != "",
	}
}

// Run writes the snippet to a temporary file and runs the requested tools on it
// concurrently. Tool failures never surface as errors; they are logged.
func (r *Runner) Run(ctx context.Context, req domain.ToolRequest) domain.ToolResult {
	var res domain.ToolResult
	runFlake8 := req.Flake8 && r.flake8Bin != ""
	runBandit := req.Bandit && r.banditBin != ""
	if !runFlake8 && !runBandit {
		return res
	}

	path, err := r.writeTemp(req.Content)
	if err != nil {
		log.Printf("pytools: temp file error: %v", err)
		return res
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("pytools: failed to remove %s: %v", path, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if runFlake8 {
		g.Go(func() error {
			res.Flake8 = r.flake8(gctx, path)
			return nil
		})
	}
	if runBandit {
		g.Go(func() error {
			res.Bandit = r.bandit(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (r *Runner) writeTemp(content string) (string, error) {
	f, err := os.CreateTemp(r.opts.TempDir, "qg_*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (r *Runner) flake8(ctx context.Context, path string) []domain.Problem {
	args := []string{fmt.Sprintf("--max-line-length=%d", r.opts.Flake8MaxLine)}
	if len(r.opts.Flake8Ignore) > 0 {
		args = append(args, "--ignore="+strings.Join(r.opts.Flake8Ignore, ","))
	}
	args = append(args, "--format=%(row)d:%(col)d:%(code)s:%(text)s", path)

	out, err := run(ctx, timeoutOr(r.opts.Flake8Timeout), r.flake8Bin, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return []domain.Problem{timeoutProblem(domain.SourceFlake8, domain.CategoryPerformance,
			"flake8 timed out: code too long or too complex")}
	}
	if err != nil {
		log.Printf("pytools: flake8 error: %v", err)
		return nil
	}
	return ParseFlake8(out)
}

func (r *Runner) bandit(ctx context.Context, path string) []domain.Problem {
	severity := strings.ToLower(r.opts.BanditSeverity)
	if severity == "" {
		severity = "low"
	}
	args := []string{"-f", "json", "--severity-level=" + severity, path}

	out, err := run(ctx, timeoutOr(r.opts.BanditTimeout), r.banditBin, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return []domain.Problem{timeoutProblem(domain.SourceBandit, domain.CategorySecurity,
			"bandit timed out: code too long")}
	}
	if err != nil {
		log.Printf("pytools: bandit error: %v", err)
		return nil
	}
	problems, err := ParseBandit(out)
	if err != nil {
		log.Printf("pytools: bandit output ignored: %v", err)
		return nil
	}
	return problems
}

// run executes the command and returns stdout. A non-zero exit is not an error:
// both tools exit 1 when they report findings.
func run(ctx context.Context, timeout time.Duration, bin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	// flake8 forks workers; do not wait forever on pipes they keep open.
	cmd.WaitDelay = waitDelay
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, context.DeadlineExceeded
	}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return out, nil
		}
		return nil, fmt.Errorf("run %s: %w", bin, err)
	}
	return out, nil
}

func timeoutOr(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

func timeoutProblem(src domain.Source, cat domain.Category, msg string) domain.Problem {
	return domain.Problem{
		Severity: domain.SeverityWarning,
		Category: cat,
		Source:   src,
		Message:  msg,
		Code:     "TIMEOUT",
	}
}
