package gate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
	StatusError  = "ERROR"
)

// ReportFile is the default output name of the CI report.
const ReportFile = "quality_report.json"

// FileResult is the outcome for one analysed file.
type FileResult struct {
	File       string          `json:"file"`
	AnalysisID string          `json:"analysis_id"`
	Language   domain.Language `json:"language"`
	Score      int             `json:"score"`
	Approved   bool            `json:"approved"`
	Critical   int             `json:"critical"`
	Warning    int             `json:"warning"`
	Info       int             `json:"info"`
	Flake8     int             `json:"flake8"`
	Bandit     int             `json:"bandit"`
	OpenAI     int             `json:"openai"`
}

func resultOf(file string, a *domain.Analysis) FileResult {
	return FileResult{
		File:       file,
		AnalysisID: string(a.ID),
		Language:   a.Language,
		Score:      a.Score,
		Approved:   a.Approved,
		Critical:   a.Counts.Critical,
		Warning:    a.Counts.Warning,
		Info:       a.Counts.Info,
		Flake8:     a.Counts.Flake8,
		Bandit:     a.Counts.Bandit,
		OpenAI:     a.Counts.OpenAI,
	}
}

// Report is written to quality_report.json.
type Report struct {
	Status   string       `json:"status"`
	Score    int          `json:"score"`
	Critical int          `json:"critical"`
	Warning  int          `json:"warning"`
	Info     int          `json:"info"`
	Flake8   int          `json:"flake8"`
	Bandit   int          `json:"bandit"`
	OpenAI   int          `json:"openai"`
	Files    []FileResult `json:"files"`
}

// Summarize folds the per-file results into the gate verdict.
// attempted is the number of files that were selected for analysis.
func Summarize(results []FileResult, attempted, minScore int) Report {
	r := Report{Files: results}
	if r.Files == nil {
		r.Files = []FileResult{}
	}
	if attempted == 0 {
		r.Status, r.Score = StatusPassed, 100
		return r
	}
	if len(results) == 0 {
		r.Status, r.Score = StatusError, 0
		return r
	}

	sum := 0
	for _, f := range results {
		sum += f.Score
		r.Critical += f.Critical
		r.Warning += f.Warning
		r.Info += f.Info
		r.Flake8 += f.Flake8
		r.Bandit += f.Bandit
		r.OpenAI += f.OpenAI
	}
	r.Score = sum / len(results)
	if r.Critical == 0 && r.Score >= minScore {
		r.Status = StatusPassed
	} else {
		r.Status = StatusFailed
	}
	return r
}

// ExitCode maps the status onto the process exit code.
func (r Report) ExitCode() int {
	switch r.Status {
	case StatusPassed:
		return 0
	case StatusFailed:
		return 1
	}
	return 2
}

// WriteReport stores the report as indented JSON.
func WriteReport(path string, r Report) error {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(body, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PrintSummary writes the human readable verdict shown in CI logs.
func PrintSummary(w io.Writer, r Report) {
	line := "============================================================"
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "QUALITY GATE RESULT")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	fmt.Fprintf(w, "Score:    %d/100\n", r.Score)
	fmt.Fprintf(w, "Critical: %d\n", r.Critical)
	fmt.Fprintf(w, "Warnings: %d\n", r.Warning)
	fmt.Fprintf(w, "Infos:    %d\n", r.Info)
	fmt.Fprintf(w, "Files:    %d\n", len(r.Files))
	for _, f := range r.Files {
		verdict := "approved"
		if !f.Approved {
			verdict = "rejected"
		}
		fmt.Fprintf(w, "  - %s: %d/100 %s\n", f.File, f.Score, verdict)
	}
	fmt.Fprintln(w, line)
}
