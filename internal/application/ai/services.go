package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	domai "github.com/bryanwahyu/quality-gate/internal/domain/ai"
	"github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

// aiCode marks problems coming from a real model answer.
const aiCode = "AI"

// Service turns model answers into problems. It implements analyses.Reviewer.
type Service struct {
	client domai.Client
	active bool
}

// NewService wraps a real model client.
func NewService(client domai.Client) *Service {
	return &Service{client: client, active: true}
}

// NewSimulatedService wraps an offline client; its findings are tagged AI-SIM.
func NewSimulatedService(sim domai.Client) *Service {
	return &Service{client: sim, active: false}
}

// Active reports whether a real model is configured.
func (s *Service) Active() bool { return s.active }

// Review never fails: provider errors and malformed answers are logged and dropped.
func (s *Service) Review(ctx context.Context, req analyses.ReviewRequest) []analyses.Problem {
	raw, err := s.client.Review(ctx, domai.Request{
		Language:    string(req.Language),
		Description: req.Description,
		Code:        req.Content,
	})
	if err != nil {
		if errors.Is(err, domai.ErrQuotaExceeded) {
			log.Printf("ai review skipped: quota exceeded")
		} else {
			log.Printf("ai review error: %v", err)
		}
		return nil
	}
	problems, err := ParseAnswer(raw)
	if err != nil {
		log.Printf("ai review: malformed answer: %v", err)
		return nil
	}
	if !s.active {
		for i := range problems {
			problems[i].Code = domai.SimulatedCode
		}
	}
	return problems
}

// ParseAnswer decodes a model answer, tolerating Markdown code fences.
// Every problem gets the AI code; a code written by the model is ignored.
func ParseAnswer(raw string) ([]analyses.Problem, error) {
	text := stripFences(raw)
	var ans domai.Answer
	if err := json.Unmarshal([]byte(text), &ans); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}

	out := make([]analyses.Problem, 0, len(ans.Problems))
	for _, p := range ans.Problems {
		if len(out) == domai.MaxProblems {
			break
		}
		msg := strings.TrimSpace(p.Message)
		if msg == "" {
			msg = "Problem detected"
		}
		var line *int
		if p.Line != nil && *p.Line > 0 {
			n := *p.Line
			line = &n
		}
		out = append(out, analyses.Problem{
			Severity:   NormalizeSeverity(p.Severity),
			Category:   NormalizeCategory(p.Category),
			Source:     analyses.SourceOpenAI,
			Message:    msg,
			Suggestion: strings.TrimSpace(p.Suggestion),
			Line:       line,
			Code:       aiCode,
		})
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if last := strings.TrimSpace(lines[len(lines)-1]); strings.HasPrefix(last, "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// NormalizeSeverity maps the model's wording onto the three severities.
func NormalizeSeverity(s string) analyses.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "critique", "error", "high":
		return analyses.SeverityCritical
	case "warning", "warn", "medium":
		return analyses.SeverityWarning
	}
	return analyses.SeverityInfo
}

// NormalizeCategory maps the model's wording onto known categories.
func NormalizeCategory(s string) analyses.Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "performance", "perf":
		return analyses.CategoryPerformance
	case "security", "securite":
		return analyses.CategorySecurity
	case "quality", "qualite", "data_quality", "data quality":
		return analyses.CategoryDataQuality
	case "style":
		return analyses.CategoryStyle
	case "complexity", "complexite":
		return analyses.CategoryComplexity
	}
	return analyses.CategoryReadability
}
