package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/quality-gate/internal/domain/ai"
)

// Simulator answers like the model would, using offline heuristics. It lets
// the pipeline run without an API key and without spending credits.
type Simulator struct{}

// Review inspects the code and returns a JSON string matching ai.Answer.
func (Simulator) Review(_ context.Context, req ai.Request) (string, error) {
	out := ai.Answer{Problems: make([]ai.AnswerProblem, 0, 3)}
	upper := strings.ToUpper(req.Code)
	isSQL := strings.EqualFold(req.Language, "SQL")

	add := func(sev, cat, msg, suggestion string) {
		out.Problems = append(out.Problems, ai.AnswerProblem{
			Severity:   sev,
			Category:   cat,
			Message:    "[simulated] " + msg,
			Suggestion: suggestion,
			Code:       ai.SimulatedCode,
		})
	}

	// Aggregates without GROUP BY
	if isSQL && !strings.Contains(upper, "GROUP BY") {
		for _, agg := range []string{"SUM(", "COUNT(", "AVG(", "MAX(", "MIN("} {
			if strings.Contains(upper, agg) {
				add("warning", "data_quality",
					"Aggregate function without an explicit GROUP BY",
					"Check whether a GROUP BY is required")
				break
			}
		}
	}

	// Long code with few comments
	lines := strings.Split(req.Code, "\n")
	codeLines, commentLines := 0, 0
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" && !hasCommentPrefix(trimmed) {
			codeLines++
		}
		if strings.Contains(l, "#") || strings.Contains(l, "--") || strings.Contains(l, "//") {
			commentLines++
		}
	}
	if codeLines > 20 && commentLines < 3 {
		add("info", "readability",
			"Complex code with very few comments",
			"Add comments explaining the business logic")
	}

	// Sorting without a bound
	if isSQL && strings.Contains(upper, "SELECT") && strings.Contains(upper, "ORDER BY") &&
		!strings.Contains(upper, "INDEX") && !strings.Contains(upper, "LIMIT") && !strings.Contains(upper, "TOP") {
		add("warning", "performance",
			"ORDER BY without LIMIT can be slow on large tables",
			"Add a LIMIT or check the indexes")
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal simulated answer: %w", err)
	}
	return string(b), nil
}

func hasCommentPrefix(s string) bool {
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "--") || strings.HasPrefix(s, "//")
}
