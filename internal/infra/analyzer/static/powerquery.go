package static

import (
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

var (
	reLet = word("let")
	reIn  = word("in")
)

var hardcodedPaths = []string{`C:\`, `D:\`, "/Users/"}

func analyzePowerQuery(content string) []domain.Problem {
	var out []domain.Problem

	if !reLet.MatchString(content) || !reIn.MatchString(content) {
		out = append(out, problem("PQ001", domain.SeverityWarning, domain.CategoryReadability,
			"let ... in structure not found",
			"Structure your M code with let ... in"))
	}

	for _, p := range hardcodedPaths {
		if strings.Contains(content, p) {
			out = append(out, problem("PQ002", domain.SeverityCritical, domain.CategoryDataQuality,
				"Hard-coded file path detected",
				"Use Power Query parameters for paths"))
			break
		}
	}

	return out
}
