package static

import (
	"fmt"
	"regexp"
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

var (
	reStarImport = regexp.MustCompile(`^\s*from\s+\S+\s+import\s+\*`)
	reTry        = word("try")
	reExcept     = word("except")
)

const maxPrints = 3

func analyzePython(content string) []domain.Problem {
	var out []domain.Problem

	for i, l := range strings.Split(content, "\n") {
		if reStarImport.MatchString(l) {
			out = append(out, atLine(problem("PY001", domain.SeverityWarning, domain.CategoryReadability,
				"import * detected: pulls the whole module in",
				"Import only what you need"), i+1))
		}
	}

	if strings.Contains(content, "def ") && !strings.Contains(content, `"""`) && !strings.Contains(content, "'''") {
		out = append(out, problem("PY002", domain.SeverityInfo, domain.CategoryReadability,
			"Functions without docstrings",
			"Add docstrings to document your functions"))
	}

	if n := strings.Count(content, "print("); n > maxPrints {
		out = append(out, problem("PY003", domain.SeverityInfo, domain.CategoryDataQuality,
			fmt.Sprintf("%d print() calls detected, use logging in production", n),
			"Replace print() with logging.info()"))
	}

	readsFiles := strings.Contains(content, "open(") || strings.Contains(content, "read_csv") || strings.Contains(content, "read_excel")
	if readsFiles && !reTry.MatchString(content) && !reExcept.MatchString(content) {
		out = append(out, problem("PY004", domain.SeverityWarning, domain.CategoryDataQuality,
			"File read without error handling",
			"Wrap it in try/except to handle failures"))
	}

	return out
}
