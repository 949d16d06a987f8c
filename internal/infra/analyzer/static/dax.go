package static

import (
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

const uncommentedMeasureLen = 200

func analyzeDAX(content string) []domain.Problem {
	var out []domain.Problem
	upper := strings.ToUpper(content)

	// ALLEXCEPT, ALLSELECTED and KEEPFILTERS count as filter context too.
	if strings.Contains(upper, "CALCULATE") && !strings.Contains(upper, "FILTER") && !strings.Contains(upper, "ALL") {
		out = append(out, problem("DAX001", domain.SeverityInfo, domain.CategoryReadability,
			"CALCULATE without an explicit FILTER",
			"Check that the filter context is well defined"))
	}

	if strings.Contains(upper, "SUMX") || strings.Contains(upper, "AVERAGEX") {
		out = append(out, problem("DAX002", domain.SeverityWarning, domain.CategoryPerformance,
			"Iterator function (SUMX/AVERAGEX) detected",
			"Check performance on large tables, prefer SUM when possible"))
	}

	if !strings.Contains(content, "--") && !strings.Contains(content, "//") && len(content) > uncommentedMeasureLen {
		out = append(out, problem("DAX003", domain.SeverityInfo, domain.CategoryReadability,
			"Complex DAX measure without comments",
			"Add comments explaining the logic"))
	}

	return out
}
