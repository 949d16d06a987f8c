package static

import (
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

var (
	reSelect = word("SELECT")
	reJoin   = word("JOIN")
	reOn     = word("ON")
	reWhere  = word("WHERE")
	reAs     = word("AS")
	reLimit  = word("LIMIT")
	reTop    = word("TOP")
)

var sensitiveColumns = []string{"PASSWORD", "EMAIL", "PHONE", "SSN", "CREDIT_CARD", "SALAIRE"}

var hardcodedYears = []string{"2023", "2024", "2025"}

func analyzeSQL(content string) []domain.Problem {
	var out []domain.Problem
	upper := strings.ToUpper(content)
	hasSelect := reSelect.MatchString(content)
	hasJoin := reJoin.MatchString(content)
	hasWhere := reWhere.MatchString(content)

	if line := firstLine(content, "SELECT *"); line > 0 {
		out = append(out, atLine(problem("SQL001", domain.SeverityWarning, domain.CategoryPerformance,
			"SELECT * detected: loads every column for nothing",
			"List only the columns you need"), line))
	}

	if hasJoin && !reOn.MatchString(content) {
		out = append(out, problem("SQL002", domain.SeverityCritical, domain.CategoryDataQuality,
			"JOIN without an ON clause produces a cartesian product",
			"Add a join condition: JOIN t2 ON t1.id = t2.id"))
	}

	for _, col := range sensitiveColumns {
		if strings.Contains(upper, col) {
			out = append(out, problem("SQL003", domain.SeverityCritical, domain.CategorySecurity,
				fmt.Sprintf("Sensitive data detected: %s", col),
				"Mask it with HASH() or keep it out of the dashboard"))
			break
		}
	}

	if hasJoin && !hasWhere {
		out = append(out, problem("SQL004", domain.SeverityWarning, domain.CategoryPerformance,
			"JOIN without WHERE may load too much data",
			"Add WHERE filters to bound the result"))
	}

	if hasSelect && !reAs.MatchString(content) {
		out = append(out, problem("SQL005", domain.SeverityInfo, domain.CategoryReadability,
			"No alias (AS) used, the query is harder to read",
			"Use aliases: SELECT COUNT(*) AS total_sales"))
	}

	if !strings.Contains(upper, "GETDATE") && !strings.Contains(upper, "CURRENT") {
		for _, year := range hardcodedYears {
			if strings.Contains(content, year) {
				out = append(out, problem("SQL006", domain.SeverityWarning, domain.CategoryDataQuality,
					fmt.Sprintf("Year %s is hard-coded", year),
					"Use GETDATE() or CURRENT_DATE for dynamic dates"))
				break
			}
		}
	}

	if hasSelect && !hasWhere && !reLimit.MatchString(content) && !reTop.MatchString(content) {
		out = append(out, problem("SQL007", domain.SeverityWarning, domain.CategoryPerformance,
			"SELECT without LIMIT or WHERE may overload the server",
			"Add LIMIT or TOP to bound the result"))
	}

	return out
}
