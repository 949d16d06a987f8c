// Package static holds the hand written quality rules for SQL, Python, DAX and
// Power Query snippets.
package static

import (
	"regexp"
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

// Analyzer implements domain.RuleChecker.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

// Analyze dispatches on the language; unknown languages yield nothing.
func (a *Analyzer) Analyze(content string, lang domain.Language) []domain.Problem {
	switch lang {
	case domain.LanguageSQL:
		return analyzeSQL(content)
	case domain.LanguagePython:
		return analyzePython(content)
	case domain.LanguageDAX:
		return analyzeDAX(content)
	case domain.LanguagePowerQuery:
		return analyzePowerQuery(content)
	}
	return nil
}

func problem(code string, sev domain.Severity, cat domain.Category, msg, suggestion string) domain.Problem {
	return domain.Problem{
		Severity:   sev,
		Category:   cat,
		Source:     domain.SourceManual,
		Message:    msg,
		Suggestion: suggestion,
		Code:       code,
	}
}

func atLine(p domain.Problem, line int) domain.Problem {
	p.Line = &line
	return p
}

// word builds a case-insensitive whole word matcher.
func word(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
}

// firstLine returns the 1-based line containing needle (compared upper case), or 0.
func firstLine(content, needle string) int {
	for i, l := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToUpper(l), needle) {
			return i + 1
		}
	}
	return 0
}
