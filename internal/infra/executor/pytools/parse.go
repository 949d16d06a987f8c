package pytools

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

var flake8Suggestions = map[string]string{
	"E501": "Shorten the line (max 120 characters)",
	"E302": "Add 2 blank lines before the function",
	"E303": "Remove the extra blank lines",
	"E401": "One import per line",
	"E711": "Use 'is None' instead of '== None'",
	"F401": "Remove the unused import",
	"F841": "Remove the unused variable",
	"W291": "Remove the trailing whitespace",
	"W292": "Add a newline at the end of the file",
}

var banditSuggestions = map[string]string{
	"B105": "Read passwords with os.getenv()",
	"B106": "Never store passwords in code",
	"B107": "Use a secrets manager",
	"B301": "pickle is unsafe, use JSON",
	"B303": "MD5/SHA1 are obsolete, use SHA256",
	"B307": "eval() is dangerous, use ast.literal_eval()",
	"B602": "Avoid subprocess with shell=True",
	"B608": "Possible SQL injection, use parameterized queries",
}

// ParseFlake8 reads lines formatted as row:col:code:text. Malformed lines are skipped.
func ParseFlake8(out []byte) []domain.Problem {
	var problems []domain.Problem
	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if p, ok := parseFlake8Line(line); ok {
			problems = append(problems, p)
		}
	}
	return problems
}

func parseFlake8Line(line string) (domain.Problem, bool) {
	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 4 {
		return domain.Problem{}, false
	}
	row, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.Problem{}, false
	}
	col, err := strconv.Atoi(parts[1])
	if err != nil {
		return domain.Problem{}, false
	}
	code := strings.TrimSpace(parts[2])
	text := strings.TrimSpace(parts[3])

	sev, cat := ClassifyFlake8(code)
	return domain.Problem{
		Severity:   sev,
		Category:   cat,
		Source:     domain.SourceFlake8,
		Message:    fmt.Sprintf("[%s] %s", code, text),
		Suggestion: flake8Suggestion(code),
		Line:       &row,
		Column:     &col,
		Code:       code,
	}, true
}

// ClassifyFlake8 derives severity and category from the flake8 code family.
func ClassifyFlake8(code string) (domain.Severity, domain.Category) {
	family := byte('E')
	if code != "" {
		family = code[0]
	}
	switch family {
	case 'F':
		if code == "F401" || code == "F841" {
			return domain.SeverityWarning, domain.CategoryStyle
		}
		return domain.SeverityCritical, domain.CategoryDataQuality
	case 'E':
		if strings.HasPrefix(code, "E5") {
			return domain.SeverityInfo, domain.CategoryStyle
		}
		return domain.SeverityWarning, domain.CategoryStyle
	case 'W':
		return domain.SeverityInfo, domain.CategoryStyle
	case 'C':
		return domain.SeverityWarning, domain.CategoryComplexity
	}
	return domain.SeverityInfo, domain.CategoryStyle
}

func flake8Suggestion(code string) string {
	if s, ok := flake8Suggestions[code]; ok {
		return s
	}
	return "See the PEP8 documentation"
}

type banditReport struct {
	Results []struct {
		TestID     string `json:"test_id"`
		Severity   string `json:"issue_severity"`
		IssueText  string `json:"issue_text"`
		LineNumber *int   `json:"line_number"`
	} `json:"results"`
}

// ParseBandit decodes bandit's JSON report. Empty output means no findings.
func ParseBandit(out []byte) ([]domain.Problem, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, nil
	}
	var rep banditReport
	if err := json.Unmarshal(out, &rep); err != nil {
		return nil, fmt.Errorf("decode bandit report: %w", err)
	}

	problems := make([]domain.Problem, 0, len(rep.Results))
	for _, r := range rep.Results {
		code := r.TestID
		if code == "" {
			code = "B000"
		}
		text := r.IssueText
		if text == "" {
			text = "Security issue"
		}
		problems = append(problems, domain.Problem{
			Severity:   banditSeverity(r.Severity),
			Category:   domain.CategorySecurity,
			Source:     domain.SourceBandit,
			Message:    fmt.Sprintf("[%s] %s", code, text),
			Suggestion: banditSuggestion(code),
			Line:       r.LineNumber,
			Code:       code,
		})
	}
	return problems, nil
}

func banditSeverity(s string) domain.Severity {
	switch strings.ToUpper(s) {
	case "HIGH":
		return domain.SeverityCritical
	case "MEDIUM":
		return domain.SeverityWarning
	}
	return domain.SeverityInfo
}

func banditSuggestion(code string) string {
	if s, ok := banditSuggestions[code]; ok {
		return s
	}
	return "See the Bandit documentation"
}
