package pytools

import (
	"testing"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

func TestParseFlake8(t *testing.T) {
	out := []byte(`3:1:F401:'os' imported but unused
not a flake8 line
x:1:E501:bad row
12:80:E501:line too long (130 > 120 characters)
7:5:E999:SyntaxError: invalid syntax: here

`)
	got := ParseFlake8(out)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}

	first := got[0]
	if first.Code != "F401" || first.LineNumber() != 3 || first.Column == nil || *first.Column != 1 {
		t.Errorf("first = %+v", first)
	}
	if first.Message != "[F401] 'os' imported but unused" {
		t.Errorf("message = %q", first.Message)
	}
	if first.Suggestion != "Remove the unused import" {
		t.Errorf("suggestion = %q", first.Suggestion)
	}
	if got[2].Message != "[E999] SyntaxError: invalid syntax: here" {
		t.Errorf("text with colons = %q", got[2].Message)
	}
	for _, p := range got {
		if p.Source != domain.SourceFlake8 {
			t.Errorf("source = %s", p.Source)
		}
	}
}

func TestClassifyFlake8(t *testing.T) {
	tests := []struct {
		code string
		sev  domain.Severity
		cat  domain.Category
	}{
		{"F401", domain.SeverityWarning, domain.CategoryStyle},
		{"F841", domain.SeverityWarning, domain.CategoryStyle},
		{"F821", domain.SeverityCritical, domain.CategoryDataQuality},
		{"E501", domain.SeverityInfo, domain.CategoryStyle},
		{"E302", domain.SeverityWarning, domain.CategoryStyle},
		{"W291", domain.SeverityInfo, domain.CategoryStyle},
		{"C901", domain.SeverityWarning, domain.CategoryComplexity},
		{"N802", domain.SeverityInfo, domain.CategoryStyle},
		{"", domain.SeverityWarning, domain.CategoryStyle},
	}
	for _, tt := range tests {
		sev, cat := ClassifyFlake8(tt.code)
		if sev != tt.sev || cat != tt.cat {
			t.Errorf("ClassifyFlake8(%q) = %s/%s, want %s/%s", tt.code, sev, cat, tt.sev, tt.cat)
		}
	}
}

func TestParseBandit(t *testing.T) {
	out := []byte(`{
  "errors": [],
  "results": [
    {"test_id": "B105", "issue_severity": "LOW", "issue_text": "Possible hardcoded password: 'secret'", "line_number": 4},
    {"test_id": "B602", "issue_severity": "HIGH", "issue_text": "subprocess call with shell=True", "line_number": 9},
    {"issue_severity": "MEDIUM", "line_number": 11}
  ]
}`)
	got, err := ParseBandit(out)
	if err != nil {
		t.Fatalf("ParseBandit: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Severity != domain.SeverityInfo || got[0].Suggestion != "Read passwords with os.getenv()" || got[0].LineNumber() != 4 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Severity != domain.SeverityCritical {
		t.Errorf("HIGH should be critical, got %s", got[1].Severity)
	}
	if got[2].Code != "B000" || got[2].Severity != domain.SeverityWarning || got[2].Message != "[B000] Security issue" {
		t.Errorf("defaults = %+v", got[2])
	}
	for _, p := range got {
		if p.Category != domain.CategorySecurity || p.Source != domain.SourceBandit {
			t.Errorf("category/source = %s/%s", p.Category, p.Source)
		}
	}
}

func TestParseBandit_EmptyAndMalformed(t *testing.T) {
	got, err := ParseBandit([]byte("  \n"))
	if err != nil || got != nil {
		t.Errorf("empty output: %v, %v", got, err)
	}
	if _, err := ParseBandit([]byte("[main] INFO profile include tests: None")); err == nil {
		t.Error("expected an error for non JSON output")
	}
}
