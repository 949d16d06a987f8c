package static

import (
	"strings"
	"testing"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

func codes(ps []domain.Problem) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Code)
	}
	return out
}

func hasCode(ps []domain.Problem, code string) bool {
	for _, p := range ps {
		if p.Code == code {
			return true
		}
	}
	return false
}

func TestAnalyze_SQL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		notWant []string
	}{
		{
			name:    "select star without filters",
			content: "SELECT * FROM sales",
			want:    []string{"SQL001", "SQL005", "SQL007"},
			notWant: []string{"SQL002", "SQL004"},
		},
		{
			name:    "join without on and where",
			content: "SELECT a.id AS id FROM a JOIN b LIMIT 5",
			want:    []string{"SQL002", "SQL004"},
			notWant: []string{"SQL001", "SQL007"},
		},
		{
			name:    "join with on keyword inside identifiers only",
			content: "SELECT a.region AS r FROM a JOIN b USING (id) WHERE a.x = 1",
			want:    []string{"SQL002"},
		},
		{
			name:    "sensitive column reported once",
			content: "SELECT email AS e, password AS p FROM users WHERE id = 1",
			want:    []string{"SQL003"},
		},
		{
			name:    "hard coded year",
			content: "SELECT id AS k FROM sales WHERE year = 2024",
			want:    []string{"SQL006"},
		},
		{
			name:    "dynamic date silences year rule",
			content: "SELECT id AS k FROM sales WHERE d > GETDATE() AND y = 2024",
			notWant: []string{"SQL006"},
		},
		{
			name:    "clean query",
			content: "SELECT s.id AS sale_id FROM sales s JOIN shops p ON s.shop = p.id WHERE s.amount > 0",
			notWant: []string{"SQL001", "SQL002", "SQL003", "SQL004", "SQL005", "SQL006", "SQL007"},
		},
	}

	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Analyze(tt.content, domain.LanguageSQL)
			for _, c := range tt.want {
				if !hasCode(got, c) {
					t.Errorf("missing %s in %v", c, codes(got))
				}
			}
			for _, c := range tt.notWant {
				if hasCode(got, c) {
					t.Errorf("unexpected %s in %v", c, codes(got))
				}
			}
		})
	}
}

func TestAnalyze_SQLSensitiveOnce(t *testing.T) {
	got := New().Analyze("SELECT email AS e, phone AS p FROM users WHERE id = 1", domain.LanguageSQL)
	n := 0
	for _, p := range got {
		if p.Code == "SQL003" {
			n++
			if p.Severity != domain.SeverityCritical || p.Category != domain.CategorySecurity {
				t.Errorf("SQL003 = %s/%s", p.Severity, p.Category)
			}
		}
	}
	if n != 1 {
		t.Errorf("SQL003 reported %d times, want 1", n)
	}
}

func TestAnalyze_SQLSelectStarLine(t *testing.T) {
	got := New().Analyze("-- report\nselect *\nfrom t", domain.LanguageSQL)
	for _, p := range got {
		if p.Code == "SQL001" {
			if p.LineNumber() != 2 {
				t.Errorf("SQL001 line = %d, want 2", p.LineNumber())
			}
			return
		}
	}
	t.Fatal("SQL001 not reported")
}

func TestAnalyze_Python(t *testing.T) {
	content := strings.Join([]string{
		"from os import *",
		"import pandas as pd",
		"def load():",
		"    df = pd.read_csv('x.csv')",
		"    print(1)",
		"    print(2)",
		"    print(3)",
		"    print(4)",
		"    return df",
	}, "\n")

	got := New().Analyze(content, domain.LanguagePython)
	for _, c := range []string{"PY001", "PY002", "PY003", "PY004"} {
		if !hasCode(got, c) {
			t.Errorf("missing %s in %v", c, codes(got))
		}
	}
	for _, p := range got {
		if p.Source != domain.SourceManual {
			t.Errorf("source = %s", p.Source)
		}
		if p.Code == "PY001" && p.LineNumber() != 1 {
			t.Errorf("PY001 line = %d", p.LineNumber())
		}
	}
}

func TestAnalyze_PythonClean(t *testing.T) {
	content := `def load(path):
    """Load a CSV file."""
    try:
        return open(path).read()
    except OSError:
        return ""
`
	if got := New().Analyze(content, domain.LanguagePython); len(got) != 0 {
		t.Errorf("expected no problems, got %v", codes(got))
	}
}

func TestAnalyze_DAX(t *testing.T) {
	got := New().Analyze("Total = CALCULATE(SUMX(Sales, Sales[Qty] * Sales[Price]))", domain.LanguageDAX)
	if !hasCode(got, "DAX001") || !hasCode(got, "DAX002") {
		t.Errorf("got %v", codes(got))
	}
	if hasCode(got, "DAX003") {
		t.Error("short measure should not need comments")
	}

	long := "Total = " + strings.Repeat("SUM(Sales[Qty]) + ", 20) + "0"
	if got := New().Analyze(long, domain.LanguageDAX); !hasCode(got, "DAX003") {
		t.Errorf("long uncommented measure: got %v", codes(got))
	}

	filtered := []string{
		"Share = CALCULATE(SUM(Sales[Qty]), ALL(Sales))",
		"Share = CALCULATE(SUM(Sales[Amount]), ALLEXCEPT(Sales, Sales[Region]))",
		"Share = CALCULATE(SUM(Sales[Amount]), ALLSELECTED(Sales))",
		"Red = CALCULATE(SUM(Sales[Amount]), KEEPFILTERS(Sales[Color] = \"Red\"))",
	}
	for _, m := range filtered {
		if got := New().Analyze(m, domain.LanguageDAX); hasCode(got, "DAX001") {
			t.Errorf("%q has a filter context, got DAX001", m)
		}
	}
}

func TestAnalyze_PowerQuery(t *testing.T) {
	got := New().Analyze(`Source = Csv.Document(File.Contents("C:\data\sales.csv"))`, domain.LanguagePowerQuery)
	if !hasCode(got, "PQ001") || !hasCode(got, "PQ002") {
		t.Errorf("got %v", codes(got))
	}

	ok := "let\n    Source = Sql.Database(Server, Db)\nin\n    Source"
	if got := New().Analyze(ok, domain.LanguagePowerQuery); len(got) != 0 {
		t.Errorf("expected no problems, got %v", codes(got))
	}
}

func TestAnalyze_UnknownLanguage(t *testing.T) {
	if got := New().Analyze("SELECT * FROM t", domain.Language("COBOL")); got != nil {
		t.Errorf("expected nil, got %v", codes(got))
	}
}
