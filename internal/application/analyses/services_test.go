package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/quality-gate/internal/application"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/memory"
)

type stubRules struct{ out []domain.Problem }

func (s stubRules) Analyze(string, domain.Language) []domain.Problem { return s.out }

type stubTools struct {
	calls []domain.ToolRequest
	res   domain.ToolResult
}

func (s *stubTools) Run(_ context.Context, req domain.ToolRequest) domain.ToolResult {
	s.calls = append(s.calls, req)
	return s.res
}

func (s *stubTools) Status() map[string]bool { return map[string]bool{"flake8": true, "bandit": false} }

type stubReviewer struct {
	calls int
	out   []domain.Problem
}

func (s *stubReviewer) Review(context.Context, domain.ReviewRequest) []domain.Problem {
	s.calls++
	return s.out
}

func (s *stubReviewer) Active() bool { return false }

type stubStore struct {
	key  string
	body []byte
	err  error
}

func (s *stubStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	s.key, s.body = key, body
	if s.err != nil {
		return "", s.err
	}
	return "http://minio/" + key, nil
}

func prob(sev domain.Severity, src domain.Source, code string) domain.Problem {
	return domain.Problem{Severity: sev, Category: domain.CategoryStyle, Source: src, Message: code + " message", Code: code}
}

var fixed = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *stubTools, *stubReviewer) {
	t.Helper()
	tools := &stubTools{}
	rev := &stubReviewer{}
	return &Service{
		Repo:     memory.NewAnalysisRepository(),
		Rules:    stubRules{},
		Tools:    tools,
		Reviewer: rev,
		Clock:    application.FixedClock{T: fixed},
		Gate:     domain.DefaultGate(),
	}, tools, rev
}

func TestAnalyzeCommand_Validate(t *testing.T) {
	ok := AnalyzeCommand{FileName: "etl.py", Language: "Python", Content: "print('hello world')"}
	tests := []struct {
		name   string
		mutate func(*AnalyzeCommand)
		field  string
	}{
		{"missing file name", func(c *AnalyzeCommand) { c.FileName = "  " }, "file_name"},
		{"long file name", func(c *AnalyzeCommand) { c.FileName = strings.Repeat("a", 256) }, "file_name"},
		{"unknown language", func(c *AnalyzeCommand) { c.Language = "COBOL" }, "language"},
		{"blank content", func(c *AnalyzeCommand) { c.Content = " \n\t " }, "content"},
		{"short content", func(c *AnalyzeCommand) { c.Content = "  x = 1  " }, "content"},
		{"huge content", func(c *AnalyzeCommand) { c.Content = strings.Repeat("x", MaxContentLen+1) }, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ok
			tt.mutate(&cmd)
			_, err := cmd.Validate()
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, found := verr.Fields[tt.field]; !found {
				t.Errorf("field %s not reported: %v", tt.field, verr.Fields)
			}
		})
	}

	lang, err := ok.Validate()
	if err != nil || lang != domain.LanguagePython {
		t.Errorf("valid command: %v, %v", lang, err)
	}
}

func TestService_Analyze(t *testing.T) {
	svc, tools, rev := newService(t)
	svc.Rules = stubRules{out: []domain.Problem{prob(domain.SeverityWarning, domain.SourceManual, "PY001")}}
	tools.res = domain.ToolResult{
		Flake8: []domain.Problem{prob(domain.SeverityInfo, domain.SourceFlake8, "E501")},
		Bandit: []domain.Problem{prob(domain.SeverityWarning, domain.SourceBandit, "B307")},
	}
	rev.out = []domain.Problem{prob(domain.SeverityInfo, domain.SourceOpenAI, "AI")}
	store := &stubStore{}
	svc.Reports = store

	a, err := svc.Analyze(context.Background(), AnalyzeCommand{
		FileName: "load.py",
		Language: "python",
		Content:  "import os\nprint(eval('1'))\n",
		Author:   "alice",
		Options:  DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// 100 - 10 - 2 - 10 - 2
	if a.Score != 76 || !a.Approved {
		t.Errorf("score=%d approved=%v", a.Score, a.Approved)
	}
	want := domain.Counts{Total: 4, Warning: 2, Info: 2, Flake8: 1, Bandit: 1, OpenAI: 1, Manual: 1}
	if a.Counts != want {
		t.Errorf("counts = %+v, want %+v", a.Counts, want)
	}
	if !a.CreatedAt.Equal(fixed) || a.Language != domain.LanguagePython || a.Author != "alice" {
		t.Errorf("unexpected analysis %+v", a)
	}
	if len(tools.calls) != 1 || !tools.calls[0].Flake8 || !tools.calls[0].Bandit {
		t.Errorf("tool calls = %+v", tools.calls)
	}
	if rev.calls != 1 {
		t.Errorf("reviewer calls = %d", rev.calls)
	}

	wantKey := "reports/2026/03/" + string(a.ID) + ".json"
	if store.key != wantKey || a.ReportURL != "http://minio/"+wantKey {
		t.Errorf("archive key=%s url=%s", store.key, a.ReportURL)
	}
	if !strings.Contains(string(store.body), `"version": "2.0"`) {
		t.Errorf("archived body: %s", store.body)
	}

	got, err := svc.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Problems) != 4 || got.ReportURL == "" {
		t.Errorf("stored analysis = %+v", got)
	}
}

func TestService_AnalyzeNonPythonSkipsTools(t *testing.T) {
	svc, tools, rev := newService(t)
	svc.Rules = stubRules{out: []domain.Problem{prob(domain.SeverityCritical, domain.SourceManual, "SQL003")}}

	a, err := svc.Analyze(context.Background(), AnalyzeCommand{
		FileName: "q.sql",
		Language: "SQL",
		Content:  "DELETE FROM sales;",
		Options:  Options{Flake8: true, Bandit: true, AI: false},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(tools.calls) != 0 {
		t.Errorf("tools ran for SQL: %+v", tools.calls)
	}
	if rev.calls != 0 {
		t.Errorf("AI ran while disabled")
	}
	if a.Score != 70 || a.Approved {
		t.Errorf("a critical problem must reject: score=%d approved=%v", a.Score, a.Approved)
	}
}

func TestService_AnalyzeArchiveFailureIsNotFatal(t *testing.T) {
	svc, _, _ := newService(t)
	svc.Reports = &stubStore{err: errors.New("bucket offline")}

	a, err := svc.Analyze(context.Background(), AnalyzeCommand{FileName: "a.py", Language: "Python", Content: "print('hello')"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.ReportURL != "" {
		t.Errorf("report url = %q", a.ReportURL)
	}
}

func TestService_AnalyzeValidationStoresNothing(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Analyze(context.Background(), AnalyzeCommand{FileName: "a.py", Language: "Python"}); err == nil {
		t.Fatal("expected validation error")
	}
	st, _ := svc.Statistics(context.Background())
	if st.TotalAnalyses != 0 {
		t.Errorf("total = %d", st.TotalAnalyses)
	}
}

func TestService_HistoryDeleteExport(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	var ids []domain.AnalysisID
	for i := 0; i < 12; i++ {
		a, err := svc.Analyze(ctx, AnalyzeCommand{FileName: "f.py", Language: "Python", Content: "print('hello world')"})
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		ids = append(ids, a.ID)
	}

	page, err := svc.History(ctx, domain.Filter{Status: "bogus"}, 2, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if page.Total != 12 || page.TotalPages != 2 || len(page.Data) != 2 || page.PageSize != DefaultPageSize {
		t.Errorf("page = %+v", page)
	}
	if page.Data[1].ID != ids[0] {
		t.Errorf("history is not newest first")
	}

	rejected, _ := svc.History(ctx, domain.Filter{Status: domain.StatusRejected}, 1, 10)
	if rejected.Total != 0 {
		t.Errorf("rejected total = %d", rejected.Total)
	}

	rep, err := svc.Export(ctx, ids[3])
	if err != nil || rep.File.Name != "f.py" || rep.Result.Score != 100 {
		t.Errorf("export = %+v, %v", rep, err)
	}

	if err := svc.Delete(ctx, ids[3]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, ids[3]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if err := svc.Delete(ctx, ids[3]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete = %v", err)
	}
	if _, err := svc.Export(ctx, ids[3]); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("export after delete = %v", err)
	}
}

func TestService_ToolsStatus(t *testing.T) {
	svc, _, _ := newService(t)
	st := svc.ToolsStatus()
	want := map[string]bool{"flake8": true, "bandit": false, "openai": false, "manual_rules": true}
	for k, v := range want {
		if st[k] != v {
			t.Errorf("%s = %v, want %v", k, st[k], v)
		}
	}

	bare := &Service{}
	if st := bare.ToolsStatus(); !st["manual_rules"] || st["flake8"] {
		t.Errorf("bare status = %v", st)
	}
}
