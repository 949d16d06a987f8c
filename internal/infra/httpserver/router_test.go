package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	appai "github.com/bryanwahyu/quality-gate/internal/application/ai"
	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	"github.com/bryanwahyu/quality-gate/internal/infra/ai/prompt"
	"github.com/bryanwahyu/quality-gate/internal/infra/analyzer/static"
	"github.com/bryanwahyu/quality-gate/internal/infra/db/memory"
	"github.com/bryanwahyu/quality-gate/internal/middleware"
)

const sqlSnippet = "SELECT * FROM sales s JOIN customers c ON s.customer_id = c.id"

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	svc := &appanalyses.Service{
		Repo:     memory.NewAnalysisRepository(),
		Rules:    static.New(),
		Reviewer: appai.NewSimulatedService(prompt.Simulator{}),
		Gate:     domain.DefaultGate(),
	}
	opts.Context = t.Context()
	if opts.Checks == nil {
		opts.Checks = map[string]middleware.HealthChecker{
			"database": middleware.CheckFunc(func(context.Context) error { return nil }),
		}
	}
	srv := httptest.NewServer(NewRouter(svc, opts))
	t.Cleanup(srv.Close)
	return srv
}

// noRedirect lets tests inspect 303 responses.
func noRedirect(srv *httptest.Server) *http.Client {
	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAPIAnalyze(t *testing.T) {
	srv := newTestServer(t, Options{})

	body, _ := json.Marshal(map[string]any{"file_name": "sales.sql", "language": "SQL", "content": sqlSnippet})
	resp, out := postJSON(t, srv, "/api/analyze", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, out)
	}
	if out["file_name"] != "sales.sql" || out["language"] != "SQL" {
		t.Errorf("response = %v", out)
	}
	problems, _ := out["problems"].([]any)
	found := false
	for _, p := range problems {
		if p.(map[string]any)["code"] == "SQL001" {
			found = true
		}
	}
	if !found {
		t.Errorf("SELECT * not reported: %v", problems)
	}

	id, _ := out["id"].(string)
	get, err := srv.Client().Get(srv.URL + "/api/analyses/" + id)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("GET stored analysis = %d", get.StatusCode)
	}
}

func TestAPIAnalyze_Defaults(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, out := postJSON(t, srv, "/api/analyze", `{"content":"import os\nprint('hello')\n"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, %v", resp.StatusCode, out)
	}
	if out["file_name"] != "code.py" || out["language"] != "Python" {
		t.Errorf("defaults not applied: %v", out)
	}
}

type recordingTools struct{ got []domain.ToolRequest }

func (r *recordingTools) Run(_ context.Context, req domain.ToolRequest) domain.ToolResult {
	r.got = append(r.got, req)
	return domain.ToolResult{}
}

func (r *recordingTools) Status() map[string]bool {
	return map[string]bool{"flake8": true, "bandit": true}
}

type recordingReviewer struct{ calls int }

func (r *recordingReviewer) Review(context.Context, domain.ReviewRequest) []domain.Problem {
	r.calls++
	return nil
}

func (r *recordingReviewer) Active() bool { return true }

func TestAPIAnalyze_PartialOptions(t *testing.T) {
	tools := &recordingTools{}
	reviewer := &recordingReviewer{}
	svc := &appanalyses.Service{
		Repo:     memory.NewAnalysisRepository(),
		Rules:    static.New(),
		Tools:    tools,
		Reviewer: reviewer,
		Gate:     domain.DefaultGate(),
	}
	srv := httptest.NewServer(NewRouter(svc, Options{Context: t.Context()}))
	t.Cleanup(srv.Close)

	resp, out := postJSON(t, srv, "/api/analyze", `{"content":"import os\nprint(os.getcwd())\n","options":{"ai":false}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, %v", resp.StatusCode, out)
	}
	if len(tools.got) != 1 || !tools.got[0].Flake8 || !tools.got[0].Bandit {
		t.Errorf("flake8 and bandit should stay enabled, got %+v", tools.got)
	}
	if reviewer.calls != 0 {
		t.Errorf("ai review ran %d times, want 0", reviewer.calls)
	}

	resp, _ = postJSON(t, srv, "/api/analyze", `{"content":"import os\nprint(os.getcwd())\n","options":{"bandit":false}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(tools.got) != 2 || !tools.got[1].Flake8 || tools.got[1].Bandit {
		t.Errorf("only bandit should be off, got %+v", tools.got[1:])
	}
	if reviewer.calls != 1 {
		t.Errorf("ai review ran %d times, want 1", reviewer.calls)
	}
}

func TestAPIAnalyze_Errors(t *testing.T) {
	srv := newTestServer(t, Options{})
	tests := []struct {
		name   string
		body   string
		status int
		substr string
	}{
		{"empty content", `{"content":"   "}`, http.StatusBadRequest, "code cannot be empty"},
		{"invalid json", `{"content":`, http.StatusBadRequest, "invalid JSON"},
		{"unknown language", `{"language":"COBOL","content":"MOVE A TO B."}`, http.StatusBadRequest, "unsupported language"},
		{"too short", `{"content":"x=1"}`, http.StatusBadRequest, "at least 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, srv, "/api/analyze", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			msg, _ := out["error"].(string)
			if !strings.Contains(msg, tt.substr) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.substr)
			}
		})
	}

	resp, err := srv.Client().Get(srv.URL + "/api/analyze")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/analyze = %d, want 405", resp.StatusCode)
	}
}

func TestAPI_NotFound(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, id := range []string{"3f1c9a52-6b1e-4d0c-9f3a-1a2b3c4d5e6f", "not-a-uuid"} {
		resp, err := srv.Client().Get(srv.URL + "/api/analyses/" + id)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", id, resp.StatusCode)
		}
	}
}

func TestAPI_StatisticsAndTools(t *testing.T) {
	srv := newTestServer(t, Options{})
	postJSON(t, srv, "/api/analyze", `{"file_name":"a.sql","language":"SQL","content":"SELECT password FROM users"}`)

	resp, err := srv.Client().Get(srv.URL + "/api/statistics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var st domain.Statistics
	json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if st.TotalAnalyses != 1 || st.ApprovalRate != 0 {
		t.Errorf("statistics = %+v", st)
	}

	resp, err = srv.Client().Get(srv.URL + "/api/tools")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var tools map[string]bool
	json.NewDecoder(resp.Body).Decode(&tools)
	resp.Body.Close()
	if !tools["manual_rules"] || tools["openai"] {
		t.Errorf("tools = %v", tools)
	}
}

func TestAPI_RequiresKeyWhenConfigured(t *testing.T) {
	srv := newTestServer(t, Options{APIKeys: map[string]string{"secret": "ci"}})

	resp, _ := postJSON(t, srv, "/api/analyze", `{"content":"print('hello world')"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without key = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/analyze", strings.NewReader(`{"content":"print('hello world')"}`))
	req.Header.Set("Authorization", "Bearer secret")
	ok, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("with key = %d", ok.StatusCode)
	}

	// pages stay public
	page, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Errorf("home = %d", page.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestPages_AnalyzeFlow(t *testing.T) {
	srv := newTestServer(t, Options{})
	client := noRedirect(srv)

	form := url.Values{
		"file_name":   {"sales.sql"},
		"language":    {"SQL"},
		"content":     {sqlSnippet},
		"description": {"monthly sales <b>report</b>"},
		"ai":          {"on"},
	}
	resp, err := client.PostForm(srv.URL+"/analyze", form)
	if err != nil {
		t.Fatalf("POST /analyze: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/results/") {
		t.Fatalf("Location = %q", loc)
	}
	id := strings.TrimPrefix(loc, "/results/")

	for _, path := range []string{loc, "/analyses/" + id, "/history", "/history?language=SQL&status=rejected&page=3", "/"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
		if path == loc && !strings.Contains(body, "sales.sql") {
			t.Errorf("result page does not show the file name")
		}
		if path == "/analyses/"+id && strings.Contains(body, "<b>report</b>") {
			t.Errorf("description was not escaped")
		}
	}

	resp, err = client.Get(srv.URL + "/analyses/" + id + "/export/json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var rep domain.Report
	json.NewDecoder(resp.Body).Decode(&rep)
	resp.Body.Close()
	if want := `attachment; filename="report_` + id + `.json"`; resp.Header.Get("Content-Disposition") != want {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if rep.Meta.Version != domain.ReportVersion || rep.File.Name != "sales.sql" {
		t.Errorf("report = %+v", rep)
	}

	resp, _ = client.Get(srv.URL + "/analyses/" + id + "/export/html")
	if body := readBody(t, resp); resp.StatusCode != 200 || !strings.Contains(body, "Quality report: sales.sql") {
		t.Errorf("html export = %d", resp.StatusCode)
	}
	resp, _ = client.Get(srv.URL + "/analyses/" + id + "/export/pdf")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("pdf export = %d, want 400", resp.StatusCode)
	}

	resp, err = client.PostForm(srv.URL+"/analyses/"+id+"/delete", nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/history" {
		t.Errorf("delete = %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp, _ = client.Get(srv.URL + "/analyses/" + id)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("detail after delete = %d", resp.StatusCode)
	}
}

func TestPages_AnalyzeValidation(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, err := noRedirect(srv).PostForm(srv.URL+"/analyze", url.Values{
		"file_name": {""},
		"language":  {"Python"},
		"content":   {"x"},
	})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "file name is required") || !strings.Contains(body, "at least 10") {
		t.Errorf("form errors missing from page")
	}

	form, _ := srv.Client().Get(srv.URL + "/analyze")
	if body := readBody(t, form); !strings.Contains(body, `name="content"`) {
		t.Errorf("analyze form not rendered")
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	for path, want := range map[string]int{
		"/health":        http.StatusOK,
		"/healthz/live":  http.StatusOK,
		"/healthz/ready": http.StatusOK,
		"/metrics":       http.StatusOK,
	} {
		resp, err := srv.Client().Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}

	down := newTestServer(t, Options{Checks: map[string]middleware.HealthChecker{
		"database": middleware.CheckFunc(func(context.Context) error { return errors.New("down") }),
	}})
	resp, _ := down.Client().Get(down.URL + "/health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unhealthy = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	verr := &domain.ValidationError{}
	verr.Add("content", "required")
	tests := map[string]struct {
		err  error
		want int
	}{
		"not found":  {domain.ErrNotFound, http.StatusNotFound},
		"validation": {verr, http.StatusBadRequest},
		"bad":        {badRequest{"x"}, http.StatusBadRequest},
		"other":      {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%s: statusFor = %d, want %d", name, got, tt.want)
		}
	}
}
