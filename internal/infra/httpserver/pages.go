package httpserver

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	"github.com/bryanwahyu/quality-gate/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

// mustLoadPages parses every page together with the shared layout.
// The standalone report template has no layout.
func mustLoadPages() *pages {
	p := &pages{byName: map[string]*template.Template{}}
	for _, name := range []string{"home", "analyze", "result", "history", "detail"} {
		p.byName[name] = template.Must(template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	p.byName["report"] = template.Must(template.New("report").Funcs(templateFuncs).
		ParseFS(templateFS, "templates/report.html"))
	return p
}

func (p *pages) render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	entry := "layout"
	if name == "report" {
		entry = "report"
	}
	// render to a buffer so a template error never leaves a half written page
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, entry, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type homePage struct {
	Title  string
	Stats  domain.Statistics
	Tools  map[string]bool
	Latest []*domain.Analysis
}

// GET /
func (r *Router) handleHome(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.Statistics(req.Context())
	if err != nil {
		return err
	}
	latest, err := r.svc.Latest(req.Context(), 5)
	if err != nil {
		return err
	}
	return r.pages.render(w, http.StatusOK, "home", homePage{
		Title:  "Dashboard",
		Stats:  st,
		Tools:  r.svc.ToolsStatus(),
		Latest: latest,
	})
}

type analyzeForm struct {
	FileName    string
	Language    string
	Content     string
	Description string
	Flake8      bool
	Bandit      bool
	AI          bool
}

type analyzePage struct {
	Title     string
	Form      analyzeForm
	Errors    map[string]string
	Languages []domain.Language
	Tools     map[string]bool
}

// GET /analyze
func (r *Router) handleAnalyzeForm(w http.ResponseWriter, req *http.Request) error {
	return r.pages.render(w, http.StatusOK, "analyze", analyzePage{
		Title:     "New analysis",
		Form:      analyzeForm{Language: string(domain.LanguagePython), Flake8: true, Bandit: true, AI: true},
		Languages: domain.Languages,
		Tools:     r.svc.ToolsStatus(),
	})
}

// POST /analyze
func (r *Router) handleAnalyzeSubmit(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := req.ParseForm(); err != nil {
		return badRequest{"invalid form: " + err.Error()}
	}
	form := analyzeForm{
		FileName:    middleware.SanitizeFileName(req.PostFormValue("file_name")),
		Language:    req.PostFormValue("language"),
		Content:     req.PostFormValue("content"),
		Description: middleware.SanitizeString(req.PostFormValue("description")),
		Flake8:      req.PostFormValue("flake8") != "",
		Bandit:      req.PostFormValue("bandit") != "",
		AI:          req.PostFormValue("ai") != "",
	}

	a, err := r.svc.Analyze(req.Context(), appanalyses.AnalyzeCommand{
		FileName:    form.FileName,
		Language:    form.Language,
		Content:     form.Content,
		Description: form.Description,
		Options:     appanalyses.Options{Flake8: form.Flake8, Bandit: form.Bandit, AI: form.AI},
	})
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return r.pages.render(w, http.StatusBadRequest, "analyze", analyzePage{
			Title:     "New analysis",
			Form:      form,
			Errors:    verr.Fields,
			Languages: domain.Languages,
			Tools:     r.svc.ToolsStatus(),
		})
	}
	if err != nil {
		return err
	}
	middleware.RecordAnalysis(a.Approved, a.Counts.Total)
	http.Redirect(w, req, "/results/"+string(a.ID), http.StatusSeeOther)
	return nil
}

type sourceGroup struct {
	Source   domain.Source
	Problems []domain.Problem
}

type resultPage struct {
	Title    string
	Analysis *domain.Analysis
	Groups   []sourceGroup
	Critical []domain.Problem
	Warning  []domain.Problem
	Info     []domain.Problem
}

// GET /results/{id}
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	a, err := r.loadAnalysis(req)
	if err != nil {
		return err
	}
	page := resultPage{
		Title:    "Result " + a.FileName,
		Analysis: a,
		Critical: a.BySeverity(domain.SeverityCritical),
		Warning:  a.BySeverity(domain.SeverityWarning),
		Info:     a.BySeverity(domain.SeverityInfo),
	}
	for _, src := range domain.Sources {
		if ps := a.BySource(src); len(ps) > 0 {
			page.Groups = append(page.Groups, sourceGroup{Source: src, Problems: ps})
		}
	}
	return r.pages.render(w, http.StatusOK, "result", page)
}

type historyPage struct {
	Title     string
	Page      domain.PaginatedResult
	Filter    domain.Filter
	Languages []domain.Language
}

// PageURL keeps the active filters on pagination links.
func (h historyPage) PageURL(n int) string {
	q := url.Values{}
	if h.Filter.Language != "" {
		q.Set("language", string(h.Filter.Language))
	}
	if h.Filter.Status != "" {
		q.Set("status", h.Filter.Status)
	}
	if h.Filter.Search != "" {
		q.Set("q", h.Filter.Search)
	}
	q.Set("page", strconv.Itoa(n))
	return "/history?" + q.Encode()
}

// GET /history?language=&status=&q=&page=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	f := filterFrom(req)
	res, err := r.svc.History(req.Context(), f, middleware.ParsePage(req.URL.Query().Get("page")), appanalyses.DefaultPageSize)
	if err != nil {
		return err
	}
	if f.Status != domain.StatusApproved && f.Status != domain.StatusRejected {
		f.Status = ""
	}
	return r.pages.render(w, http.StatusOK, "history", historyPage{
		Title:     "History",
		Page:      res,
		Filter:    f,
		Languages: domain.Languages,
	})
}

type detailPage struct {
	Title    string
	Analysis *domain.Analysis
}

// GET /analyses/{id}
func (r *Router) handleDetail(w http.ResponseWriter, req *http.Request) error {
	a, err := r.loadAnalysis(req)
	if err != nil {
		return err
	}
	return r.pages.render(w, http.StatusOK, "detail", detailPage{Title: a.FileName, Analysis: a})
}

// POST /analyses/{id}/delete
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if err := r.svc.Delete(req.Context(), id); err != nil {
		return err
	}
	http.Redirect(w, req, "/history", http.StatusSeeOther)
	return nil
}

// GET /analyses/{id}/export/{format}
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	format, err := middleware.ValidateExportFormat(chi.URLParam(req, "format"))
	if err != nil {
		return badRequest{err.Error()}
	}
	a, err := r.loadAnalysis(req)
	if err != nil {
		return err
	}

	if format == "html" {
		return r.pages.render(w, http.StatusOK, "report", detailPage{Title: "Report " + a.FileName, Analysis: a})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(domain.BuildReport(a)); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.json"`, a.ID))
	_, err = buf.WriteTo(w)
	return err
}

func (r *Router) loadAnalysis(req *http.Request) (*domain.Analysis, error) {
	id, err := analysisID(req)
	if err != nil {
		return nil, err
	}
	return r.svc.Get(req.Context(), id)
}
