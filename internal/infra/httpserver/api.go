package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	appanalyses "github.com/bryanwahyu/quality-gate/internal/application/analyses"
	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
	"github.com/bryanwahyu/quality-gate/internal/middleware"
)

type analyzeRequest struct {
	FileName    string               `json:"file_name"`
	Language    string               `json:"language"`
	Content     string               `json:"content"`
	Description string               `json:"description"`
	Options     *appanalyses.Options `json:"options"`
}

type analyzeResponse struct {
	ID         domain.AnalysisID `json:"id"`
	FileName   string            `json:"file_name"`
	Language   domain.Language   `json:"language"`
	Score      int               `json:"score"`
	Approved   bool              `json:"approved"`
	DurationMS int64             `json:"duration_ms"`
	Statistics domain.Counts     `json:"statistics"`
	Problems   []domain.Problem  `json:"problems"`
	ReportURL  string            `json:"report_url,omitempty"`
}

// POST /api/analyze
func (r *Router) handleAPIAnalyze(w http.ResponseWriter, req *http.Request) error {
	// toggles missing from "options" stay on
	opts := appanalyses.DefaultOptions()
	body := analyzeRequest{Options: &opts}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest{"request body is empty"}
		}
		return badRequest{"invalid JSON: " + err.Error()}
	}
	if strings.TrimSpace(body.Content) == "" {
		return badRequest{"code cannot be empty"}
	}
	if body.FileName == "" {
		body.FileName = "code.py"
	}
	if body.Language == "" {
		body.Language = string(domain.LanguagePython)
	}

	a, err := r.svc.Analyze(req.Context(), appanalyses.AnalyzeCommand{
		FileName:    middleware.SanitizeFileName(body.FileName),
		Language:    body.Language,
		Content:     body.Content,
		Description: middleware.SanitizeString(body.Description),
		Author:      middleware.GetAuthorFromContext(req.Context()),
		Options:     opts,
	})
	if err != nil {
		return err
	}
	middleware.RecordAnalysis(a.Approved, a.Counts.Total)

	problems := a.Problems
	if problems == nil {
		problems = []domain.Problem{}
	}
	domain.SortProblems(problems)
	return writeJSON(w, http.StatusOK, analyzeResponse{
		ID:         a.ID,
		FileName:   a.FileName,
		Language:   a.Language,
		Score:      a.Score,
		Approved:   a.Approved,
		DurationMS: a.DurationMS,
		Statistics: a.Counts,
		Problems:   problems,
		ReportURL:  a.ReportURL,
	})
}

// GET /api/statistics
func (r *Router) handleAPIStatistics(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.Statistics(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}

// GET /api/tools
func (r *Router) handleAPITools(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.svc.ToolsStatus())
}

// GET /api/analyses?language=&status=&q=&page=&page_size=
func (r *Router) handleAPIHistory(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page := middleware.ParsePage(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	size = middleware.ValidateLimit(size)
	res, err := r.svc.History(req.Context(), filterFrom(req), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/analyses/{id}
func (r *Router) handleAPIGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// DELETE /api/analyses/{id}
func (r *Router) handleAPIDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if err := r.svc.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func filterFrom(req *http.Request) domain.Filter {
	q := req.URL.Query()
	f := domain.Filter{
		Status: strings.ToLower(q.Get("status")),
		Search: middleware.SanitizeString(q.Get("q")),
	}
	if lang, ok := domain.ParseLanguage(q.Get("language")); ok {
		f.Language = lang
	}
	return f
}
