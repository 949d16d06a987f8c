package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

// AnalysisRepository stores analyses in any supported SQL backend.
type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalysisRepository(db *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: db, d: d}
}

const analysisColumns = `id, file_name, language, content, description, score, approved, duration_ms,
       total_problems, critical_count, warning_count, info_count,
       flake8_count, bandit_count, openai_count, manual_count,
       report_url, author, created_at`

// Save inserts the analysis and its problems in one transaction.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
		a.CreatedAt = created
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := r.d.Rebind(`
INSERT INTO analyses
(` + analysisColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	c := a.Counts
	if _, err := tx.ExecContext(ctx, q,
		string(a.ID), stringOrDash(a.FileName), string(a.Language), a.Content, a.Description,
		a.Score, a.Approved, a.DurationMS,
		c.Total, c.Critical, c.Warning, c.Info,
		c.Flake8, c.Bandit, c.OpenAI, c.Manual,
		a.ReportURL, a.Author, created,
	); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	for i := range a.Problems {
		id, err := r.insertProblem(ctx, tx, a.ID, &a.Problems[i])
		if err != nil {
			return fmt.Errorf("insert problem: %w", err)
		}
		a.Problems[i].ID = id
		a.Problems[i].AnalysisID = a.ID
	}
	return tx.Commit()
}

func (r *AnalysisRepository) insertProblem(ctx context.Context, tx *sql.Tx, id domain.AnalysisID, p *domain.Problem) (int64, error) {
	q := `
INSERT INTO problems
(analysis_id, severity, category, source, message, suggestion, line_number, column_number, code)
VALUES (?,?,?,?,?,?,?,?,?)`
	args := []any{
		string(id), string(p.Severity), string(p.Category), string(p.Source),
		p.Message, p.Suggestion, nullInt(p.Line), nullInt(p.Column), p.Code,
	}
	if r.d.Returning {
		var pk int64
		err := tx.QueryRowContext(ctx, r.d.Rebind(q+" RETURNING id"), args...).Scan(&pk)
		return pk, err
	}
	res, err := tx.ExecContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Get by ID, problems included
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses WHERE id=?`)
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}

	a.Problems, err = r.problems(ctx, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AnalysisRepository) problems(ctx context.Context, id domain.AnalysisID) ([]domain.Problem, error) {
	q := r.d.Rebind(`
SELECT id, severity, category, source, message, suggestion, line_number, column_number, code
FROM problems WHERE analysis_id=? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, q, string(id))
	if err != nil {
		return nil, fmt.Errorf("querying problems: %w", err)
	}
	defer rows.Close()

	var out []domain.Problem
	for rows.Next() {
		var p domain.Problem
		var line, col sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Severity, &p.Category, &p.Source, &p.Message, &p.Suggestion, &line, &col, &p.Code); err != nil {
			return nil, fmt.Errorf("scanning problem: %w", err)
		}
		p.AnalysisID = id
		p.Line = intPtr(line)
		p.Column = intPtr(col)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the problems explicitly; SQLite only cascades when
// foreign keys are enabled on the connection.
func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM problems WHERE analysis_id=?`), string(id)); err != nil {
		return fmt.Errorf("delete problems: %w", err)
	}
	res, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM analyses WHERE id=?`), string(id))
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// Latest analyses, problems not loaded
func (r *AnalysisRepository) Latest(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 5
	}
	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// Paginate with offset + limit (classic pagination)
func (r *AnalysisRepository) Paginate(ctx context.Context, f domain.Filter, page, pageSize int) (domain.PaginatedResult, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	where, args := r.where(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM analyses`+where), args...).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}
	pages := domain.TotalPagesOf(total, pageSize)
	page = domain.ClampPage(page, pages)

	q := r.d.Rebind(`SELECT ` + analysisColumns + ` FROM analyses` + where + `
ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := r.db.QueryContext(ctx, q, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()
	data, err := collect(rows)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	if data == nil {
		data = []*domain.Analysis{}
	}

	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}, nil
}

func (r *AnalysisRepository) where(f domain.Filter) (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.Language != "" {
		where += " AND language = ?"
		args = append(args, string(f.Language))
	}
	switch f.Status {
	case domain.StatusApproved:
		where += " AND approved = ?"
		args = append(args, true)
	case domain.StatusRejected:
		where += " AND approved = ?"
		args = append(args, false)
	}
	if f.Search != "" {
		where += " AND LOWER(file_name) LIKE LOWER(?)" + r.d.LikeEscape
		args = append(args, "%"+escapeLikePattern(f.Search)+"%")
	}
	return where, args
}

// Statistics aggregates every stored analysis.
func (r *AnalysisRepository) Statistics(ctx context.Context) (domain.Statistics, error) {
	st := domain.EmptyStatistics()

	var approved int
	var avg float64
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(AVG(score), 0),
       COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0)
FROM analyses`).Scan(&st.TotalAnalyses, &avg, &approved); err != nil {
		return st, fmt.Errorf("statistics: %w", err)
	}
	if st.TotalAnalyses == 0 {
		return st, nil
	}
	st.AverageScore = domain.Round1(avg)
	st.ApprovalRate = domain.ApprovalRateOf(approved, st.TotalAnalyses)

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`).Scan(&st.TotalProblems); err != nil {
		return st, fmt.Errorf("count problems: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT language, COUNT(*), AVG(score)
FROM analyses GROUP BY language`)
	if err != nil {
		return st, fmt.Errorf("language statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ls domain.LanguageStats
		if err := rows.Scan(&ls.Language, &ls.Count, &ls.AverageScore); err != nil {
			return st, fmt.Errorf("scanning language row: %w", err)
		}
		ls.AverageScore = domain.Round1(ls.AverageScore)
		st.ByLanguage[ls.Language] = ls
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	freq, err := r.db.QueryContext(ctx, r.d.Rebind(`
SELECT code, message, COUNT(*) AS hits
FROM problems
GROUP BY code, message
ORDER BY hits DESC, code
LIMIT ?`), domain.FrequentProblemsLimit)
	if err != nil {
		return st, fmt.Errorf("frequent problems: %w", err)
	}
	defer freq.Close()
	for freq.Next() {
		var fp domain.FrequentProblem
		if err := freq.Scan(&fp.Code, &fp.Message, &fp.Count); err != nil {
			return st, fmt.Errorf("scanning frequent problem: %w", err)
		}
		st.FrequentProblems = append(st.FrequentProblems, fp)
	}
	return st, freq.Err()
}

// Ping is used by the readiness probe.
func (r *AnalysisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var a domain.Analysis
	c := &a.Counts
	if err := s.Scan(
		&a.ID, &a.FileName, &a.Language, &a.Content, &a.Description,
		&a.Score, &a.Approved, &a.DurationMS,
		&c.Total, &c.Critical, &c.Warning, &c.Info,
		&c.Flake8, &c.Bandit, &c.OpenAI, &c.Manual,
		&a.ReportURL, &a.Author, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func collect(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
