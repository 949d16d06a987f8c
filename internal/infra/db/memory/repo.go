package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "github.com/bryanwahyu/quality-gate/internal/domain/analyses"
)

// AnalysisRepository keeps analyses in process memory.
type AnalysisRepository struct {
	mu     sync.RWMutex
	seq    int64
	nextPk int64
	rows   map[domain.AnalysisID]*row
}

type row struct {
	seq int64
	a   *domain.Analysis
}

func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{rows: map[domain.AnalysisID]*row{}}
}

func (r *AnalysisRepository) Save(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := clone(a)
	for i := range cp.Problems {
		r.nextPk++
		cp.Problems[i].ID = r.nextPk
		cp.Problems[i].AnalysisID = cp.ID
		a.Problems[i].ID = r.nextPk
	}
	r.seq++
	r.rows[a.ID] = &row{seq: r.seq, a: cp}
	return nil
}

func (r *AnalysisRepository) Get(_ context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rw, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(rw.a), nil
}

func (r *AnalysisRepository) Delete(_ context.Context, id domain.AnalysisID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *AnalysisRepository) Latest(_ context.Context, limit int) ([]*domain.Analysis, error) {
	all := r.sorted(domain.Filter{})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *AnalysisRepository) Paginate(_ context.Context, f domain.Filter, page, pageSize int) (domain.PaginatedResult, error) {
	all := r.sorted(f)
	total := int64(len(all))
	pages := domain.TotalPagesOf(total, pageSize)
	page = domain.ClampPage(page, pages)

	data := []*domain.Analysis{}
	if offset := (page - 1) * pageSize; offset < len(all) {
		end := offset + pageSize
		if end > len(all) {
			end = len(all)
		}
		data = all[offset:end]
	}
	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}, nil
}

func (r *AnalysisRepository) Statistics(_ context.Context) (domain.Statistics, error) {
	all := r.sorted(domain.Filter{})
	if len(all) == 0 {
		return domain.EmptyStatistics(), nil
	}

	st := domain.EmptyStatistics()
	st.TotalAnalyses = len(all)

	var scoreSum, approved int
	langSum := map[domain.Language]int{}
	type key struct{ code, msg string }
	freq := map[key]int{}
	var order []key
	for _, a := range all {
		scoreSum += a.Score
		if a.Approved {
			approved++
		}
		ls := st.ByLanguage[a.Language]
		ls.Language = a.Language
		ls.Count++
		st.ByLanguage[a.Language] = ls
		langSum[a.Language] += a.Score

		st.TotalProblems += len(a.Problems)
		for _, p := range a.Problems {
			k := key{p.Code, p.Message}
			if _, seen := freq[k]; !seen {
				order = append(order, k)
			}
			freq[k]++
		}
	}
	st.AverageScore = domain.Round1(float64(scoreSum) / float64(len(all)))
	st.ApprovalRate = domain.ApprovalRateOf(approved, len(all))
	for lang, ls := range st.ByLanguage {
		ls.AverageScore = domain.Round1(float64(langSum[lang]) / float64(ls.Count))
		st.ByLanguage[lang] = ls
	}

	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > domain.FrequentProblemsLimit {
		order = order[:domain.FrequentProblemsLimit]
	}
	for _, k := range order {
		st.FrequentProblems = append(st.FrequentProblems, domain.FrequentProblem{Code: k.code, Message: k.msg, Count: freq[k]})
	}
	return st, nil
}

// sorted returns copies of the matching analyses, newest first.
func (r *AnalysisRepository) sorted(f domain.Filter) []*domain.Analysis {
	r.mu.RLock()
	rows := make([]*row, 0, len(r.rows))
	for _, rw := range r.rows {
		if matches(rw.a, f) {
			rows = append(rows, rw)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		ai, aj := rows[i].a.CreatedAt, rows[j].a.CreatedAt
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*domain.Analysis, len(rows))
	for i, rw := range rows {
		out[i] = clone(rw.a)
	}
	return out
}

func matches(a *domain.Analysis, f domain.Filter) bool {
	if f.Language != "" && a.Language != f.Language {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.FileName), strings.ToLower(f.Search)) {
		return false
	}
	switch f.Status {
	case domain.StatusApproved:
		return a.Approved
	case domain.StatusRejected:
		return !a.Approved
	}
	return true
}

func clone(a *domain.Analysis) *domain.Analysis {
	cp := *a
	cp.Problems = append([]domain.Problem(nil), a.Problems...)
	return &cp
}
