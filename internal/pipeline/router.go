package pipeline

import (
	"errors"
	"strings"

	"github.com/reai/reai-backend/internal/app"
	"github.com/reai/reai-backend/internal/data/repos"
	pkgerr "github.com/reai/reai-backend/internal/pkg/errors"
	"github.com/reai/reai-backend/internal/platform/dbctx"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

// Router maps a classifier's free-text department signal to a persisted
// department. Resolution is deterministic: exact name match first, then
// keyword overlap scored with a lowest-id tie break, then the configured
// default department.
type Router struct {
	departments repos.DepartmentRepo
	defaultName string
	minScore    int
	log         *logger.Logger
}

func NewRouter(departments repos.DepartmentRepo, cfg app.RouterConfig, baseLog *logger.Logger) *Router {
	return &Router{
		departments: departments,
		defaultName: cfg.DefaultDepartment,
		minScore:    cfg.MinKeywordScore,
		log:         baseLog.With("component", "Router"),
	}
}

// Resolve picks the department for signal. It never fails on an unmatched
// signal; unroutable reviews land in the default department so they stay
// visible to triage.
func (r *Router) Resolve(dbc dbctx.Context, signal string) (*types.Department, error) {
	normalized := strings.ToLower(strings.TrimSpace(signal))

	if normalized != "" {
		all, err := r.departments.List(dbc)
		if err != nil {
			return nil, err
		}

		for _, d := range all {
			if strings.ToLower(d.Name) == normalized {
				return d, nil
			}
		}

		var best *types.Department
		bestScore := 0
		for _, d := range all {
			score := keywordScore(normalized, d.KeywordList())
			if score > bestScore || (score == bestScore && score > 0 && best != nil && d.ID < best.ID) {
				best = d
				bestScore = score
			}
		}
		if best != nil && bestScore >= r.minScore {
			return best, nil
		}
		r.log.Debug("No department matched signal, falling back to default", "signal", signal)
	}

	return r.defaultDepartment(dbc)
}

// keywordScore counts keywords that overlap the signal in either direction,
// so "대출" matches the signal "대출 심사" and the keyword "대출 심사" matches
// the signal "대출".
func keywordScore(normalizedSignal string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if strings.Contains(normalizedSignal, k) || strings.Contains(k, normalizedSignal) {
			score++
		}
	}
	return score
}

// defaultDepartment fetches the fallback department, creating it on first
// use. A create race with another worker resolves to the existing row.
func (r *Router) defaultDepartment(dbc dbctx.Context) (*types.Department, error) {
	d, err := r.departments.GetByName(dbc, r.defaultName)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pkgerr.ErrNotFound) {
		return nil, err
	}

	created, err := r.departments.Create(dbc, &types.Department{
		Name:        r.defaultName,
		Description: "분류되지 않은 리뷰의 기본 배정 부서",
	})
	if err != nil {
		if existing, gerr := r.departments.GetByName(dbc, r.defaultName); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	r.log.Info("Created default department", "name", r.defaultName, "id", created.ID)
	return created, nil
}
