package lambda

import (
	"bitbucket.org/mkoren/famrate/optimize"
)

// Result holds a finished rate search.
type Result struct {
	// Rates are the estimated birth-death rates, one per rate class
	// times cluster (cluster-major for mixture searches).
	Rates []float64 `json:"rates"`
	// Weights are the full mixture weights including the
	// reconstructed one; nil for plain searches.
	Weights []float64 `json:"weights,omitempty"`
	// Score is the maximized posterior score.
	Score float64 `json:"score"`
	// Iters counts optimizer iterations of the winning run.
	Iters int `json:"iterations"`
	// Runs counts randomized restarts performed.
	Runs int `json:"runs"`
	// Converged reports the restart-convergence verdict when a
	// convergence check was requested.
	Converged bool `json:"converged,omitempty"`
	// Boundary is set when an estimated rate sits at the stability
	// boundary of the longest branch.
	Boundary bool `json:"boundary,omitempty"`
	// Membership holds the per-family cluster responsibilities of a
	// mixture search.
	Membership Membership `json:"-"`
}

// Search estimates rates maximizing the posterior score over all
// families. Mixture parameterizations are delegated to SearchMixture.
// With checkConv set the search restarts from fresh random points
// until the scores agree across runs.
func (s *Session) Search(p *Params, checkConv bool) (*Result, error) {
	if p.K > 0 {
		return s.SearchMixture(p, checkConv)
	}

	maxbl := s.E.MaxBranchLength()
	sup := &Supervisor{TolF: searchTolF}
	res, err := sup.Run(checkConv, func() (*Result, error) {
		p.Randomize(maxbl)
		r, err := s.searchOnce(p)
		if err == nil && s.OnProgress != nil {
			s.OnProgress(r)
		}
		return r, err
	})
	if err != nil {
		return nil, err
	}
	log.Noticef("DONE: Lambda Search")
	log.Noticef("Lambda : %s & Score: %f", joinFloats(res.Rates), res.Score)
	return res, nil
}

const (
	searchTolX = 1e-6
	searchTolF = 1e-6
)

func (s *Session) searchOnce(p *Params) (*Result, error) {
	scorer := NewScorer(s)
	obj := &searchObjective{score: scorer.Score}

	fm := optimize.NewFMinSearch()
	fm.TolX = searchTolX
	fm.TolF = searchTolF
	r := fm.Run(obj, p.Values)
	if obj.err != nil {
		return nil, obj.err
	}
	copy(p.Values, r.X)
	log.Noticef("Lambda Search Result: %d", r.Iters)

	res := &Result{
		Rates: append([]float64(nil), r.X...),
		Score: -r.Score,
		Iters: r.Iters,
		Runs:  1,
	}
	res.Boundary = s.warnBoundary(res.Rates)
	return res, nil
}

// warnBoundary reports rates whose product with the longest branch
// reaches the stability limit of the transition probabilities.
func (s *Session) warnBoundary(rates []float64) bool {
	maxbl := s.E.MaxBranchLength()
	boundary := false
	for _, r := range rates {
		if r*maxbl >= 1 {
			boundary = true
		}
	}
	if boundary {
		log.Warning("Caution: lambda multiplied by branch length exceeds one; estimates are at the boundary")
	}
	return boundary
}

// ScoreOnly evaluates the posterior score for fixed rates without
// any optimization.
func (s *Session) ScoreOnly(rates []float64) (float64, error) {
	scorer := NewScorer(s)
	score, err := scorer.Score(rates)
	if err != nil {
		return 0, err
	}
	log.Noticef("Lambda : %s & Score: %f", joinFloats(rates), score)
	return score, nil
}
