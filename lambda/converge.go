package lambda

import (
	"math"
)

// defaultMaxRuns caps the restarts of a convergence-checked search.
const defaultMaxRuns = 10

// Supervisor repeats a randomized search and judges convergence
// across restarts: once a new best score lands within 10*TolF of the
// minimum of all previous scores the search is declared converged.
// Non-convergence is logged, never an error.
type Supervisor struct {
	// MaxRuns caps the number of runs; 0 means the default of 10.
	MaxRuns int
	// TolF is the objective tolerance of the wrapped optimizer.
	TolF float64
}

// Run executes run() at least once. With check unset it runs exactly
// once and no verdict is logged. Scores are compared on the
// minimized objective (the negated posterior score). The best result
// across runs is returned.
func (sup *Supervisor) Run(check bool, run func() (*Result, error)) (*Result, error) {
	maxRuns := sup.MaxRuns
	if maxRuns == 0 {
		maxRuns = defaultMaxRuns
	}

	var best *Result
	scores := make([]float64, 0, maxRuns)
	converged := false
	runs := 0

	for {
		res, err := run()
		if err != nil {
			return nil, err
		}
		objective := -res.Score
		if runs > 0 {
			minScore := scores[0]
			for _, s := range scores[1:] {
				if s < minScore {
					minScore = s
				}
			}
			if math.Abs(minScore-objective) < 10*sup.TolF {
				converged = true
			}
		}
		scores = append(scores, objective)
		if best == nil || res.Score > best.Score {
			best = res
		}
		runs++
		if !check || converged || runs >= maxRuns {
			break
		}
	}

	best.Runs = runs
	if check {
		if converged {
			log.Noticef("score converged in %d runs.", runs)
		} else {
			log.Noticef("score failed to converge in %d runs.", maxRuns)
		}
		best.Converged = converged
	}
	return best, nil
}
