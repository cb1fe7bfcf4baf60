package lambda

import (
	"fmt"
	"math"
)

// ZeroPosteriorError reports a family whose best posterior is exactly
// zero. This is fatal for the whole scoring pass: the aggregate
// objective needs every family.
type ZeroPosteriorError struct {
	Family string
}

func (e *ZeroPosteriorError) Error() string {
	return fmt.Sprintf("posterior probability for family %s is 0", e.Family)
}

// Scorer combines family likelihoods with the root-size prior into
// the aggregate search objective: sum over families of the log of the
// best unnormalized posterior over candidate root sizes. The
// posterior is deliberately unnormalized (no division by evidence);
// only comparisons between rate vectors using this same quantity are
// meaningful.
type Scorer struct {
	sess *Session
	// per-family contributions of the last pass, duplicate
	// references copy from here
	maxPosterior []float64
	maxLikelihood []float64
}

// NewScorer creates a scorer for a session.
func NewScorer(sess *Session) *Scorer {
	n := len(sess.Fams.Families)
	return &Scorer{
		sess:          sess,
		maxPosterior:  make([]float64, n),
		maxLikelihood: make([]float64, n),
	}
}

// Score evaluates a rate vector. Any negative rate makes the vector
// infeasible: the score is log(0), steering the optimizer away
// without an error. A zero best posterior for any family aborts with
// ZeroPosteriorError.
func (sc *Scorer) Score(rates []float64) (score float64, err error) {
	for _, r := range rates {
		if r < 0 {
			score = math.Inf(-1)
			log.Infof("Lambda : %s & Score: %f", joinFloats(rates), score)
			return score, nil
		}
	}

	if err = sc.sess.E.SetRates(rates); err != nil {
		return 0, err
	}

	for i, f := range sc.sess.Fams.Families {
		if f.Ref >= 0 && f.Ref != i {
			sc.maxLikelihood[i] = sc.maxLikelihood[f.Ref]
			sc.maxPosterior[i] = sc.maxPosterior[f.Ref]
		} else {
			lik, err := sc.sess.E.FamilyLikelihoods(f)
			if err != nil {
				return 0, err
			}
			maxLik, maxIdx := max(lik)
			if f.MaxLH < 0 {
				f.MaxLH = maxIdx
			}
			sc.maxLikelihood[i] = maxLik
			best := 0.0
			for s, l := range lik {
				// likelihood index s and prior index s both
				// start at the minimal root size
				if p := math.Exp(math.Log(l) + math.Log(sc.sess.Prior[s])); p > best {
					best = p
				}
			}
			sc.maxPosterior[i] = best
		}
		if sc.maxLikelihood[i] == 0 {
			return 0, &ZeroPosteriorError{Family: f.ID}
		}
		score += math.Log(sc.maxPosterior[i])
	}

	log.Infof("Lambda : %s & Score: %f", joinFloats(rates), score)
	return score, nil
}

// max returns the maximum value and its index.
func max(v []float64) (m float64, idx int) {
	m = math.Inf(-1)
	for i, x := range v {
		if x > m {
			m = x
			idx = i
		}
	}
	return
}

// searchObjective negates the scorer for minimization. A fatal
// scoring error is remembered and surfaced after the optimizer run;
// the optimizer itself only sees a +Inf penalty.
type searchObjective struct {
	score func([]float64) (float64, error)
	err   error
}

func (o *searchObjective) Evaluate(x []float64) float64 {
	if o.err != nil {
		return math.Inf(+1)
	}
	s, err := o.score(x)
	if err != nil {
		o.err = err
		return math.Inf(+1)
	}
	return -s
}
