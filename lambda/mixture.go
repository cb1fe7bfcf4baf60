package lambda

import (
	"fmt"
	"math"

	"bitbucket.org/mkoren/famrate/optimize"
)

// Membership holds per-family cluster responsibilities; the first
// index is the family, the second the cluster.
type Membership [][]float64

// mixtureScorer evaluates the posterior score of a rate mixture. The
// per-cluster best posteriors of the last evaluation are kept so the
// responsibilities can be recovered after the optimizer finishes.
type mixtureScorer struct {
	sess *Session
	p    *Params
	// post[k][i] is the best posterior of family i under cluster k.
	post [][]float64
}

func newMixtureScorer(sess *Session, p *Params) *mixtureScorer {
	post := make([][]float64, p.K)
	for k := range post {
		post[k] = make([]float64, len(sess.Fams.Families))
	}
	return &mixtureScorer{sess: sess, p: p, post: post}
}

// Score computes the summed log of weight-mixed posteriors for the
// parameter vector v (rates followed by free weights). Infeasible
// vectors score negative infinity.
func (m *mixtureScorer) Score(v []float64) (float64, error) {
	copy(m.p.Values, v)
	for _, x := range v {
		if x < 0 {
			log.Infof("Lambda : %s & Score: %f", joinFloats(v), math.Inf(-1))
			return math.Inf(-1), nil
		}
	}
	weights := m.p.FullWeights()
	for _, w := range weights {
		if w < 0 {
			log.Infof("Lambda : %s & Score: %f", joinFloats(v), math.Inf(-1))
			return math.Inf(-1), nil
		}
	}

	fams := m.sess.Fams.Families
	for k := 0; k < m.p.K; k++ {
		if err := m.sess.E.SetRates(m.p.ClusterRates(k)); err != nil {
			return 0, err
		}
		for i, f := range fams {
			if f.Ref >= 0 && f.Ref != i {
				m.post[k][i] = m.post[k][f.Ref]
				continue
			}
			lik, err := m.sess.E.FamilyLikelihoods(f)
			if err != nil {
				return 0, err
			}
			best := 0.0
			for s, l := range lik {
				p := l * m.sess.Prior[s]
				if p > best {
					best = p
				}
			}
			m.post[k][i] = best
		}
	}

	score := 0.0
	for i, f := range fams {
		mixed := 0.0
		for k := 0; k < m.p.K; k++ {
			mixed += weights[k] * m.post[k][i]
		}
		if mixed == 0 {
			return 0, &ZeroPosteriorError{Family: f.ID}
		}
		score += math.Log(mixed)
	}
	log.Infof("Lambda : %s & Score: %f", joinFloats(v), score)
	return score, nil
}

// Responsibilities normalizes the posteriors of the last evaluation
// into per-family cluster memberships.
func (m *mixtureScorer) Responsibilities() Membership {
	weights := m.p.FullWeights()
	memb := make(Membership, len(m.post[0]))
	for i := range memb {
		row := make([]float64, m.p.K)
		total := 0.0
		for k := 0; k < m.p.K; k++ {
			row[k] = weights[k] * m.post[k][i]
			total += row[k]
		}
		if total > 0 {
			for k := range row {
				row[k] /= total
			}
		}
		memb[i] = row
	}
	return memb
}

const (
	mixtureTolX = 1e-5
	mixtureTolF = 1e-5
	// emMaxIters caps the weight-reseeding loop; the reference
	// search has no cap and can cycle on flat mixtures.
	emMaxIters = 100
)

// SearchMixture estimates a K-cluster rate mixture. Each round
// optimizes rates and free weights jointly, then reseeds the free
// weights from the mean responsibilities and repeats until the first
// weight parameter stabilizes.
func (s *Session) SearchMixture(p *Params, checkConv bool) (*Result, error) {
	// a one-cluster mixture has no free weight to converge on; a
	// plain search covers that case
	if p.K < 2 {
		return nil, fmt.Errorf("mixture search needs at least 2 clusters, got %d", p.K)
	}
	maxbl := s.E.MaxBranchLength()
	sup := &Supervisor{TolF: mixtureTolF}
	res, err := sup.Run(checkConv, func() (*Result, error) {
		p.Randomize(maxbl)
		r, err := s.searchMixtureOnce(p)
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
	for k, w := range res.Weights {
		log.Noticef("p%d: %f", k, w)
	}
	return res, nil
}

func (s *Session) searchMixtureOnce(p *Params) (*Result, error) {
	scorer := newMixtureScorer(s, p)
	iters := 0
	settled := false
	for em := 0; em < emMaxIters; em++ {
		obj := &searchObjective{score: scorer.Score}
		fm := optimize.NewFMinSearch()
		fm.TolX = mixtureTolX
		fm.TolF = mixtureTolF
		r := fm.Run(obj, p.Values)
		if obj.err != nil {
			return nil, obj.err
		}
		prev := p.FirstWeight()
		copy(p.Values, r.X)
		iters += r.Iters

		// The posteriors of the final simplex point are needed for
		// the reseed; rescore at the optimum.
		if _, err := scorer.Score(r.X); err != nil {
			return nil, err
		}
		memb := scorer.Responsibilities()
		s.reseedWeights(p, memb)
		log.Infof("EM round %d: score %f", em+1, -r.Score)
		if math.Abs(p.FirstWeight()-prev) < mixtureTolX {
			settled = true
			break
		}
	}
	if !settled {
		log.Warningf("Weight reseeding did not settle in %d rounds", emMaxIters)
	}
	log.Noticef("Lambda Search Result: %d", iters)

	// Final evaluation at the reseeded weights fixes the
	// responsibilities reported with the result.
	score, err := scorer.Score(p.Values)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Rates:      append([]float64(nil), p.Rates()...),
		Weights:    p.FullWeights(),
		Score:      score,
		Iters:      iters,
		Runs:       1,
		Membership: scorer.Responsibilities(),
	}
	res.Boundary = s.warnBoundary(res.Rates)
	return res, nil
}

// reseedWeights replaces the free weight parameters with the mean
// responsibility of their cluster.
func (s *Session) reseedWeights(p *Params, memb Membership) {
	if len(memb) == 0 {
		return
	}
	w := p.Weights()
	for slot := range w {
		k := p.freeCluster(slot)
		sum := 0.0
		for _, row := range memb {
			sum += row[k]
		}
		w[slot] = sum / float64(len(memb))
	}
}
