package lambda

import (
	"fmt"
	"math"
	"math/rand"

	"bitbucket.org/mkoren/famrate/dist"
	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/optimize"
)

// Prior is the empirical distribution over root family sizes;
// Prior[i] is the probability of root size rootMin+i. It is computed
// once per session and stays immutable.
type Prior []float64

// PoissonFit is the outcome of the empirical prior estimation.
type PoissonFit struct {
	// Rate is the fitted Poisson rate of the shifted leaf counts.
	Rate float64 `json:"rate"`
	// Score is the maximized log-likelihood.
	Score float64 `json:"score"`
	// Iters is the number of optimizer iterations.
	Iters int `json:"iterations"`
}

// poissonObjective is the negative log-likelihood of shifted leaf counts
// under a Poisson rate. NaN probability mass is coerced to zero.
type poissonObjective struct {
	counts []int
}

func (o *poissonObjective) Evaluate(x []float64) float64 {
	rate := x[0]
	score := 0.0
	for _, c := range o.counts {
		ll := dist.PoissonPMF(float64(c), rate)
		if math.IsNaN(ll) {
			ll = 0
		}
		score += math.Log(ll)
	}
	return -score
}

// EstimatePrior fits an empirical Poisson prior over root family
// size. All positive leaf counts are shifted by -1 (zero counts are
// dropped: the root of an observed family had at least one member)
// and a single Poisson rate is fitted from a random non-negative
// seed. The prior is the shifted pmf over [rootMin, rootMin+SizeMax).
func EstimatePrior(leafCounts []int, rootMin int) (Prior, *PoissonFit, error) {
	shifted := make([]int, 0, len(leafCounts))
	for _, c := range leafCounts {
		if c > 0 {
			shifted = append(shifted, c-1)
		}
	}
	if len(shifted) == 0 {
		return nil, nil, fmt.Errorf("no positive leaf counts to estimate a prior from")
	}

	fm := optimize.NewFMinSearch()
	res := fm.Run(&poissonObjective{shifted}, []float64{rand.Float64()})

	fit := &PoissonFit{
		Rate:  res.X[0],
		Score: -res.Score,
		Iters: res.Iters,
	}
	log.Infof("Empirical Prior Estimation Result: (%d iterations)", fit.Iters)
	log.Noticef("Poisson lambda: %f & Score: %f", fit.Rate, fit.Score)

	prior := make(Prior, family.SizeMax)
	for i := range prior {
		p := dist.PoissonPMF(float64(rootMin-1+i), fit.Rate)
		if math.IsNaN(p) {
			p = 0
		}
		prior[i] = p
	}
	if tail := dist.PoissonTail(float64(rootMin-1+family.SizeMax), fit.Rate); tail > 0 {
		log.Infof("Prior mass beyond size %d: %g", family.SizeMax, tail)
	}

	return prior, fit, nil
}
