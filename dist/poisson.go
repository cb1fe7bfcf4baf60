// Package dist implements functions for discrete distributions.
package dist

import (
	"math"

	"github.com/gonum/mathext"
)

// PoissonLnPMF returns the log probability of observing k events
// under a Poisson distribution with the given rate.
func PoissonLnPMF(k float64, rate float64) float64 {
	if rate < 0 || k < 0 {
		return math.NaN()
	}
	lg, _ := math.Lgamma(k + 1)
	return k*math.Log(rate) - rate - lg
}

// PoissonPMF returns the probability of observing k events under a
// Poisson distribution with the given rate.
func PoissonPMF(k float64, rate float64) float64 {
	if rate == 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(PoissonLnPMF(k, rate))
}

// PoissonTail returns P(X > k), the mass beyond k. Used to report how
// much of a fitted prior is lost to truncation.
func PoissonTail(k float64, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	// P(X > k) is the regularized lower incomplete gamma P(k+1, rate).
	return mathext.GammaInc(k+1, rate)
}
