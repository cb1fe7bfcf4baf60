package optimize

import (
	"math"
	"sort"
)

// Nelder-Mead coefficients: reflection, expansion, contraction,
// shrink.
const (
	rho   = 1
	chi   = 2
	psi   = 0.5
	sigma = 0.5
)

// Initial simplex perturbation: every coordinate is scaled by
// initScale, zero coordinates are set to initZero.
const (
	initScale = 1.05
	initZero  = 0.00025
)

// FMinSearch is a downhill-simplex minimizer. It converges when both
// the objective-value spread and the simplex extent fall below the
// tolerances, or stops at the iteration cap and returns the best
// point found without signaling failure.
type FMinSearch struct {
	// TolX is the tolerance on the simplex extent.
	TolX float64
	// TolF is the tolerance on the objective-value spread.
	TolF float64
	// MaxIter caps the iterations; 0 means 250 per dimension.
	MaxIter int
	// RepPeriod controls how often progress is logged.
	RepPeriod int
}

// NewFMinSearch creates a minimizer with the tight tolerance profile
// (1e-6). Searches over noisier surfaces (rates plus mixture
// weights) relax both tolerances to 1e-5.
func NewFMinSearch() *FMinSearch {
	return &FMinSearch{
		TolX:      1e-6,
		TolF:      1e-6,
		RepPeriod: 10,
	}
}

type point struct {
	x []float64
	f float64
}

// Run minimizes the objective starting from x0.
func (fm *FMinSearch) Run(obj Objective, x0 []float64) *Result {
	n := len(x0)
	if n == 0 {
		panic("empty starting point")
	}
	maxIter := fm.MaxIter
	if maxIter == 0 {
		maxIter = 250 * n
	}

	evals := 0
	eval := func(x []float64) float64 {
		evals++
		return obj.Evaluate(x)
	}

	// initial simplex
	v := make([]point, n+1)
	v[0] = point{append([]float64(nil), x0...), eval(x0)}
	for i := 1; i <= n; i++ {
		x := append([]float64(nil), x0...)
		if x[i-1] != 0 {
			x[i-1] *= initScale
		} else {
			x[i-1] = initZero
		}
		v[i] = point{x, eval(x)}
	}
	sort.SliceStable(v, func(a, b int) bool { return v[a].f < v[b].f })

	xbar := make([]float64, n)
	xr := make([]float64, n)
	xe := make([]float64, n)
	xc := make([]float64, n)

	converged := false
	iter := 0
	for ; iter < maxIter; iter++ {
		fspread := 0.0
		for i := 1; i <= n; i++ {
			if d := math.Abs(v[i].f - v[0].f); d > fspread {
				fspread = d
			}
		}
		extent := 0.0
		for i := 1; i <= n; i++ {
			for j := 0; j < n; j++ {
				if d := math.Abs(v[i].x[j] - v[0].x[j]); d > extent {
					extent = d
				}
			}
		}
		if fspread <= fm.TolF && extent <= fm.TolX {
			converged = true
			break
		}
		if fm.RepPeriod > 0 && iter%fm.RepPeriod == 0 {
			log.Debugf("%d: f=%f (%g/%g)", iter, v[0].f, fspread, extent)
		}

		// centroid of all but the worst point
		for j := 0; j < n; j++ {
			s := 0.0
			for i := 0; i < n; i++ {
				s += v[i].x[j]
			}
			xbar[j] = s / float64(n)
		}
		worst := v[n]

		for j := 0; j < n; j++ {
			xr[j] = xbar[j] + rho*(xbar[j]-worst.x[j])
		}
		fr := eval(xr)

		switch {
		case fr < v[0].f:
			// try to expand
			for j := 0; j < n; j++ {
				xe[j] = xbar[j] + chi*(xr[j]-xbar[j])
			}
			fe := eval(xe)
			if fe < fr {
				copy(worst.x, xe)
				worst.f = fe
			} else {
				copy(worst.x, xr)
				worst.f = fr
			}
		case fr < v[n-1].f:
			copy(worst.x, xr)
			worst.f = fr
		default:
			shrink := false
			if fr < worst.f {
				// outside contraction
				for j := 0; j < n; j++ {
					xc[j] = xbar[j] + psi*(xr[j]-xbar[j])
				}
				fc := eval(xc)
				if fc <= fr {
					copy(worst.x, xc)
					worst.f = fc
				} else {
					shrink = true
				}
			} else {
				// inside contraction
				for j := 0; j < n; j++ {
					xc[j] = xbar[j] - psi*(xbar[j]-worst.x[j])
				}
				fc := eval(xc)
				if fc < worst.f {
					copy(worst.x, xc)
					worst.f = fc
				} else {
					shrink = true
				}
			}
			if shrink {
				for i := 1; i <= n; i++ {
					for j := 0; j < n; j++ {
						v[i].x[j] = v[0].x[j] + sigma*(v[i].x[j]-v[0].x[j])
					}
					v[i].f = eval(v[i].x)
				}
			}
		}
		v[n] = worst
		sort.SliceStable(v, func(a, b int) bool { return v[a].f < v[b].f })
	}

	if !converged {
		log.Warningf("Iterations exceeded (%d)", maxIter)
	}
	log.Debugf("Finished downhill simplex: f=%f after %d iterations", v[0].f, iter)

	return &Result{
		X:           append([]float64(nil), v[0].x...),
		Score:       v[0].f,
		Iters:       iter,
		Evaluations: evals,
		Converged:   converged,
	}
}
