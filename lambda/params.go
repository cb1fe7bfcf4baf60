package lambda

import (
	"fmt"
	"math/rand"
)

// Params is the free-parameter vector of a search with named slices
// instead of offset arithmetic. The layout is
//
//	[rate_1 ... rate_NRates, weight_1 ... weight_{K-1}]
//
// With a mixture of K clusters every cluster carries its own set of R
// branch-class rates, so NRates = R*(K-fix0). FixCluster0 pins
// cluster 0 to rate zero (the no-change cluster) and removes its
// weight from the free vector; the weight is reconstructed as
// 1 - sum(others) at reporting time.
type Params struct {
	R           int
	K           int
	FixCluster0 bool
	Values      []float64
}

// NewParams allocates a zero parameter vector for R branch classes
// and K mixture clusters (K = 0 for no mixture).
func NewParams(r, k int, fixCluster0 bool) *Params {
	p := &Params{R: r, K: k, FixCluster0: fixCluster0}
	p.Values = make([]float64, p.NParams())
	return p
}

func (p *Params) fix0() int {
	if p.K > 0 && p.FixCluster0 {
		return 1
	}
	return 0
}

// NRates returns the number of free rate parameters.
func (p *Params) NRates() int {
	if p.K > 0 {
		return p.R * (p.K - p.fix0())
	}
	return p.R
}

// NWeights returns the number of free weight parameters.
func (p *Params) NWeights() int {
	if p.K > 0 {
		return p.K - 1
	}
	return 0
}

// NParams returns the total free-parameter count.
func (p *Params) NParams() int {
	return p.NRates() + p.NWeights()
}

// Rates returns the rate slice of the vector.
func (p *Params) Rates() []float64 {
	return p.Values[:p.NRates()]
}

// Weights returns the free-weight slice of the vector.
func (p *Params) Weights() []float64 {
	return p.Values[p.NRates():]
}

// FirstWeight returns the first free weight parameter; the EM loop
// probes it for convergence.
func (p *Params) FirstWeight() float64 {
	return p.Values[p.NRates()]
}

// freeCluster maps a free-weight slot to its cluster index.
func (p *Params) freeCluster(slot int) int {
	return slot + p.fix0()
}

// ClusterRates returns the R rates of cluster k. With FixCluster0 the
// cluster 0 rates are all zero.
func (p *Params) ClusterRates(k int) []float64 {
	if p.K == 0 {
		return p.Rates()
	}
	if p.FixCluster0 {
		if k == 0 {
			return make([]float64, p.R)
		}
		k--
	}
	return p.Values[k*p.R : (k+1)*p.R]
}

// FullWeights reconstructs all K cluster weights from the free
// slice; the remaining cluster gets 1 - sum(free).
func (p *Params) FullWeights() []float64 {
	if p.K == 0 {
		return nil
	}
	w := make([]float64, p.K)
	sum := 0.0
	for slot, v := range p.Weights() {
		w[p.freeCluster(slot)] = v
		sum += v
	}
	if p.FixCluster0 {
		w[0] = 1 - sum
	} else {
		w[p.K-1] = 1 - sum
	}
	return w
}

// Randomize seeds the vector for a fresh run: rates uniform below the
// feasibility bound 1/maxBranchLength, weights as a normalized
// uniform sample over all K clusters.
func (p *Params) Randomize(maxBranchLength float64) {
	rates := p.Rates()
	for i := range rates {
		rates[i] = rand.Float64() / maxBranchLength
	}
	if p.K > 0 {
		w := make([]float64, p.K)
		sum := 0.0
		for i := range w {
			w[i] = rand.Float64()
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
		free := p.Weights()
		for slot := range free {
			free[slot] = w[p.freeCluster(slot)]
		}
	}
}

// SetRates copies user-provided rate values into the vector.
func (p *Params) SetRates(rates []float64) error {
	if len(rates) != p.NRates() {
		return fmt.Errorf("expected %d rate values, got %d", p.NRates(), len(rates))
	}
	copy(p.Rates(), rates)
	return nil
}

// SetWeights copies user-provided weights for all K clusters into the
// free slice.
func (p *Params) SetWeights(weights []float64) error {
	if len(weights) != p.K {
		return fmt.Errorf("expected %d weight values, got %d", p.K, len(weights))
	}
	free := p.Weights()
	for slot := range free {
		free[slot] = weights[p.freeCluster(slot)]
	}
	return nil
}
