// Package bd implements the birth-death model of gene-family size
// evolution: transition probabilities between family sizes along a
// branch, a per-branch probability-matrix cache and the pruning
// likelihood over a tree.
package bd

import (
	"math"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("bd")

// chooseLn returns the log of the binomial coefficient C(n, k).
func chooseLn(n, k float64) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	lgn, _ := math.Lgamma(n + 1)
	lgk, _ := math.Lgamma(k + 1)
	lgnk, _ := math.Lgamma(n - k + 1)
	return lgn - lgk - lgnk
}

// TransitionP returns the probability of a family of size s evolving
// into size c along a branch of length t under a birth-death process
// with equal birth and death rate.
//
// With alpha = rate*t/(1+rate*t):
//
//	P(c|s) = sum_j C(s,j) C(s+c-j-1,s-1) alpha^(s+c-2j) (1-2alpha)^j
//
// Size zero is absorbing: an extinct family stays extinct. For
// rate*t >= 1 alpha exceeds 1/2 and the series alternates; the result
// degrades numerically, which is why fitted rates are checked against
// the maximum branch length.
func TransitionP(s, c int, rate, t float64) float64 {
	if s == 0 {
		if c == 0 {
			return 1
		}
		return 0
	}
	alpha := rate * t / (1 + rate*t)
	n := s
	if c < s {
		n = c
	}
	p := 0.0
	for j := 0; j <= n; j++ {
		p += math.Exp(chooseLn(float64(s), float64(j))+
			chooseLn(float64(s+c-j-1), float64(s-1))) *
			math.Pow(alpha, float64(s+c-2*j)) *
			math.Pow(1-2*alpha, float64(j))
	}
	if p < 0 || math.IsNaN(p) {
		p = 0
	}
	return p
}

// branchKey identifies one transition matrix: a rate and a branch
// length.
type branchKey struct {
	rate   float64
	length float64
}

// Cache holds transition matrices for every distinct (rate, branch
// length) pair, all sized to the current family-size range. The cache
// is fully rebuilt when rates change, before any family is scored.
type Cache struct {
	size     int
	matrices map[branchKey]*mat64.Dense
}

// NewCache creates a cache for sizes 0..size.
func NewCache(size int) *Cache {
	return &Cache{
		size:     size,
		matrices: make(map[branchKey]*mat64.Dense),
	}
}

// Matrix returns the transition matrix for a rate and branch length,
// computing it on first use. Rows are parent sizes, columns child
// sizes.
func (c *Cache) Matrix(rate, length float64) *mat64.Dense {
	key := branchKey{rate, length}
	if m, ok := c.matrices[key]; ok {
		return m
	}
	n := c.size + 1
	m := mat64.NewDense(n, n, nil)
	for s := 0; s < n; s++ {
		for t := 0; t < n; t++ {
			m.Set(s, t, TransitionP(s, t, rate, length))
		}
	}
	c.matrices[key] = m
	return m
}
