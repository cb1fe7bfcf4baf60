package bd

import (
	"fmt"
	"math"

	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/tree"
)

// Engine computes per-family likelihood vectors over candidate root
// sizes for a tree with per-class birth-death rates. One engine is
// created per session; rates are set between optimizer evaluations
// and the transition cache is rebuilt before any scoring.
type Engine struct {
	t        *tree.Tree
	nclasses int
	rng      family.Range
	rates    []float64
	cache    *Cache
	// column of a leaf node in the family count vector, indexed by
	// node ID; -1 for species absent from the family table
	leafCol []int
	// partial likelihoods per node, reused between families
	plh [][]float64
}

// NewEngine creates an engine for a tree and a family set. Every
// leaf must have a matching species column.
func NewEngine(t *tree.Tree, s *family.Set) (*Engine, error) {
	col := make(map[string]int, len(s.Species))
	for i, name := range s.Species {
		col[name] = i
	}
	e := &Engine{
		t:        t,
		nclasses: t.NClasses(),
		rng:      s.SessionRange(),
		leafCol:  make([]int, t.NNodes()),
		plh:      make([][]float64, t.NNodes()),
	}
	for node := range t.Terminals() {
		c, ok := col[node.Name]
		if !ok {
			return nil, fmt.Errorf("no count column for leaf %q", node.Name)
		}
		e.leafCol[node.ID] = c
	}
	return e, nil
}

// MaxBranchLength returns the longest branch of the tree.
func (e *Engine) MaxBranchLength() float64 {
	return e.t.MaxBranchLength()
}

// NClasses returns the number of branch rate classes.
func (e *Engine) NClasses() int {
	return e.nclasses
}

// Range returns the current family-size range.
func (e *Engine) Range() family.Range {
	return e.rng
}

// SetRange changes the family-size range. The transition cache is
// dropped: matrix dimensions depend on the range.
func (e *Engine) SetRange(r family.Range) {
	e.rng = r
	e.cache = nil
	if e.rates != nil {
		e.rebuild()
	}
}

// SetRates assigns one rate per branch class and rebuilds the
// transition cache. The rebuild completes before SetRates returns, so
// all subsequent family scoring sees a consistent cache.
func (e *Engine) SetRates(rates []float64) error {
	if len(rates) != e.nclasses {
		return fmt.Errorf("expected %d rates, got %d", e.nclasses, len(rates))
	}
	e.rates = rates
	e.rebuild()
	return nil
}

// size returns the matrix dimension: root sizes can exceed the leaf
// size cap, the cache must cover both.
func (e *Engine) size() int {
	if e.rng.RootMax > e.rng.Max {
		return e.rng.RootMax + 1
	}
	return e.rng.Max + 1
}

func (e *Engine) rebuild() {
	e.cache = NewCache(e.size() - 1)
	for _, node := range e.t.Nodes() {
		if node.IsRoot() {
			continue
		}
		e.cache.Matrix(e.rates[node.Class], node.BranchLength)
	}
}

// FamilyLikelihoods returns the likelihood of observing the family's
// leaf counts for every candidate root size in the range
// [RootMin, RootMax]. Partial likelihood vectors per node are kept
// until the next call, for reporting.
func (e *Engine) FamilyLikelihoods(f *family.Family) ([]float64, error) {
	if e.rates == nil {
		return nil, fmt.Errorf("rates were not set")
	}
	n := e.size()

	for node := range e.t.Terminals() {
		v := e.plh[node.ID]
		if v == nil || len(v) != n {
			v = make([]float64, n)
			e.plh[node.ID] = v
		}
		count := f.Counts[e.leafCol[node.ID]]
		for s := 0; s < n; s++ {
			switch {
			case count == family.Missing:
				v[s] = 1
			case s == count:
				v[s] = 1
			default:
				v[s] = 0
			}
		}
	}

	for _, node := range e.t.NodeOrder() {
		v := e.plh[node.ID]
		if v == nil || len(v) != n {
			v = make([]float64, n)
			e.plh[node.ID] = v
		}
		smin, smax := 0, e.rng.Max
		if node.IsRoot() {
			smin, smax = e.rng.RootMin, e.rng.RootMax
		}
		for s := 0; s < n; s++ {
			v[s] = 0
		}
		for s := smin; s <= smax; s++ {
			l := 1.0
			for _, child := range node.ChildNodes() {
				m := e.cache.Matrix(e.rates[child.Class], child.BranchLength)
				row := m.RawRowView(s)
				cplh := e.plh[child.ID]
				sum := 0.0
				for c := e.rng.Min; c <= e.rng.Max; c++ {
					sum += row[c] * cplh[c]
				}
				l *= sum
			}
			v[s] = l
		}
	}

	root := e.plh[e.t.Node.ID]
	res := make([]float64, e.rng.NRoot())
	copy(res, root[e.rng.RootMin:e.rng.RootMax+1])
	return res, nil
}

// nodeMax returns the maximum partial likelihood of a node from the
// last FamilyLikelihoods call.
func (e *Engine) nodeMax(node *tree.Node) float64 {
	v := e.plh[node.ID]
	if v == nil {
		return math.NaN()
	}
	max := math.Inf(-1)
	for _, l := range v {
		if l > max {
			max = l
		}
	}
	return max
}
