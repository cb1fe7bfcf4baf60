package lambda

import (
	"math"
	"strings"
	"testing"

	"bitbucket.org/mkoren/famrate/family"
	"github.com/op/go-logging"
)

// annotStub adds tree rendering to the scripted evaluator.
type annotStub struct {
	stubEval
}

func (e *annotStub) AnnotatedString(f *family.Family) string {
	return "(" + f.ID + ");"
}

func TestSearchEach(tst *testing.T) {
	peak := map[string]float64{"famA": 0.2, "famB": 0.2}
	e := &annotStub{stubEval{
		nclasses: 1,
		maxbl:    1,
		rng:      family.Range{Min: 0, Max: 100, RootMin: 1, RootMax: 50},
		lik: func(f *family.Family, rates []float64) []float64 {
			d := rates[0] - peak[f.ID]
			return []float64{math.Exp(-d * d * 100)}
		},
	}}
	fams := []*family.Family{
		{ID: "famA", Counts: []int{1, 2}, Ref: -1, MaxLH: -1},
		{ID: "famB", Counts: []int{1, 2}, Ref: 0, MaxLH: -1},
	}
	sess := &Session{
		E:     e,
		Fams:  &family.Set{Species: []string{"a", "b"}, Families: fams},
		Prior: Prior{1},
	}
	sessRange := e.Range()

	fits, err := sess.SearchEach()
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if len(fits) != 2 {
		tst.Fatal("wrong fit count:", len(fits))
	}
	if math.Abs(fits[0].Rates[0]-0.2) > 1e-3 {
		tst.Error("fit missed the peak:", fits[0].Rates)
	}
	if fits[0].Tree != "(famA);" {
		tst.Error("missing tree annotation:", fits[0].Tree)
	}

	// the second family duplicates the first: no optimization
	if fits[1].Iters != 0 {
		tst.Error("duplicate family should not be optimized:", fits[1].Iters)
	}
	if fits[1].Rates[0] != fits[0].Rates[0] {
		tst.Error("duplicate family should copy the reference fit")
	}
	if fams[1].Rates == nil || fams[1].Mu == nil {
		tst.Error("duplicate family should record rates and mu")
	}

	if e.Range() != sessRange {
		tst.Error("session range should be restored:", e.Range())
	}
}

func TestFamilyObjectiveNegativeRate(tst *testing.T) {
	memory := logging.InitForTesting(logging.INFO)
	defer logging.Reset()

	sess, e := newStubSession(1, flatLik)
	obj := &familyObjective{sess: sess, fam: 0}
	if v := obj.Evaluate([]float64{-0.1}); !math.IsInf(v, +1) {
		tst.Error("negative rate should penalize with +inf, got", v)
	}
	if e.likCalls != 0 {
		tst.Error("negative rate should not touch the evaluator")
	}

	traced := false
	for n := memory.Head(); n != nil; n = n.Next() {
		if strings.Contains(n.Record.Message(), "Lambda : -0.100000 & Score: -Inf") {
			traced = true
		}
	}
	if !traced {
		tst.Error("infeasible point should leave a trace line")
	}
}

func TestSearchEachBoundary(tst *testing.T) {
	e := &annotStub{stubEval{
		nclasses: 1,
		maxbl:    2,
		rng:      family.Range{Min: 0, Max: 100, RootMin: 1, RootMax: 50},
		lik: func(f *family.Family, rates []float64) []float64 {
			// monotone in the rate, pushing the fit to the boundary
			return []float64{1 - math.Exp(-rates[0])}
		},
	}}
	fams := []*family.Family{
		{ID: "famA", Counts: []int{3, 4}, Ref: -1, MaxLH: -1},
	}
	sess := &Session{
		E:     e,
		Fams:  &family.Set{Species: []string{"a", "b"}, Families: fams},
		Prior: Prior{1},
	}
	fits, err := sess.SearchEach()
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if !fits[0].Boundary {
		tst.Error("monotone likelihood should flag the boundary, rate:", fits[0].Rates)
	}
}
