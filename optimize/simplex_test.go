package optimize

import (
	"math"
	"testing"

	"github.com/op/go-logging"
)

func init() {
	logging.SetLevel(logging.WARNING, "optimize")
}

func TestQuadratic(tst *testing.T) {
	obj := ObjectiveFunc(func(x []float64) float64 {
		return (x[0]-3)*(x[0]-3) + 2*(x[1]+1)*(x[1]+1)
	})
	fm := NewFMinSearch()
	res := fm.Run(obj, []float64{0, 0})
	if !res.Converged {
		tst.Error("expected convergence")
	}
	if math.Abs(res.X[0]-3) > 1e-4 || math.Abs(res.X[1]+1) > 1e-4 {
		tst.Error("wrong minimum:", res.X)
	}
	if res.Score > 1e-6 {
		tst.Error("wrong score:", res.Score)
	}
}

func TestRosenbrock(tst *testing.T) {
	obj := ObjectiveFunc(func(x []float64) float64 {
		a := 1 - x[0]
		b := x[1] - x[0]*x[0]
		return a*a + 100*b*b
	})
	fm := NewFMinSearch()
	res := fm.Run(obj, []float64{-1.2, 1})
	if math.Abs(res.X[0]-1) > 1e-3 || math.Abs(res.X[1]-1) > 1e-3 {
		tst.Error("wrong minimum:", res.X)
	}
}

func TestPenaltyBarrier(tst *testing.T) {
	// infeasible half-space mapped to +Inf must not trap the search
	obj := ObjectiveFunc(func(x []float64) float64 {
		if x[0] < 0 {
			return math.Inf(+1)
		}
		return (x[0] - 0.5) * (x[0] - 0.5)
	})
	fm := NewFMinSearch()
	res := fm.Run(obj, []float64{2})
	if math.Abs(res.X[0]-0.5) > 1e-4 {
		tst.Error("wrong minimum:", res.X)
	}
	if math.IsNaN(res.Score) || math.IsInf(res.Score, 0) {
		tst.Error("score should be finite:", res.Score)
	}
}

func TestIterationCap(tst *testing.T) {
	calls := 0
	obj := ObjectiveFunc(func(x []float64) float64 {
		calls++
		// no minimum: keeps decreasing
		return x[0]
	})
	fm := NewFMinSearch()
	fm.MaxIter = 20
	res := fm.Run(obj, []float64{0})
	if res.Converged {
		tst.Error("should not converge on an unbounded objective")
	}
	if res.Iters != 20 {
		tst.Error("expected to stop at the cap, got", res.Iters)
	}
	if res.Evaluations != calls {
		tst.Error("evaluation count mismatch")
	}
}

func TestConstantObjective(tst *testing.T) {
	obj := ObjectiveFunc(func(x []float64) float64 { return 42 })
	fm := NewFMinSearch()
	res := fm.Run(obj, []float64{1, 2, 3})
	if !res.Converged {
		tst.Error("constant objective should converge")
	}
	if res.Score != 42 {
		tst.Error("wrong score:", res.Score)
	}
}
