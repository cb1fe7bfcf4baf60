// Package optimize provides a derivative-free downhill-simplex
// minimizer for scalar functions of a real vector.
package optimize

import (
	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("optimize")

// Objective is a scalar function of a real vector, minimized by the
// optimizer. Implementations are free to return +Inf for infeasible
// points.
type Objective interface {
	Evaluate(x []float64) float64
}

// ObjectiveFunc adapts a plain function to the Objective interface.
type ObjectiveFunc func([]float64) float64

// Evaluate calls the function.
func (f ObjectiveFunc) Evaluate(x []float64) float64 {
	return f(x)
}

// Result is the outcome of one optimizer run.
type Result struct {
	// X is the best point found.
	X []float64 `json:"x"`
	// Score is the objective value at X.
	Score float64 `json:"score"`
	// Iters is the number of simplex iterations performed.
	Iters int `json:"iterations"`
	// Evaluations is the number of objective calls.
	Evaluations int `json:"evaluations"`
	// Converged reports whether both tolerances were reached before
	// the iteration cap. Hitting the cap is not an error; the best
	// point found is still returned.
	Converged bool `json:"converged"`
}
