// Package lambda estimates birth-death rates ("lambda") of
// gene-family evolution on a fixed phylogenetic tree. It supports a
// single shared rate, per-branch-class rates, a mixture of latent
// rate clusters, independent per-family rates and likelihood surfaces
// over a rate grid.
package lambda

import (
	"strconv"
	"strings"

	"github.com/op/go-logging"

	"bitbucket.org/mkoren/famrate/family"
)

// log is the global logging variable.
var log = logging.MustGetLogger("lambda")

// Evaluator computes per-family likelihood vectors over candidate
// root sizes for the current rate assignment. bd.Engine is the real
// implementation.
type Evaluator interface {
	// SetRates assigns one rate per branch class; any transition
	// cache is fully rebuilt before SetRates returns.
	SetRates(rates []float64) error
	// FamilyLikelihoods returns the likelihood per candidate root
	// size for one family.
	FamilyLikelihoods(f *family.Family) ([]float64, error)
	// NClasses returns the number of branch rate classes.
	NClasses() int
	// MaxBranchLength returns the longest branch.
	MaxBranchLength() float64
	// Range and SetRange expose the family-size range; per-family
	// search overrides it temporarily.
	Range() family.Range
	SetRange(family.Range)
}

// Annotator is implemented by evaluators that can render the tree
// with per-node likelihood annotations after an evaluation.
type Annotator interface {
	AnnotatedString(f *family.Family) string
}

// Session holds the shared state of one estimation session: the
// likelihood evaluator, the family set and the root-size prior.
// Searches share it read-only, except for the family-size range
// override of the per-family search, which is restored before
// returning.
type Session struct {
	E     Evaluator
	Fams  *family.Set
	Prior Prior
	// OnProgress, when set, is called with the result of every
	// completed search run; checkpoint saves hook in here.
	OnProgress func(*Result)
}

// joinFloats formats values the way search results are logged.
func joinFloats(v []float64) string {
	var b strings.Builder
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', 6, 64))
	}
	return b.String()
}
