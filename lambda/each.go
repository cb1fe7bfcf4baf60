package lambda

import (
	"math"

	"bitbucket.org/mkoren/famrate/optimize"
)

// FamilyFit is the outcome of an independent single-family rate
// search.
type FamilyFit struct {
	// ID is the family identifier.
	ID string `json:"id"`
	// Rates are the fitted per-class birth-death rates.
	Rates []float64 `json:"rates"`
	// Score is the maximized log-likelihood of the family.
	Score float64 `json:"score"`
	// Iters counts optimizer iterations; zero for duplicates.
	Iters int `json:"iterations"`
	// Boundary is set when a fitted rate sits near the stability
	// boundary of the longest branch.
	Boundary bool `json:"boundary,omitempty"`
	// Tree is the likelihood-annotated tree rendering, when the
	// evaluator supports it.
	Tree string `json:"tree,omitempty"`
}

// familyObjective is the negated single-family log-likelihood. The
// prior plays no role here: with free per-family rates the root-size
// prior would only shift every family by the same surface.
type familyObjective struct {
	sess *Session
	fam  int
	err  error
}

func (o *familyObjective) Evaluate(x []float64) float64 {
	if o.err != nil {
		return math.Inf(+1)
	}
	for _, r := range x {
		if r < 0 {
			log.Infof("\tLambda : %s & Score: %f", joinFloats(x), math.Inf(-1))
			return math.Inf(+1)
		}
	}
	f := o.sess.Fams.Families[o.fam]
	if err := o.sess.E.SetRates(x); err != nil {
		o.err = err
		return math.Inf(+1)
	}
	lik, err := o.sess.E.FamilyLikelihoods(f)
	if err != nil {
		o.err = err
		return math.Inf(+1)
	}
	m, _ := max(lik)
	score := math.Log(m)
	log.Infof("\tLambda : %s & Score: %f", joinFloats(x), score)
	return -score
}

// SearchEach fits an independent rate vector for every family. Each
// family is scored under a size range forced tight around its own
// counts; the session range is restored before returning. The
// previous family's fit seeds the next search. Duplicate families
// copy the fit of their reference without any optimization.
func (s *Session) SearchEach() ([]*FamilyFit, error) {
	sessRange := s.E.Range()
	defer s.E.SetRange(sessRange)

	maxbl := s.E.MaxBranchLength()
	nrates := s.E.NClasses()
	seed := make([]float64, nrates)
	for i := range seed {
		seed[i] = 0.5 / maxbl
	}

	annotator, _ := s.E.(Annotator)
	fams := s.Fams.Families
	fits := make([]*FamilyFit, len(fams))
	boundary := false

	for i, f := range fams {
		if f.Ref >= 0 && f.Ref != i {
			ref := fits[f.Ref]
			fits[i] = &FamilyFit{
				ID:       f.ID,
				Rates:    ref.Rates,
				Score:    ref.Score,
				Boundary: ref.Boundary,
				Tree:     ref.Tree,
			}
			f.Rates = ref.Rates
			f.Mu = make([]float64, nrates)
			continue
		}

		s.E.SetRange(f.ForcedRange())
		obj := &familyObjective{sess: s, fam: i}
		fm := optimize.NewFMinSearch()
		fm.TolX = searchTolX
		fm.TolF = searchTolF
		r := fm.Run(obj, seed)
		if obj.err != nil {
			return nil, obj.err
		}

		fit := &FamilyFit{
			ID:    f.ID,
			Rates: append([]float64(nil), r.X...),
			Score: -r.Score,
			Iters: r.Iters,
		}
		for _, rate := range fit.Rates {
			a := rate * maxbl
			if a >= 0.5 || math.Abs(a-0.5) < 1e-3 {
				fit.Boundary = true
				boundary = true
			}
		}

		// Re-evaluate at the optimum so the partial likelihoods
		// and the cached best root size match the fit before the
		// tree is rendered.
		if err := s.E.SetRates(fit.Rates); err != nil {
			return nil, err
		}
		lik, err := s.E.FamilyLikelihoods(f)
		if err != nil {
			return nil, err
		}
		_, f.MaxLH = max(lik)
		if annotator != nil {
			fit.Tree = annotator.AnnotatedString(f)
		}
		f.Rates = fit.Rates
		f.Mu = make([]float64, nrates)
		fits[i] = fit
		seed = fit.Rates
		log.Infof("Family %s: Lambda : %s & Score: %f (%d iterations)",
			f.ID, joinFloats(fit.Rates), fit.Score, fit.Iters)
	}

	if boundary {
		log.Warning("Caution : at least one lambda near boundary")
	}
	return fits, nil
}
