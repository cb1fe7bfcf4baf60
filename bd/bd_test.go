package bd

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/tree"
)

func TestTransitionBasics(t *testing.T) {
	// extinction is absorbing
	assert.Equal(t, 1.0, TransitionP(0, 0, 0.01, 1))
	assert.Equal(t, 0.0, TransitionP(0, 3, 0.01, 1))

	// zero-length branch keeps size
	assert.InDelta(t, 1.0, TransitionP(3, 3, 0.01, 0), 1e-12)
	assert.InDelta(t, 0.0, TransitionP(3, 4, 0.01, 0), 1e-12)

	// one parent gene, alpha = rt/(1+rt): P(0|1) = alpha,
	// P(1|1) = 1-2alpha+alpha^2... from the series directly:
	rate, bl := 0.1, 2.0
	alpha := rate * bl / (1 + rate*bl)
	assert.InDelta(t, alpha, TransitionP(1, 0, rate, bl), 1e-12)
	assert.InDelta(t, (1-alpha)*(1-alpha), TransitionP(1, 1, rate, bl), 1e-12)
}

func TestTransitionRowSum(t *testing.T) {
	// with a generous truncation rows sum to ~1
	c := NewCache(200)
	m := c.Matrix(0.05, 1.5)
	for _, s := range []int{1, 2, 5, 10} {
		sum := 0.0
		for j := 0; j <= 200; j++ {
			sum += m.At(s, j)
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "row %d", s)
	}
}

func newTestEngine(t *testing.T) (*Engine, *family.Set) {
	tr, err := tree.ParseNewick(bytes.NewBufferString("(human:1.0,chimp:2.0);"))
	require.NoError(t, err)
	fams, err := family.ParseFamilies(strings.NewReader(
		"Desc\tFamily ID\thuman\tchimp\n" +
			"x\tfam1\t2\t1\n" +
			"x\tfam2\t1\t-\n"))
	require.NoError(t, err)
	e, err := NewEngine(tr, fams)
	require.NoError(t, err)
	return e, fams
}

func TestFamilyLikelihoods(t *testing.T) {
	e, fams := newTestEngine(t)
	_, err := e.FamilyLikelihoods(fams.Families[0])
	assert.Error(t, err, "rates must be set first")

	require.NoError(t, e.SetRates([]float64{0.05}))
	lik, err := e.FamilyLikelihoods(fams.Families[0])
	require.NoError(t, err)
	require.Len(t, lik, e.Range().NRoot())

	// two leaves hanging off the root: likelihood for root size s is
	// the product of the two transition probabilities
	rng := e.Range()
	for i, s := 0, rng.RootMin; s <= rng.RootMax; i, s = i+1, s+1 {
		want := TransitionP(s, 2, 0.05, 1.0) * TransitionP(s, 1, 0.05, 2.0)
		assert.InDelta(t, want, lik[i], 1e-12, "root size %d", s)
	}
}

func TestMissingLeaf(t *testing.T) {
	e, fams := newTestEngine(t)
	require.NoError(t, e.SetRates([]float64{0.05}))

	// chimp count is missing: only the human branch constrains the root
	lik, err := e.FamilyLikelihoods(fams.Families[1])
	require.NoError(t, err)
	rng := e.Range()
	for i, s := 0, rng.RootMin; s <= rng.RootMax; i, s = i+1, s+1 {
		sum := 0.0
		for c := rng.Min; c <= rng.Max; c++ {
			sum += TransitionP(s, c, 0.05, 2.0)
		}
		want := TransitionP(s, 1, 0.05, 1.0) * sum
		assert.InDelta(t, want, lik[i], 1e-9, "root size %d", s)
	}
}

func TestSetRatesValidates(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Error(t, e.SetRates([]float64{0.1, 0.2}))
}

func TestAnnotatedString(t *testing.T) {
	e, fams := newTestEngine(t)
	require.NoError(t, e.SetRates([]float64{0.05}))
	_, err := e.FamilyLikelihoods(fams.Families[0])
	require.NoError(t, err)

	s := e.AnnotatedString(fams.Families[0])
	assert.Contains(t, s, "human_2<")
	assert.Contains(t, s, "chimp_1<")
	assert.True(t, strings.HasSuffix(s, ";"))

	_, err = e.FamilyLikelihoods(fams.Families[1])
	require.NoError(t, err)
	assert.Contains(t, e.AnnotatedString(fams.Families[1]), "chimp_-<")
}

func TestUnstableRateDegrades(t *testing.T) {
	// rate*t beyond the feasibility bound: probabilities must stay
	// finite and non-negative (coerced), never NaN
	for s := 0; s < 20; s++ {
		for c := 0; c < 20; c++ {
			p := TransitionP(s, c, 3.0, 1.0)
			assert.False(t, math.IsNaN(p))
			assert.True(t, p >= 0)
		}
	}
}

func TestUnknownLeafError(t *testing.T) {
	tr, err := tree.ParseNewick(bytes.NewBufferString("(human:1.0,orang:2.0);"))
	require.NoError(t, err)
	fams, err := family.ParseFamilies(strings.NewReader(
		"Desc\tFamily ID\thuman\tchimp\nx\tfam1\t2\t1\n"))
	require.NoError(t, err)
	_, err = NewEngine(tr, fams)
	assert.Error(t, err)
}
