package lambda

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"bitbucket.org/mkoren/famrate/bd"
	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/tree"
)

const e2eFamilies = "Desc\tFamily ID\thuman\tchimp\n" +
	"x\tfam1\t2\t3\n" +
	"x\tfam2\t1\t1\n" +
	"x\tfam3\t5\t4\n"

func e2eSession(tst *testing.T) *Session {
	fams, err := family.ParseFamilies(strings.NewReader(e2eFamilies))
	if err != nil {
		tst.Fatal(err)
	}
	t, err := tree.ParseNewick(strings.NewReader("(human:1,chimp:2);"))
	if err != nil {
		tst.Fatal(err)
	}
	e, err := bd.NewEngine(t, fams)
	if err != nil {
		tst.Fatal(err)
	}
	prior, _, err := EstimatePrior(fams.LeafCounts(), e.Range().RootMin)
	if err != nil {
		tst.Fatal(err)
	}
	return &Session{E: e, Fams: fams, Prior: prior}
}

func TestSearchEndToEnd(tst *testing.T) {
	rand.Seed(42)
	sess := e2eSession(tst)
	p := NewParams(sess.E.NClasses(), 0, false)
	res, err := sess.Search(p, false)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if math.IsInf(res.Score, 0) || math.IsNaN(res.Score) {
		tst.Fatal("score should be finite:", res.Score)
	}
	if len(res.Rates) != 1 {
		tst.Fatal("one rate class expected:", res.Rates)
	}
	r := res.Rates[0]
	if r < 0 {
		tst.Error("negative rate estimate:", r)
	}
	if r*sess.E.MaxBranchLength() >= 1 && !res.Boundary {
		tst.Error("boundary rate should be flagged:", r)
	}

	// rescoring the estimate reproduces the search score
	again, err := sess.ScoreOnly(res.Rates)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if math.Abs(again-res.Score) > 1e-9 {
		tst.Error("rescoring mismatch:", again, res.Score)
	}
}

func TestSearchEachEndToEnd(tst *testing.T) {
	rand.Seed(43)
	sess := e2eSession(tst)
	sessRange := sess.E.Range()
	fits, err := sess.SearchEach()
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if len(fits) != 3 {
		tst.Fatal("wrong fit count:", len(fits))
	}
	for _, fit := range fits {
		if math.IsNaN(fit.Score) {
			tst.Error("family score should be a number:", fit.ID)
		}
		if fit.Tree == "" {
			tst.Error("missing annotated tree for family", fit.ID)
		}
	}
	if sess.E.Range() != sessRange {
		tst.Error("session range should be restored")
	}
}
