package family

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = "Desc\tFamily ID\thuman\tchimp\tmouse\n" +
	"(null)\tORTHO1\t2\t1\t0\n" +
	"(null)\tORTHO2\t5\t-\t3\n" +
	"(null)\tORTHO3\t2\t1\t0\n"

func TestParseFamilies(t *testing.T) {
	s, err := ParseFamilies(strings.NewReader(table))
	require.NoError(t, err)

	require.Len(t, s.Families, 3)
	assert.Equal(t, []string{"human", "chimp", "mouse"}, s.Species)
	assert.Equal(t, []int{2, 1, 0}, s.Families[0].Counts)
	assert.Equal(t, []int{5, Missing, 3}, s.Families[1].Counts)
	assert.Equal(t, "ORTHO2", s.Families[1].ID)
}

func TestDedup(t *testing.T) {
	s, err := ParseFamilies(strings.NewReader(table))
	require.NoError(t, err)

	assert.Equal(t, -1, s.Families[0].Ref)
	assert.Equal(t, -1, s.Families[1].Ref)
	assert.Equal(t, 0, s.Families[2].Ref, "identical counts should reference the first family")
}

func TestLeafCounts(t *testing.T) {
	s, err := ParseFamilies(strings.NewReader(table))
	require.NoError(t, err)

	// missing counts are dropped, zeros are kept here (the prior
	// estimator filters them)
	assert.Equal(t, []int{2, 1, 0, 5, 3, 2, 1, 0}, s.LeafCounts())
	assert.Equal(t, 5, s.MaxCount())
}

func TestRanges(t *testing.T) {
	s, err := ParseFamilies(strings.NewReader(table))
	require.NoError(t, err)

	r := s.SessionRange()
	assert.Equal(t, 0, r.Min)
	assert.Equal(t, 55, r.Max)
	assert.Equal(t, 1, r.RootMin)
	assert.Equal(t, 30, r.RootMax)
	assert.Equal(t, 30, r.NRoot())

	fr := s.Families[0].ForcedRange()
	assert.Equal(t, 52, fr.Max)
	assert.Equal(t, 30, fr.RootMax)
}

func TestRangeCap(t *testing.T) {
	huge := &Family{Counts: []int{2 * SizeMax}}
	r := huge.ForcedRange()
	assert.Equal(t, SizeMax-1, r.Max)
	assert.Equal(t, SizeMax-1, r.RootMax)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseFamilies(strings.NewReader("Desc\tFamily ID\n"))
	assert.Error(t, err)

	_, err = ParseFamilies(strings.NewReader("Desc\tFamily ID\tsp\nx\tf1\tnope\n"))
	assert.Error(t, err)

	_, err = ParseFamilies(strings.NewReader("Desc\tFamily ID\tsp\nx\tf1\t1\t2\n"))
	assert.Error(t, err)
}
