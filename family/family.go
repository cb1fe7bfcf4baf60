// Package family stores gene-family observations: per-species gene
// counts for many families, together with family-size ranges used by
// the likelihood computations.
package family

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/op/go-logging"
)

// log is the global logging variable.
var log = logging.MustGetLogger("family")

// SizeMax is the capacity of root-size distributions; family sizes
// above this value are not representable.
const SizeMax = 1000

// Missing marks an unobserved count.
const Missing = -1

// Family is a single gene family: a count per species, in the order
// of the set's species list.
type Family struct {
	ID     string
	Desc   string
	Counts []int
	// Ref is the index of an earlier family with identical counts,
	// or -1. Derived results of such a family are copied from the
	// referenced one.
	Ref int
	// MaxLH caches the index of the most likely root size, -1 when
	// unset.
	MaxLH int
	// Rates and Mu hold per-family fitted values, if any.
	Rates []float64
	Mu    []float64
}

// Set is a collection of families sharing one species list.
type Set struct {
	Species  []string
	Families []*Family
}

// countsKey returns a map key identifying the count vector.
func countsKey(counts []int) string {
	var b strings.Builder
	for i, c := range counts {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// Dedup marks families whose counts are identical to an earlier
// family. Scoring copies results from the reference instead of
// recomputing.
func (s *Set) Dedup() {
	seen := make(map[string]int, len(s.Families))
	ndup := 0
	for i, f := range s.Families {
		k := countsKey(f.Counts)
		if j, ok := seen[k]; ok {
			f.Ref = j
			ndup++
		} else {
			f.Ref = -1
			seen[k] = i
		}
	}
	if ndup > 0 {
		log.Infof("%d duplicate families (of %d)", ndup, len(s.Families))
	}
}

// ResetMaxLH invalidates every family's cached most likely root size.
func (s *Set) ResetMaxLH() {
	for _, f := range s.Families {
		f.MaxLH = -1
	}
}

// MaxCount returns the largest observed count in the set.
func (s *Set) MaxCount() (m int) {
	for _, f := range s.Families {
		for _, c := range f.Counts {
			if c > m {
				m = c
			}
		}
	}
	return
}

// LeafCounts returns all non-missing observed counts across families
// and species, in family order.
func (s *Set) LeafCounts() (counts []int) {
	for _, f := range s.Families {
		for _, c := range f.Counts {
			if c != Missing {
				counts = append(counts, c)
			}
		}
	}
	return
}

// MaxFamilyCount returns the largest count of one family.
func (f *Family) MaxFamilyCount() (m int) {
	for _, c := range f.Counts {
		if c > m {
			m = c
		}
	}
	return
}

// Range is a family-size range: leaf sizes in [Min, Max], root sizes
// in [RootMin, RootMax]. RootMin is at least 1: an existing family
// had at least one member at the root.
type Range struct {
	Min, Max         int
	RootMin, RootMax int
}

// NRoot returns the number of candidate root sizes.
func (r Range) NRoot() int {
	return r.RootMax - r.RootMin + 1
}

func capSize(v int) int {
	if v > SizeMax-1 {
		return SizeMax - 1
	}
	return v
}

// rangeFor builds a range from a maximum observed count.
func rangeFor(maxCount int) Range {
	extra := maxCount / 5
	if extra < 50 {
		extra = 50
	}
	rootMax := maxCount * 2
	if rootMax < 30 {
		rootMax = 30
	}
	return Range{
		Min:     0,
		Max:     capSize(maxCount + extra),
		RootMin: 1,
		RootMax: capSize(rootMax),
	}
}

// SessionRange returns the family-size range covering the whole set.
func (s *Set) SessionRange() Range {
	return rangeFor(s.MaxCount())
}

// ForcedRange returns a range tight around one family; used by
// per-family fitting.
func (f *Family) ForcedRange() Range {
	return rangeFor(f.MaxFamilyCount())
}

// ParseFamilies reads a tab-separated family table. The header is
// Desc, Family ID, then one column per species; every following line
// is one family. Missing counts are given as "-" or an empty field.
func ParseFamilies(rd io.Reader) (*Set, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty family file")
	}
	header := strings.Split(scanner.Text(), "\t")
	if len(header) < 3 {
		return nil, fmt.Errorf("family header needs at least three columns, got %d", len(header))
	}
	s := &Set{Species: header[2:]}

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line+1, len(header), len(fields))
		}
		f := &Family{
			Desc:   fields[0],
			ID:     fields[1],
			Counts: make([]int, len(s.Species)),
			Ref:    -1,
			MaxLH:  -1,
		}
		for i, field := range fields[2:] {
			if field == "" || field == "-" {
				f.Counts[i] = Missing
				continue
			}
			c, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad count %q: %v", line+1, field, err)
			}
			if c < 0 {
				return nil, fmt.Errorf("line %d: negative count %d", line+1, c)
			}
			f.Counts[i] = c
		}
		s.Families = append(s.Families, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	log.Infof("Read %d families, %d species", len(s.Families), len(s.Species))
	s.Dedup()
	return s, nil
}
