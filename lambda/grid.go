package lambda

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// RangeSpec is one axis of a rate grid: values Start, Start+Step, ...
// up to End inclusive.
type RangeSpec struct {
	Start float64
	Step  float64
	End   float64
}

// N returns the number of grid values along the axis. The count is
// rounded so an End that misses the lattice by a floating-point hair
// still lands on the intended value.
func (r RangeSpec) N() int {
	return 1 + int(math.Round((r.End-r.Start)/r.Step))
}

// Validate checks the axis for emptiness and direction.
func (r RangeSpec) Validate() error {
	if r.Step <= 0 {
		return fmt.Errorf("range step must be positive, got %g", r.Step)
	}
	if r.Start > r.End {
		return fmt.Errorf("range start %g exceeds end %g", r.Start, r.End)
	}
	return nil
}

// ParseRangeSpec parses "start:step:end".
func ParseRangeSpec(s string) (RangeSpec, error) {
	var r RangeSpec
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return r, fmt.Errorf("range %q: want start:step:end", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return r, fmt.Errorf("range %q: %v", s, err)
		}
		vals[i] = v
	}
	r = RangeSpec{Start: vals[0], Step: vals[1], End: vals[2]}
	return r, r.Validate()
}

// GridPoint is one evaluated lattice point.
type GridPoint struct {
	Coords []float64 `json:"coords"`
	Score  float64   `json:"score"`
}

// ScanGrid scores every point of the cartesian product of the axes,
// last axis varying fastest. A point where some family has zero
// posterior scores negative infinity instead of aborting the scan;
// the cached best root sizes are reset afterwards so later points are
// not polluted by the degenerate fit.
func (s *Session) ScanGrid(specs []RangeSpec) ([]GridPoint, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty grid")
	}
	total := 1
	for _, sp := range specs {
		if err := sp.Validate(); err != nil {
			return nil, err
		}
		total *= sp.N()
	}
	log.Noticef("Scanning %d grid points over %d rates", total, len(specs))

	scorer := NewScorer(s)
	points := make([]GridPoint, 0, total)
	coords := make([]float64, len(specs))
	idx := make([]int, len(specs))
	for {
		for d, sp := range specs {
			coords[d] = sp.Start + float64(idx[d])*sp.Step
		}
		score, err := scorer.Score(coords)
		if err != nil {
			var zp *ZeroPosteriorError
			if !errors.As(err, &zp) {
				return nil, err
			}
			log.Warningf("%v; scoring point as -inf", err)
			score = math.Inf(-1)
		}
		if math.IsInf(score, -1) {
			// cached best root sizes from a dead point must not
			// leak into later points
			s.Fams.ResetMaxLH()
		}
		points = append(points, GridPoint{
			Coords: append([]float64(nil), coords...),
			Score:  score,
		})

		d := len(idx) - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < specs[d].N() {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return points, nil
}

// WriteGrid writes the scanned points as tab-separated coordinates
// followed by the score, one point per line.
func WriteGrid(w io.Writer, points []GridPoint) error {
	for _, pt := range points {
		for _, c := range pt.Coords {
			if _, err := fmt.Fprintf(w, "%f\t", c); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%f\n", pt.Score); err != nil {
			return err
		}
	}
	return nil
}
