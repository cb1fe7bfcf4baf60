package main

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/mkoren/famrate/lambda"
)

// plotGrid renders a one-dimensional score surface as a PNG line
// plot. Points with an infinite score are left out.
func plotGrid(path string, points []lambda.GridPoint) error {
	if len(points) == 0 || len(points[0].Coords) != 1 {
		return fmt.Errorf("surface plots need a one-dimensional grid")
	}
	xys := make(plotter.XYs, 0, len(points))
	for _, pt := range points {
		if math.IsInf(pt.Score, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: pt.Coords[0], Y: pt.Score})
	}
	if len(xys) == 0 {
		return fmt.Errorf("no finite scores to plot")
	}

	p, err := plot.New()
	if err != nil {
		return err
	}
	p.X.Label.Text = "lambda"
	p.Y.Label.Text = "score"
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(plotter.NewGrid(), line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
