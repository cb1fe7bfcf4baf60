package main

import (
	"bitbucket.org/mkoren/famrate/lambda"
)

// CallSummary stores information on one famrate invocation.
type CallSummary struct {
	// Version stores famrate version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Time is the computation time in seconds.
	TotalTime float64 `json:"time"`
	// Run is the estimation summary.
	Run *RunSummary `json:"run,omitempty"`
}

// RunSummary stores the summary of one estimation run.
type RunSummary struct {
	// Tree is the input tree with rate classes.
	Tree string `json:"tree"`
	// NFamilies is the family count after reading the input table.
	NFamilies int `json:"nFamilies"`
	// NUnique is the number of distinct count patterns.
	NUnique int `json:"nUnique"`
	// Prior is the empirical Poisson prior fit.
	Prior *lambda.PoissonFit `json:"prior,omitempty"`
	// Result is the outcome of the rate search or scoring.
	Result *lambda.Result `json:"result,omitempty"`
	// FamilyFits holds the per-family fits of -each.
	FamilyFits []*lambda.FamilyFit `json:"familyFits,omitempty"`
	// GridPoints is the number of evaluated grid points.
	GridPoints int `json:"gridPoints,omitempty"`
	// Time is the estimation time in seconds.
	Time float64 `json:"estimationTime"`
}
