package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFloats(tst *testing.T) {
	v, err := parseFloats("0.001, 0.02,3")
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if len(v) != 3 || v[0] != 0.001 || v[1] != 0.02 || v[2] != 3 {
		tst.Error("wrong values:", v)
	}
	if _, err := parseFloats("0.1,x"); err == nil {
		tst.Error("expected an error for a malformed list")
	}
}

func TestReadConfig(tst *testing.T) {
	path := filepath.Join(tst.TempDir(), "famrate.yaml")
	err := os.WriteFile(path, []byte(
		"lambda: [0.001, 0.002]\n"+
			"clusters: 3\n"+
			"fixcluster0: true\n"+
			"ranges: [\"0.001:0.001:0.01\"]\n"), 0644)
	if err != nil {
		tst.Fatal(err)
	}
	cfg, err := readConfig(path)
	if err != nil {
		tst.Fatal("unexpected error:", err)
	}
	if cfg.Clusters != 3 || !cfg.FixCluster0 {
		tst.Error("wrong mixture settings:", cfg)
	}
	if len(cfg.Lambda) != 2 || cfg.Lambda[1] != 0.002 {
		tst.Error("wrong rates:", cfg.Lambda)
	}
	if len(cfg.Ranges) != 1 {
		tst.Error("wrong ranges:", cfg.Ranges)
	}

	if _, err := readConfig(filepath.Join(tst.TempDir(), "missing.yaml")); err == nil {
		tst.Error("expected an error for a missing file")
	}
}
