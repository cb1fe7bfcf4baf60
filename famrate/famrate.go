/*

Famrate estimates birth-death rates (lambda) of gene-family size
evolution on a phylogenetic tree. Family sizes come from a
tab-separated table, the tree from a newick file; branch classes in
the tree (#N suffixes) select independent rates.

The basic usage looks like this:

	famrate families.tab tree.nwk

, this estimates a single shared rate. Other modes:

	famrate -score -l 0.002 families.tab tree.nwk
	famrate -each families.tab tree.nwk
	famrate -k 3 -fixcluster0 families.tab tree.nwk
	famrate -range 0.001:0.001:0.01 families.tab tree.nwk

To see all the options run:

	famrate -h

*/
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/mkoren/famrate/bd"
	"bitbucket.org/mkoren/famrate/checkpoint"
	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/lambda"
	"bitbucket.org/mkoren/famrate/tree"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("famrate")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("famrate", "gene-family birth-death rate estimator").Version(version)

	// input families and tree
	familiesFileName = app.Arg("families", "tab-separated family size table").Required().ExistingFile()
	treeFileName     = app.Arg("tree", "phylogenetic tree").Required().ExistingFile()

	// estimation modes
	scoreOnly = app.Flag("score", "score the -l rates without optimization").Bool()
	eachFam   = app.Flag("each", "fit an independent rate per family").Bool()
	checkConv = app.Flag("checkconv", "restart the search until scores converge").Bool()

	// search parameters
	lambdaStr = app.Flag("l", "comma-separated rate values (for -score)").String()
	nClusters = app.Flag("k", "number of mixture clusters (0 for no mixture)").Default("0").Int()
	fixC0     = app.Flag("fixcluster0", "pin mixture cluster 0 to rate zero").Bool()
	ranges    = app.Flag("range", "grid axis start:step:end (repeat per rate)").Strings()

	// checkpoints
	checkpointF = app.Flag("checkpoint", "checkpoint database file").String()
	cpSeconds   = app.Flag("cpseconds", "minimum seconds between checkpoint saves").Default("30").Float64()

	// technical
	seed    = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	configF = app.Flag("config", "YAML file with search settings").ExistingFile()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("out", "write the grid surface or per-family report to a file").String()
	outHTMLF = app.Flag("html", "write the per-family report as an HTML table").String()
	markF    = app.Flag("mark", "mark boundary families with @@ in the report").Bool()
	plotF    = app.Flag("plot", "plot a one-dimensional grid surface to a PNG file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// parseFloats parses a comma-separated float list.
func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("rate list %q: %v", s, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// outWriter opens the -out target, defaulting to stdout.
func outWriter() (*os.File, func()) {
	if *outF == "" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(*outF)
	if err != nil {
		log.Error("Error creating output file:", err)
		return os.Stdout, func() {}
	}
	return f, func() { f.Close() }
}

func run(cfg *Config) (summary *RunSummary) {
	startTime := time.Now()
	summary = &RunSummary{}

	famFile, err := os.Open(*familiesFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer famFile.Close()

	fams, err := family.ParseFamilies(famFile)
	if err != nil {
		log.Fatal(err)
	}
	summary.NFamilies = len(fams.Families)
	nuniq := 0
	for _, f := range fams.Families {
		if f.Ref < 0 {
			nuniq++
		}
	}
	summary.NUnique = nuniq

	treeFile, err := os.Open(*treeFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer treeFile.Close()

	t, err := tree.ParseNewick(treeFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("intree=%s", t)
	summary.Tree = t.ClassString()

	engine, err := bd.NewEngine(t, fams)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Tree has %d rate class(es), longest branch %f",
		engine.NClasses(), engine.MaxBranchLength())

	prior, fit, err := lambda.EstimatePrior(fams.LeafCounts(), engine.Range().RootMin)
	if err != nil {
		log.Fatal(err)
	}
	summary.Prior = fit

	sess := &lambda.Session{E: engine, Fams: fams, Prior: prior}

	k := *nClusters
	fix0 := *fixC0
	rangeSpecs := *ranges
	if cfg != nil {
		if k == 0 {
			k = cfg.Clusters
		}
		if !fix0 {
			fix0 = cfg.FixCluster0
		}
		if len(rangeSpecs) == 0 {
			rangeSpecs = cfg.Ranges
		}
		if *lambdaStr == "" && len(cfg.Lambda) > 0 {
			vals := make([]string, len(cfg.Lambda))
			for i, v := range cfg.Lambda {
				vals[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
			*lambdaStr = strings.Join(vals, ",")
		}
	}

	switch {
	case len(rangeSpecs) > 0:
		specs := make([]lambda.RangeSpec, len(rangeSpecs))
		for i, s := range rangeSpecs {
			if specs[i], err = lambda.ParseRangeSpec(s); err != nil {
				log.Fatal(err)
			}
		}
		points, err := sess.ScanGrid(specs)
		if err != nil {
			log.Fatal(err)
		}
		summary.GridPoints = len(points)
		w, done := outWriter()
		if err := lambda.WriteGrid(w, points); err != nil {
			log.Error("Error writing grid:", err)
		}
		done()
		if *plotF != "" {
			if err := plotGrid(*plotF, points); err != nil {
				log.Error("Error plotting grid:", err)
			}
		}

	case *eachFam:
		fits, err := sess.SearchEach()
		if err != nil {
			log.Fatal(err)
		}
		summary.FamilyFits = fits
		w, done := outWriter()
		if err := lambda.WriteFamilyReport(w, fits, *markF); err != nil {
			log.Error("Error writing report:", err)
		}
		done()
		if *outHTMLF != "" {
			f, err := os.Create(*outHTMLF)
			if err != nil {
				log.Error("Error creating HTML output file:", err)
			} else {
				if err := lambda.WriteFamilyHTML(f, fits); err != nil {
					log.Error("Error writing HTML report:", err)
				}
				f.Close()
			}
		}

	case *scoreOnly:
		if *lambdaStr == "" {
			log.Fatal("-score needs rate values (-l)")
		}
		rates, err := parseFloats(*lambdaStr)
		if err != nil {
			log.Fatal(err)
		}
		score, err := sess.ScoreOnly(rates)
		if err != nil {
			log.Fatal(err)
		}
		summary.Result = &lambda.Result{Rates: rates, Score: score}

	default:
		res, err := searchWithCheckpoint(sess, k, fix0, cfg)
		if err != nil {
			log.Fatal(err)
		}
		summary.Result = res
		if k > 0 {
			sess.LogMembership(res.Membership)
		}
	}

	endTime := time.Now()
	deltaT := endTime.Sub(startTime)
	log.Noticef("Running time: %v", deltaT)
	summary.Time = deltaT.Seconds()

	return
}

// searchWithCheckpoint runs the rate search, skipping it entirely
// when a finished checkpoint exists for these settings.
func searchWithCheckpoint(sess *lambda.Session, k int, fix0 bool, cfg *Config) (*lambda.Result, error) {
	cpPath := *checkpointF
	seconds := *cpSeconds
	if cfg != nil {
		if cpPath == "" {
			cpPath = cfg.Checkpoint
		}
		if cfg.CheckpointSeconds > 0 {
			seconds = cfg.CheckpointSeconds
		}
	}

	var db *bolt.DB
	if cpPath != "" {
		var err error
		db, err = bolt.Open(cpPath, 0644, nil)
		if err != nil {
			log.Error("Error opening checkpoint database:", err)
		} else {
			defer db.Close()
		}
	}
	cp := checkpoint.NewIO(db, []byte("search"), seconds)

	state, err := cp.Load()
	if err != nil {
		log.Error("Error loading checkpoint:", err)
	}
	if state != nil && state.Final {
		return &lambda.Result{
			Rates:   state.Rates,
			Weights: state.Weights,
			Score:   state.Score,
			Runs:    state.Runs,
		}, nil
	}

	// Persist unfinished state between runs, at most once per save
	// interval, so an interrupted multi-run search is reported on
	// resume.
	sess.OnProgress = func(r *lambda.Result) {
		if !cp.Old() {
			return
		}
		cp.Save(&checkpoint.State{
			Rates:   r.Rates,
			Weights: r.Weights,
			Score:   r.Score,
			Runs:    r.Runs,
		})
	}
	defer func() { sess.OnProgress = nil }()

	p := lambda.NewParams(sess.E.NClasses(), k, fix0)
	res, err := sess.Search(p, *checkConv)
	if err != nil {
		return nil, err
	}

	if err := cp.Save(&checkpoint.State{
		Rates:   res.Rates,
		Weights: res.Weights,
		Score:   res.Score,
		Runs:    res.Runs,
		Final:   true,
	}); err == nil && db != nil {
		log.Info("Saved final checkpoint")
	}
	return res, nil
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "famrate")
	logging.SetLevel(level, "lambda")
	logging.SetLevel(level, "optimize")
	logging.SetLevel(level, "family")
	logging.SetLevel(level, "bd")
	logging.SetLevel(level, "checkpoint")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)
	rand.Seed(*seed)

	var cfg *Config
	if *configF != "" {
		if cfg, err = readConfig(*configF); err != nil {
			log.Fatal(err)
		}
	}

	summary := &CallSummary{
		Version:     version,
		CommandLine: os.Args,
		Seed:        *seed,
	}
	startTime := time.Now()
	summary.Run = run(cfg)
	summary.TotalTime = time.Since(startTime).Seconds()

	// output summary in json format
	if *jsonF != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(*jsonF)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}
}
