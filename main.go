package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/meelgroup/sbva/bva"
	"github.com/meelgroup/sbva/parsers"
)

var flagProof = flag.StringP(
	"proof",
	"p",
	"",
	"write a DRAT proof of the rewrite to this file",
)

var flagSteps = flag.Int64P(
	"steps",
	"s",
	bva.DefaultConfig.Steps,
	"work budget; the run stops cleanly once it is exhausted",
)

var flagMaxReplacements = flag.IntP(
	"max-replacements",
	"r",
	0,
	"maximum number of auxiliary variables to introduce (0 = unbounded)",
)

var flagLitsCutoff = flag.Int(
	"matched-lits-cutoff",
	bva.DefaultConfig.MatchedLitsCutoff,
	"discard tiles whose literal side is at most this (with --matched-cls-cutoff)",
)

var flagClsCutoff = flag.Int(
	"matched-cls-cutoff",
	bva.DefaultConfig.MatchedClsCutoff,
	"discard tiles whose clause side is at most this (with --matched-lits-cutoff)",
)

var flagNoThreeHop = flag.BoolP(
	"no-three-hop",
	"n",
	false,
	"break candidate ties on first encounter instead of the three-hop heuristic",
)

var flagPreserveModels = flag.BoolP(
	"count-preserving",
	"c",
	false,
	"add blocking clauses so the model count is preserved exactly",
)

var flagVerbose = flag.CountP(
	"verbose",
	"v",
	"increase diagnostic output (repeatable)",
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

type config struct {
	inputFile  string
	outputFile string
	proofFile  string
	tiebreak   bva.Tiebreak
	options    bva.Config
	memProfile bool
	cpuProfile bool
}

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}

	tiebreak := bva.TiebreakThreeHop
	if *flagNoThreeHop {
		tiebreak = bva.TiebreakNone
	}

	options := bva.DefaultConfig
	options.Steps = *flagSteps
	options.MaxReplacements = *flagMaxReplacements
	options.MatchedLitsCutoff = *flagLitsCutoff
	options.MatchedClsCutoff = *flagClsCutoff
	options.GenerateProof = *flagProof != ""
	options.PreserveModelCount = *flagPreserveModels
	options.Verbosity = *flagVerbose

	return &config{
		inputFile:  flag.Arg(0),
		outputFile: flag.Arg(1),
		proofFile:  *flagProof,
		tiebreak:   tiebreak,
		options:    options,
		memProfile: *flagMemProfile,
		cpuProfile: *flagCPUProfile,
	}, nil
}

func run(cfg *config) error {
	f := bva.New(cfg.options)

	gzipped := strings.HasSuffix(cfg.inputFile, ".gz")
	if err := parsers.LoadDIMACS(cfg.inputFile, gzipped, f); err != nil {
		return fmt.Errorf("could not parse instance: %w", err)
	}

	fmt.Fprintf(os.Stderr, "c variables:  %d\n", f.NumVars())
	fmt.Fprintf(os.Stderr, "c clauses:    %d\n", f.NumLiveClauses())

	t := time.Now()
	f.Run(cfg.tiebreak)
	elapsed := time.Since(t)

	fmt.Fprintf(os.Stderr, "c time (sec): %f\n", elapsed.Seconds())
	fmt.Fprintf(os.Stderr, "c replaced:   %d\n", f.NumReplacements())
	fmt.Fprintf(os.Stderr, "c variables:  %d\n", f.NumVars())
	fmt.Fprintf(os.Stderr, "c clauses:    %d\n", f.NumLiveClauses())

	out := os.Stdout
	if cfg.outputFile != "" {
		file, err := os.Create(cfg.outputFile)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	if _, _, err := f.WriteCNF(out); err != nil {
		return err
	}

	if cfg.proofFile != "" {
		file, err := os.Create(cfg.proofFile)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := f.WriteProof(file); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			logrus.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(cfg); err != nil {
		logrus.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			logrus.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
