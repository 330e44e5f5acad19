package main

import (
	"flag"
	"fmt"
	"strconv"
)

// towerdConfig holds the CLI-configurable knobs for the synthetic replay
// driver.
type towerdConfig struct {
	LedgerDir      string
	ThresholdDepth uint64
	ThresholdSize  float64
	Slots          uint64
	Verbosity      int
	MetricsAddr    string
}

func defaultTowerdConfig() towerdConfig {
	return towerdConfig{
		LedgerDir:      "ledger",
		ThresholdDepth: 8,
		ThresholdSize:  2.0 / 3.0,
		Slots:          64,
		Verbosity:      3,
		MetricsAddr:    "",
	}
}

// flagSet wraps flag.FlagSet to add support for uint64 flags, which the
// standard library's flag package does not provide directly.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

type uint64Value struct{ p *uint64 }

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// parseFlags parses CLI arguments into a towerdConfig. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (towerdConfig, bool, int) {
	cfg := defaultTowerdConfig()
	fs := newCustomFlagSet("towerd")

	fs.StringVar(&cfg.LedgerDir, "ledger", cfg.LedgerDir, "tower persistence directory")
	fs.Uint64Var(&cfg.ThresholdDepth, "threshold-depth", cfg.ThresholdDepth, "vote stack depth consulted for stake-threshold checks")
	fs.Float64Var(&cfg.ThresholdSize, "threshold-size", cfg.ThresholdSize, "super-majority stake fraction")
	fs.Uint64Var(&cfg.Slots, "slots", cfg.Slots, "number of synthetic slots to replay before exiting")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-4 (0=error heavy, 4=debug)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve Prometheus metrics on (empty disables the exporter)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if *showVersion {
		fmt.Println("towerd v0.1.0-dev")
		return cfg, true, 0
	}
	return cfg, false, 0
}
