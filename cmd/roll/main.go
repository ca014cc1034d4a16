// Package main provides the roll CLI: parse a dice expression, roll it one or
// more times, and print per-term detail, totals and batch statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicesim/internal/config"
	"github.com/cory-johannsen/dicesim/internal/dice"
	"github.com/cory-johannsen/dicesim/internal/observability"
	"github.com/cory-johannsen/dicesim/internal/preset"
	"github.com/cory-johannsen/dicesim/internal/scripting"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// hookScript is the VM name the -script file is loaded under.
const hookScript = "hooks"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command-line flags; zero values defer to config.
type options struct {
	configPath string
	times      int
	adv        bool
	dis        bool
	quiet      bool
	seed       uint64
	presetsDir string
	script     string
	list       bool
	expr       string
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("roll", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to configuration file (optional)")
	fs.IntVar(&o.times, "t", 1, "roll the expression N times and print statistics")
	fs.IntVar(&o.times, "times", 1, "alias for -t")
	fs.BoolVar(&o.adv, "adv", false, "advantage: roll a lone d20 twice, keep the higher")
	fs.BoolVar(&o.dis, "dis", false, "disadvantage: roll a lone d20 twice, keep the lower")
	fs.BoolVar(&o.quiet, "q", false, "print only totals")
	fs.BoolVar(&o.quiet, "quiet", false, "alias for -q")
	fs.Uint64Var(&o.seed, "seed", 0, "deterministic seed; 0 uses crypto/rand")
	fs.StringVar(&o.presetsDir, "presets", "", "directory of preset YAML files for @name expressions")
	fs.StringVar(&o.script, "script", "", "Lua hook script, or directory of *.lua files, defining on_roll and/or on_stats")
	fs.BoolVar(&o.list, "list", false, "list the presets in the presets directory and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: roll [flags] <expression|@preset>")
		fmt.Fprintln(stderr, "       roll -presets <dir> -list")
		fmt.Fprintln(stderr, "examples: roll 2d6+3   roll -t 10 3d6+2d8-1   roll -adv d20+5")
		fs.PrintDefaults()
	}

	// Parse stops at the first positional, so resume after each one to accept
	// flags on either side of the expression. A negative expression such as
	// "-1d4+2" must follow "--".
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	var positional []string
	for fs.NArg() > 0 {
		positional = append(positional, fs.Arg(0))
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return o, err
		}
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	switch {
	case len(positional) > 1:
		return o, fmt.Errorf("expected one expression, got %d arguments %q (quote expressions containing spaces)",
			len(positional), positional)
	case len(positional) == 1:
		o.expr = positional[0]
	case !o.list:
		fs.Usage()
		return o, errors.New("missing expression")
	}
	if o.adv && o.dis {
		return o, errors.New("-adv and -dis are mutually exclusive")
	}
	if (o.set["t"] || o.set["times"]) && o.times < 1 {
		return o, fmt.Errorf("-t must be >= 1, got %d", o.times)
	}
	return o, nil
}

// applyFlags overlays explicitly set flags onto cfg.
func (o options) applyFlags(cfg *config.Config) {
	if o.set["t"] || o.set["times"] {
		cfg.Roll.Times = o.times
	}
	if o.set["q"] || o.set["quiet"] {
		cfg.Roll.Quiet = o.quiet
	}
	if o.set["seed"] {
		cfg.Roll.Seed = o.seed
	}
	if o.set["presets"] {
		cfg.Presets.Dir = o.presetsDir
	}
	if o.set["script"] {
		cfg.Scripting.Script = o.script
	}
	switch {
	case o.adv:
		cfg.Roll.Mode = dice.ModeAdvantage.String()
	case o.dis:
		cfg.Roll.Mode = dice.ModeDisadvantage.String()
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return exitError
	}
	opts.applyFlags(&cfg)

	logger, err := observability.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "initializing logger: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	if opts.list {
		if err := listPresets(stdout, cfg.Presets.Dir); err != nil {
			fmt.Fprintf(stderr, "listing presets: %v\n", err)
			return exitError
		}
		return exitOK
	}

	expr, mode, err := resolveExpression(opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error in expression: %v\n", err)
		return exitError
	}

	roller := dice.NewLoggedRoller(cfg.Roll.Source(), logger)

	var hooks *scripting.Manager
	if cfg.Scripting.Script != "" {
		hooks = scripting.NewManager(roller, logger)
		defer hooks.Close()
		if err := loadHooks(hooks, cfg.Scripting); err != nil {
			fmt.Fprintf(stderr, "loading script: %v\n", err)
			return exitError
		}
	}

	logger.Debug("rolling",
		zap.String("expression", expr.String()),
		zap.Stringer("mode", mode),
		zap.Int("times", cfg.Roll.Times),
	)
	batch := roller.RollBatch(expr, mode, cfg.Roll.Times)
	printBatch(stdout, batch, cfg.Roll.Quiet, hooks)
	return exitOK
}

// loadHooks loads cfg.Script into the hookScript VM. A directory loads every
// *.lua file in it.
func loadHooks(m *scripting.Manager, cfg config.ScriptingConfig) error {
	info, err := os.Stat(cfg.Script)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return m.LoadDir(hookScript, cfg.Script, cfg.InstructionLimit)
	}
	return m.LoadFile(hookScript, cfg.Script, cfg.InstructionLimit)
}

func loadRegistry(dir string) (*preset.Registry, error) {
	if dir == "" {
		return nil, errors.New("no presets directory configured")
	}
	return preset.LoadRegistry(dir)
}

// listPresets prints one line per preset in dir, sorted by ID.
func listPresets(w io.Writer, dir string) error {
	reg, err := loadRegistry(dir)
	if err != nil {
		return err
	}
	for _, id := range reg.IDs() {
		p, _ := reg.Get(id)
		line := fmt.Sprintf("@%s: %s = %s", id, p.DisplayName(), p.Expression())
		if p.Mode() != dice.ModeNone {
			line += " (" + p.Mode().String() + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// resolveExpression parses opts.expr, or looks it up in the preset registry
// when it starts with '@'. An explicit -adv/-dis overrides the preset's mode.
func resolveExpression(opts options, cfg config.Config) (dice.Expression, dice.AdvantageMode, error) {
	mode := cfg.Roll.AdvantageMode()

	id, isPreset := strings.CutPrefix(opts.expr, "@")
	if !isPreset {
		expr, err := dice.Parse(opts.expr)
		return expr, mode, err
	}

	reg, err := loadRegistry(cfg.Presets.Dir)
	if err != nil {
		return dice.Expression{}, mode, fmt.Errorf("preset %q: %w", id, err)
	}
	p, ok := reg.Get(id)
	if !ok {
		return dice.Expression{}, mode, fmt.Errorf("unknown preset %q (known: %s)", id, strings.Join(reg.IDs(), ", "))
	}
	if !opts.adv && !opts.dis && mode == dice.ModeNone {
		mode = p.Mode()
	}
	return p.Expression(), mode, nil
}

func printBatch(w io.Writer, batch dice.Batch, quiet bool, hooks *scripting.Manager) {
	n := len(batch.Results)
	for i, res := range batch.Results {
		if !quiet {
			fmt.Fprintf(w, "--- roll %d ---\n", i+1)
			for _, d := range res.Details {
				fmt.Fprintln(w, d.String())
			}
			if res.FlatTotal != 0 {
				fmt.Fprintf(w, "mods: %d\n", res.FlatTotal)
			}
		}
		fmt.Fprintf(w, "total: %d\n", res.Total)
		if hooks != nil {
			if note := hooks.CallRollHook(hookScript, res); note != "" {
				fmt.Fprintf(w, "note: %s\n", note)
			}
		}
		if !quiet && i != n-1 {
			fmt.Fprintln(w)
		}
	}

	if n <= 1 {
		return
	}
	st, ok := batch.Stats()
	if !ok {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== statistics ===")
	fmt.Fprintf(w, "rolls:   %d\n", st.Count)
	fmt.Fprintf(w, "min:     %d\n", st.Min)
	fmt.Fprintf(w, "max:     %d\n", st.Max)
	fmt.Fprintf(w, "mean:    %.2f\n", st.Mean)
	if hooks != nil {
		if note := hooks.CallStatsHook(hookScript, st); note != "" {
			fmt.Fprintf(w, "note: %s\n", note)
		}
	}
}
