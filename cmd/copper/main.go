package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jward/copper"
	"github.com/jward/copper/internal/config"
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/formatter"
	"github.com/jward/copper/internal/metrics"
)

// errOffenses is returned when offenses at or above the fail level remain.
// main exits 1 for it without printing anything.
var errOffenses = errors.New("offenses found")

const (
	exitOffenses = 1
	exitError    = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errOffenses) {
			os.Exit(exitOffenses)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitError)
	}
}

// options holds the parsed flags of one invocation.
type options struct {
	configPath  string
	debug       bool
	autocorrect bool
	format      string
	color       bool
	noColor     bool
	noCache     bool
	cachePath   string
	parallel    bool
	only        []string
	failLevel   string
	metricsOut  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "copper [paths...]",
		Short:         "Static analysis and autocorrection for Ruby",
		Long:          "Copper parses Ruby with tree-sitter, runs built-in and Risor script cops over the syntax tree, and reports or corrects offenses.",
		Version:       copper.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, opts, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: .copper.yml in the repo root)")
	pf.BoolVar(&opts.debug, "debug", false, "log debug output to stderr")
	pf.StringVar(&opts.format, "format", "text", "output format: text|json")

	f := root.Flags()
	f.BoolVarP(&opts.autocorrect, "autocorrect", "a", false, "correct offenses in place")
	f.BoolVar(&opts.color, "color", false, "force colored output")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	f.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the result cache")
	f.StringVar(&opts.cachePath, "cache-path", "", "result cache path (default: all_cops.cache_path relative to the repo root)")
	f.BoolVar(&opts.parallel, "parallel", true, "inspect files in parallel")
	f.StringSliceVar(&opts.only, "only", nil, "run only the named cops (comma-separated)")
	f.StringVar(&opts.failLevel, "fail-level", "refactor", "minimum severity that makes the exit code 1")
	f.StringVar(&opts.metricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")
	root.MarkFlagsMutuallyExclusive("color", "no-color")

	root.AddCommand(newCopsCmd(opts))
	return root
}

func runInspect(cmd *cobra.Command, opts *options, args []string) error {
	failLevel, err := cop.ParseSeverity(opts.failLevel)
	if err != nil {
		return fmt.Errorf("--fail-level: %w", err)
	}
	targets, err := resolveTargets(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir(targets[0]))

	log := newLogger(cmd.ErrOrStderr(), opts.debug)
	cfg, err := loadConfig(opts.configPath, repoRoot)
	if err != nil {
		return err
	}

	engineOpts := []copper.Option{
		copper.WithConfig(cfg),
		copper.WithLogger(log),
		copper.WithAutocorrect(opts.autocorrect),
		copper.WithParallel(cfg.AllCops.Parallel),
	}
	if cmd.Flags().Changed("parallel") {
		engineOpts = append(engineOpts, copper.WithParallel(opts.parallel))
	}
	if len(opts.only) > 0 {
		engineOpts = append(engineOpts, copper.WithOnly(opts.only...))
	}
	if path := resolveCachePath(opts, cfg, repoRoot); path != "" {
		engineOpts = append(engineOpts, copper.WithCache(path))
	}

	var m *metrics.Metrics
	var reg *prometheus.Registry
	if opts.metricsOut != "" {
		reg = prometheus.NewRegistry()
		m, err = metrics.NewMetrics(reg)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, copper.WithMetrics(m))
	}

	engine, err := copper.New(engineOpts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()
	warnLoadErrors(cmd.ErrOrStderr(), engine.LoadErrors())

	reports, inspectErr := inspectTargets(cmd.Context(), engine, targets)

	out := cmd.OutOrStdout()
	colors := formatter.NewColorizer(formatter.ColorOptions{
		Mode:             colorMode(opts, cfg),
		IsTerminal:       formatter.DetectTerminal(out),
		GloballyDisabled: formatter.NoColorEnv(),
	})
	fmtr, err := formatter.New(opts.format, colors, copper.Version)
	if err != nil {
		return err
	}
	if err := fmtr.Format(out, displayFiles(reports)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if m != nil {
		if err := m.WriteToTextfile(opts.metricsOut); err != nil {
			return err
		}
	}
	if inspectErr != nil {
		return inspectErr
	}
	if failed(reports, failLevel) {
		return errOffenses
	}
	return nil
}

// warnLoadErrors prints the script cops that were skipped. The run
// continues without them.
func warnLoadErrors(w io.Writer, errs []error) {
	for _, err := range errs {
		fmt.Fprintf(w, "Warning: script cop skipped: %s\n", err)
	}
}

// inspectTargets inspects directories one by one and all plain files in
// one batch. Reports from every target are returned even when one fails.
func inspectTargets(ctx context.Context, engine *copper.Engine, targets []string) ([]*copper.FileReport, error) {
	var reports []*copper.FileReport
	var files []string
	var errs []error
	for _, t := range targets {
		info, err := os.Stat(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("path not found: %s", t))
			continue
		}
		if !info.IsDir() {
			files = append(files, t)
			continue
		}
		reps, err := engine.InspectDirectory(ctx, t)
		reports = append(reports, reps...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(files) > 0 {
		reps, err := engine.InspectFiles(ctx, files)
		reports = append(reports, reps...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// failed reports whether any offense that was not corrected is at or
// above level.
func failed(reports []*copper.FileReport, level cop.Severity) bool {
	for _, rep := range reports {
		for _, o := range rep.Offenses {
			if o.Status != cop.Corrected && o.Severity >= level {
				return true
			}
		}
	}
	return false
}

// displayFiles converts reports for the formatter with paths relative to
// the working directory where possible.
func displayFiles(reports []*copper.FileReport) []formatter.File {
	cwd, _ := os.Getwd()
	files := make([]formatter.File, len(reports))
	for i, rep := range reports {
		f := rep.File()
		if cwd != "" {
			if rel, err := filepath.Rel(cwd, f.Path); err == nil && !strings.HasPrefix(rel, "..") {
				f.Path = rel
			}
		}
		files[i] = f
	}
	return files
}

func newLogger(w io.Writer, debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.WarnLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadConfig reads the --config file, or the first config file found in
// the repo root.
func loadConfig(path, repoRoot string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromDir(repoRoot)
}

// resolveCachePath returns the cache database path, or "" when caching is
// off.
func resolveCachePath(opts *options, cfg *config.Config, repoRoot string) string {
	if opts.noCache {
		return ""
	}
	path := opts.cachePath
	if path == "" {
		if !cfg.AllCops.UseCache {
			return ""
		}
		path = cfg.AllCops.CachePath
	}
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

func colorMode(opts *options, cfg *config.Config) formatter.ColorMode {
	switch {
	case opts.color:
		return formatter.ColorAlways
	case opts.noColor:
		return formatter.ColorNever
	default:
		return formatter.ParseColorMode(cfg.AllCops.Color)
	}
}

// resolveTargets returns the absolute form of each path argument, or the
// working directory when there are none.
func resolveTargets(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	targets := make([]string, len(args))
	for i, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		targets[i] = abs
	}
	return targets, nil
}

// targetDir returns path if it is a directory, or its parent otherwise.
func targetDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}
