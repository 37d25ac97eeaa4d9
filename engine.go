package copper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/config"
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/cops"
	"github.com/jward/copper/internal/corrector"
	"github.com/jward/copper/internal/metrics"
	"github.com/jward/copper/internal/parser"
	"github.com/jward/copper/internal/pattern"
	"github.com/jward/copper/internal/runtime"
	"github.com/jward/copper/internal/store"
	"github.com/jward/copper/scripts"
)

// Engine orchestrates the copper pipeline: file discovery, cache lookup,
// parsing, rule dispatch and multi-pass autocorrection.
type Engine struct {
	cfg       *config.Config
	log       *logrus.Logger
	metrics   *metrics.Metrics
	store     *store.Store
	cachePath string
	scriptsFS fs.FS
	only      []string

	useParallel bool
	autocorrect bool
	maxPasses   int

	registry     *cop.Registry
	commissioner *cop.Commissioner
	patterns     *pattern.Cache
	loadErrors   []error
	// cacheKey covers the configuration, the scripts and the run mode.
	cacheKey string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the configuration. The default is config.DefaultConfig.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger used by the engine, its cops and scripts.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics records inspection metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCache enables the result cache backed by a SQLite database at
// dbPath. An empty path disables caching.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.cachePath = dbPath
	}
}

// WithParallel controls parallel inspection. When true (default),
// InspectFiles runs files on a bounded worker pool. Set to false for
// serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithAutocorrect enables correction passes.
func WithAutocorrect(autocorrect bool) Option {
	return func(e *Engine) {
		e.autocorrect = autocorrect
	}
}

// WithScriptsFS replaces the embedded script cops with the manifest and
// scripts found in fsys. A nil fsys disables built-in script cops.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithMaxPasses bounds the correction passes per file. Zero keeps the
// configured value.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// WithOnly restricts the run to the named cops, enabled or not.
func WithOnly(names ...string) Option {
	return func(e *Engine) {
		e.only = names
	}
}

// New creates an Engine. Built-in cops, embedded script cops and the
// configuration's script cops are registered; a script cop that fails to
// load is skipped and reported by LoadErrors.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		scriptsFS:   scripts.FS,
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.DefaultConfig()
		if err := e.cfg.Validate(); err != nil {
			return nil, fmt.Errorf("copper: %w", err)
		}
	}
	if e.log == nil {
		e.log = logrus.New()
	}
	if e.maxPasses <= 0 {
		e.maxPasses = e.cfg.AllCops.MaxPasses
	}

	patterns, err := pattern.NewCache(runtime.DefaultPatternCacheSize)
	if err != nil {
		return nil, fmt.Errorf("copper: %w", err)
	}
	e.patterns = patterns

	all := cop.NewRegistry()
	if err := cops.RegisterDefaults(all); err != nil {
		return nil, fmt.Errorf("copper: %w", err)
	}
	userRT := e.registerScripts(all)
	all.Seal()

	if err := e.selectRules(all); err != nil {
		return nil, err
	}
	e.commissioner = cop.NewCommissioner(e.registry, e.log)
	e.cacheKey = e.computeCacheKey(userRT)

	if e.cachePath != "" {
		s, err := store.NewStore(e.cachePath)
		if err != nil {
			return nil, fmt.Errorf("copper: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("copper: migrate: %w", err)
		}
		n, err := s.PruneConfig(e.cacheKey)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("copper: %w", err)
		}
		if n > 0 {
			e.log.WithField("rows", n).Debug("copper: pruned stale cache entries")
		}
		e.store = s
	}
	return e, nil
}

// registerScripts loads the embedded manifest and the configuration's
// scripts into reg and returns the runtime used for the latter.
func (e *Engine) registerScripts(reg *cop.Registry) *runtime.Runtime {
	rtOpts := []runtime.RuntimeOption{
		runtime.WithLogger(e.log),
		runtime.WithPatternCache(e.patterns),
	}

	var loaded []*runtime.ScriptCop
	if e.scriptsFS != nil {
		specs, err := runtime.LoadManifest(e.scriptsFS, scripts.Manifest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			e.loadErrors = append(e.loadErrors, err)
		default:
			rt := runtime.NewRuntime("", append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))...)
			cs, errs := rt.Load(specs)
			loaded = append(loaded, cs...)
			e.loadErrors = append(e.loadErrors, errs...)
		}
	}

	userRT := runtime.NewRuntime(e.cfg.Dir(), rtOpts...)
	cs, errs := userRT.Load(e.cfg.Scripts)
	loaded = append(loaded, cs...)
	e.loadErrors = append(e.loadErrors, errs...)

	for _, c := range loaded {
		if err := reg.Register(c); err != nil {
			e.log.WithError(err).WithField("cop", c.Name()).Debug("copper: script cop not registered")
			e.loadErrors = append(e.loadErrors, fmt.Errorf("copper: %w", err))
		}
	}
	return userRT
}

// selectRules narrows all to the cops this run uses and applies severity
// overrides.
func (e *Engine) selectRules(all *cop.Registry) error {
	var only map[string]bool
	if len(e.only) > 0 {
		only = make(map[string]bool, len(e.only))
		for _, name := range e.only {
			if _, ok := all.Get(name); !ok {
				return fmt.Errorf("%w %q", ErrUnknownCop, name)
			}
			only[name] = true
		}
	}
	e.registry = all.Subset(func(r cop.Rule) (cop.Rule, bool) {
		if only != nil {
			if !only[r.Name()] {
				return nil, false
			}
		} else if !e.cfg.Enabled(r.Name()) {
			return nil, false
		}
		if sev := e.cfg.SeverityFor(r.Name(), r.Severity()); sev != r.Severity() {
			return cop.WithSeverity(r, sev), true
		}
		return r, true
	})
	return nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Registry returns the sealed registry of the cops this engine runs.
func (e *Engine) Registry() *cop.Registry { return e.registry }

// LoadErrors returns the script cops that failed to load or register.
func (e *Engine) LoadErrors() []error { return e.loadErrors }

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// scriptsHash computes a SHA-256 hash of every script the engine loaded:
// the files of the scripts filesystem plus the configuration's scripts.
func (e *Engine) scriptsHash(userRT *runtime.Runtime) string {
	h := sha256.New()
	if e.scriptsFS != nil {
		var paths []string
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				paths = append(paths, path)
			}
			return nil
		})
		sort.Strings(paths)
		for _, p := range paths {
			src, err := fs.ReadFile(e.scriptsFS, p)
			if err != nil {
				continue
			}
			h.Write([]byte(p))
			h.Write(src)
		}
	}
	for _, s := range e.cfg.Scripts {
		for _, p := range []string{s.Path, s.Correction} {
			if p == "" {
				continue
			}
			src, err := userRT.LoadScript(p)
			if err != nil {
				continue
			}
			h.Write([]byte(p))
			h.Write([]byte(src))
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func (e *Engine) computeCacheKey(userRT *runtime.Runtime) string {
	h := sha256.New()
	fmt.Fprintln(h, Version)
	fmt.Fprintln(h, e.cfg.Hash())
	fmt.Fprintln(h, e.scriptsHash(userRT))
	fmt.Fprintln(h, strings.Join(e.registry.Names(), ","))
	fmt.Fprintln(h, strconv.FormatBool(e.autocorrect))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// InspectSource inspects src as the contents of path. It never touches
// the disk or the cache.
func (e *Engine) InspectSource(ctx context.Context, path string, src []byte) (*FileReport, error) {
	start := time.Now()
	rep, err := e.inspect(ctx, path, src)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveFile(time.Since(start), rep.Offenses, rep.Errors)
	return rep, nil
}

// inspect runs investigation passes over src. Without autocorrect there
// is exactly one pass. With it, each pass's applied edits produce the
// source of the next, until a pass applies nothing.
func (e *Engine) inspect(ctx context.Context, path string, src []byte) (*FileReport, error) {
	lang, ok := parser.LanguageForFile(path)
	if !ok {
		lang = "ruby"
	}
	log := e.log.WithField("file", path)

	rep := &FileReport{Path: path, Original: src}
	current := src
	seen := map[string]bool{store.HashContent(src): true}
	var corrected []cop.Offense

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("copper: %s: %w", path, err)
		}
		rep.Passes = pass

		root, _, err := parser.Parse(ctx, lang, path, current)
		var serr *parser.SyntaxError
		if errors.As(err, &serr) {
			if pass > 1 {
				return nil, fmt.Errorf("copper: %s: corrections produced invalid source: %w", path, err)
			}
			rep.final = []cop.Offense{syntaxOffense(serr)}
			rep.Offenses = rep.final
			break
		}
		if err != nil {
			return nil, fmt.Errorf("copper: %w", err)
		}

		var corr *corrector.Corrector
		invOpts := cop.InvestigateOptions{Context: ctx}
		if e.autocorrect {
			corr = corrector.New()
			invOpts.Corrector = corr
		}
		inv := e.commissioner.Investigate(root, invOpts)
		for _, rerr := range inv.Errors {
			rep.Errors = append(rep.Errors, rerr)
		}

		done := corr == nil || corr.Len() == 0
		if !done {
			res, err := corr.Finalize(current)
			if err != nil {
				return nil, fmt.Errorf("copper: %s: %w", path, err)
			}
			for _, rj := range res.Rejected {
				inv.MarkRejected(rj.Owner)
			}
			e.metrics.ObserveEdits(len(res.Applied), len(res.Rejected))

			if !res.Changed() || bytes.Equal(res.Source, current) {
				done = true
			} else {
				hash := store.HashContent(res.Source)
				if seen[hash] || pass >= e.maxPasses {
					return nil, fmt.Errorf("%w: %s after %d passes", ErrInfiniteCorrectionLoop, path, pass)
				}
				seen[hash] = true
				for _, o := range inv.Offenses {
					if o.Status == cop.Corrected {
						corrected = append(corrected, o)
						if rep.foundIn == nil {
							rep.foundIn = make(map[cop.OffenseKey][]byte)
						}
						rep.foundIn[o.Key()] = current
					}
				}
				current = res.Source
			}
		}
		if done {
			rep.final = inv.Offenses
			rep.Offenses = append(corrected, inv.Offenses...)
			break
		}
	}

	rep.Source = current
	log.WithFields(logrus.Fields{
		"passes":   rep.Passes,
		"offenses": len(rep.Offenses),
	}).Debug("copper: inspected")
	return rep, nil
}

func syntaxOffense(serr *parser.SyntaxError) cop.Offense {
	return cop.Offense{
		Rule:     SyntaxCop,
		Message:  serr.Msg,
		Range:    ast.Range{Start: serr.Offset, End: serr.Offset},
		Location: serr.Pos,
		Severity: cop.Fatal,
		Status:   cop.Unsupported,
	}
}

// skipDirs lists directories the filesystem walk never enters.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"tmp":          true,
}

// InspectDirectory inspects every Ruby file under root. If root is inside
// a git repository, uses git ls-files to respect .gitignore. Falls back
// to a filesystem walk (skipping hidden dirs, node_modules, vendor and
// tmp) if git is unavailable. Configured excludes apply to paths relative
// to root.
func (e *Engine) InspectDirectory(ctx context.Context, root string) ([]*FileReport, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.log.WithError(err).Debug("copper: falling back to directory walk")
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	kept := paths[:0]
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		if e.cfg.Excluded(rel) {
			continue
		}
		kept = append(kept, p)
	}
	sort.Strings(kept)
	return e.InspectFiles(ctx, kept)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to Ruby sources.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := parser.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("copper: walk directory: %w", err)
	}
	return paths, nil
}
