package copper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/copper/internal/parser"
	"github.com/jward/copper/internal/store"
)

// workItem holds everything a worker needs, and what it produced.
type workItem struct {
	path        string
	mode        fs.FileMode
	content     []byte
	contentHash string

	// Set in phase A on a cache hit, or in phase B otherwise.
	report *FileReport
	err    error
	start  time.Time
}

// InspectFiles inspects the given files using a three-phase pipeline:
//
//	Phase A (serial):   Read, hash and look up each file in the cache.
//	Phase B (parallel): Inspect cache misses on a bounded worker pool.
//	Phase C (serial):   Write corrected files, commit the cache batch.
//
// Files that could not be read or inspected, or whose result carries rule
// errors, lose any cache entry left from earlier runs.
// Reports come back in input order. A file that fails is left out of the
// reports and its error is part of the returned error; other files are
// unaffected. Unsupported files are skipped.
func (e *Engine) InspectFiles(ctx context.Context, paths []string) ([]*FileReport, error) {
	var batch *store.BatchedStore
	var cache store.DataStore
	if e.store != nil {
		batch = store.NewBatchedStore(e.store)
		cache = batch
	}

	// ---- Phase A: Serial file preparation ----
	var errs []error
	var forget []string
	items := make([]*workItem, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("copper: %w", err)
		}
		item, err := e.prepareFile(path, cache)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			forget = append(forget, path)
			continue
		}
		if item != nil {
			items = append(items, item)
		}
	}

	// ---- Phase B: Parallel inspection ----
	numWorkers := 1
	if e.useParallel {
		numWorkers = max(runtime.NumCPU(), 1)
	}
	var g errgroup.Group
	g.SetLimit(numWorkers)
	for _, item := range items {
		if item.report != nil {
			continue
		}
		g.Go(func() error {
			item.report, item.err = e.inspect(ctx, item.path, item.content)
			return nil
		})
	}
	g.Wait()

	// ---- Phase C: Serial commit ----
	reports := make([]*FileReport, 0, len(items))
	for _, item := range items {
		if item.err != nil {
			errs = append(errs, fmt.Errorf("inspect %s: %w", item.path, item.err))
			forget = append(forget, item.path)
			continue
		}
		rep := item.report
		if !rep.Cached && len(rep.Errors) > 0 {
			forget = append(forget, item.path)
		}
		if err := e.commitFile(item, cache); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.path, err))
			continue
		}
		e.metrics.ObserveFile(time.Since(item.start), rep.Offenses, rep.Errors)
		reports = append(reports, rep)
	}
	if batch != nil && batch.Len() > 0 {
		if err := e.store.CommitBatch(batch); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil && len(forget) > 0 {
		if err := e.store.Forget(forget...); err != nil {
			e.log.WithError(err).Warn("copper: dropping stale cache entries failed")
		}
	}

	if len(errs) > 0 {
		return reports, fmt.Errorf("copper: inspection had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return reports, nil
}

// prepareFile does Phase A work for a single file. It returns nil for an
// unsupported file, and an item with its report already set on a cache
// hit.
func (e *Engine) prepareFile(path string, cache store.DataStore) (*workItem, error) {
	if _, ok := parser.LanguageForFile(path); !ok {
		e.log.WithField("file", path).Debug("copper: skipping unsupported file")
		return nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	item := &workItem{
		path:        path,
		mode:        info.Mode().Perm(),
		content:     content,
		contentHash: store.HashContent(content),
		start:       time.Now(),
	}
	if cache == nil {
		return item, nil
	}

	cached, err := cache.Lookup(path, item.contentHash, e.cacheKey)
	if err != nil {
		e.log.WithError(err).WithField("file", path).Warn("copper: cache lookup failed")
	}
	e.metrics.ObserveCacheLookup(cached != nil)
	if cached == nil {
		e.log.WithField("file", path).Debug("copper: cache miss")
		return item, nil
	}
	item.report = &FileReport{
		Path:     path,
		Original: content,
		Source:   content,
		Offenses: cached.Offenses,
		Cached:   true,
		final:    cached.Offenses,
	}
	return item, nil
}

// commitFile writes a corrected file back to disk and buffers its
// result for the cache. Results with rule errors are not cached so the
// failure shows again on the next run.
func (e *Engine) commitFile(item *workItem, cache store.DataStore) error {
	rep := item.report
	if rep.Cached {
		return nil
	}
	if rep.Changed() {
		if err := os.WriteFile(item.path, rep.Source, item.mode); err != nil {
			return fmt.Errorf("write corrected file: %w", err)
		}
	}
	if cache == nil || len(rep.Errors) > 0 {
		return nil
	}
	return cache.Put(&store.Inspection{
		Path:        item.path,
		ContentHash: store.HashContent(rep.Source),
		ConfigHash:  e.cacheKey,
		Offenses:    rep.final,
	})
}
