// Package catalog is the façade: the single entry point embedders call
// into. It owns one open database handle for its lifetime, wires
// together the schema/migration manager, the patch store, the list
// store, and the category registry, and serializes every storage call
// behind its own mutex (spec.md §4.8, §5 "Ordering").
package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/synthvault/catalog/internal/appdir"
	"github.com/synthvault/catalog/internal/bitfield"
	"github.com/synthvault/catalog/internal/category"
	"github.com/synthvault/catalog/internal/filterc"
	"github.com/synthvault/catalog/internal/list"
	"github.com/synthvault/catalog/internal/patch"
	"github.com/synthvault/catalog/internal/storage/sqlite"
	"github.com/synthvault/catalog/internal/types"
)

// asyncWorkers is the fixed size of the global async-query worker pool
// (spec.md §4.8: "unspecified size (recommended: small, fixed)").
const asyncWorkers = 4

// Logger is the diagnostics sink the façade and the components it
// constructs log through. *logging.Logger satisfies this.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Infof(string, ...interface{}) {}
func (discardLogger) Warnf(string, ...interface{}) {}

// QueryResult is what an async query call delivers to its callback: the
// rows matched, the filter that produced them (so a UI can discard a
// result for a filter it has since replaced), and any error.
type QueryResult struct {
	Filter       filterc.Filter
	Patches      []*types.Patch
	NeedsReindex []types.NeedsReindex
	Err          error
}

// Catalog is the façade described by spec.md §4.8 and §6.
type Catalog struct {
	storageMu sync.Mutex // serializes every call that touches the open handle
	catMu     sync.Mutex // protects the category-registry snapshot

	mgr        *sqlite.Manager
	patches    *patch.Store
	lists      *list.Store
	categories *category.Registry

	synths      types.SynthRegistry
	descriptors types.SourceDescriptorDecoder
	backup      *sqlite.BackupManager
	log         Logger

	jobs      chan asyncJob
	jobsWG    sync.WaitGroup
	workers   *errgroup.Group
	closeOnce sync.Once
}

// asyncJob is one queued QueryAsync call.
type asyncJob struct {
	filter      filterc.Filter
	skip, limit int
	deliver     func(QueryResult)
}

// asyncQueueDepth bounds how many QueryAsync calls can be outstanding
// before the caller itself blocks handing one off; generous enough that
// a UI issuing a burst of queries never stalls on it in practice.
const asyncQueueDepth = 64

// Open opens the database at path (or the platform default if path is
// empty) in the given mode and wires up every component over it
// (spec.md §6, "open"). synths and descriptors are the external
// contracts the patch store borrows; a nil log discards diagnostics.
func Open(ctx context.Context, path string, mode sqlite.OpenMode, synths types.SynthRegistry, descriptors types.SourceDescriptorDecoder, log Logger) (*Catalog, error) {
	if log == nil {
		log = discardLogger{}
	}
	if path == "" {
		var err error
		path, err = appdir.DefaultDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("resolving default database path: %w", err)
		}
	}

	backup := sqlite.NewBackupManager(log)
	mgr, err := sqlite.Open(ctx, path, mode, backup)
	if err != nil {
		return nil, err
	}

	patches := patch.New(mgr.DB(), synths, descriptors, log)
	c := &Catalog{
		mgr:         mgr,
		patches:     patches,
		lists:       list.New(mgr.DB(), patches),
		categories:  category.New(mgr.DB()),
		synths:      synths,
		descriptors: descriptors,
		backup:      backup,
		log:         log,
		jobs:        make(chan asyncJob, asyncQueueDepth),
	}

	c.workers, _ = errgroup.WithContext(context.Background())
	for i := 0; i < asyncWorkers; i++ {
		c.workers.Go(c.runAsyncWorker)
	}
	return c, nil
}

// runAsyncWorker drains jobs until the channel is closed by Close. It
// reads c.patches fresh for every job, rather than capturing it once,
// so a SwitchDatabaseFile mid-flight is picked up by the next job
// rather than by queries already holding storageMu.
func (c *Catalog) runAsyncWorker() error {
	for job := range c.jobs {
		ctx := context.Background()
		c.storageMu.Lock()
		rows, needsReindex, err := c.patches.Query(ctx, job.filter, job.skip, job.limit)
		c.storageMu.Unlock()
		job.deliver(QueryResult{Filter: job.filter, Patches: rows, NeedsReindex: needsReindex, Err: err})
		c.jobsWG.Done()
	}
	return nil
}

// SwitchDatabaseFile closes the current handle and opens newPath in its
// place. A schema-version mismatch on newPath is the one locally
// recovered error (spec.md §7): this method returns (false, err) and
// leaves the prior handle open and untouched rather than leaving the
// façade without a database. Every other open failure also leaves the
// prior handle intact, for the same reason.
func (c *Catalog) SwitchDatabaseFile(ctx context.Context, newPath string, mode sqlite.OpenMode) (bool, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()

	newMgr, err := sqlite.Open(ctx, newPath, mode, c.backup)
	if err != nil {
		return false, err
	}

	if err := c.mgr.Close(); err != nil {
		_ = newMgr.Close()
		return false, fmt.Errorf("closing previous database: %w", err)
	}

	c.mgr = newMgr
	c.patches = patch.New(newMgr.DB(), c.synths, c.descriptors, c.log)
	c.lists = list.New(newMgr.DB(), c.patches)
	c.categories = category.New(newMgr.DB())
	return true, nil
}

// PutPatch inserts one new patch row (spec.md §6, "put patch"). For the
// upsert/merge semantics use MergePatches instead.
func (c *Catalog) PutPatch(ctx context.Context, p *types.Patch) error {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Insert(ctx, p)
}

// MergePatches upserts a batch against the existing table (spec.md §4.6,
// §6 "merge patches").
func (c *Catalog) MergePatches(ctx context.Context, patches []*types.Patch, mask types.UpdateMask, useTransaction bool, reporter types.ProgressReporter) (storedCount int, newPatches []*types.Patch, err error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Merge(ctx, patches, mask, useTransaction, reporter)
}

// Query runs a synchronous filtered query (spec.md §6, "query").
func (c *Catalog) Query(ctx context.Context, filter filterc.Filter, skip, limit int) ([]*types.Patch, []types.NeedsReindex, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Query(ctx, filter, skip, limit)
}

// QueryAsync queues filter on the global worker pool and returns
// immediately; a worker calls deliver with the originating filter and
// the result once it completes (spec.md §4.8). deliver must not block;
// it runs on a pool goroutine, not the caller's.
func (c *Catalog) QueryAsync(filter filterc.Filter, skip, limit int, deliver func(QueryResult)) {
	c.jobsWG.Add(1)
	c.jobs <- asyncJob{filter: filter, skip: skip, limit: limit, deliver: deliver}
}

// Wait blocks until every queued async query has been delivered. Tests
// and a clean shutdown path use this; ordinary callers need not.
func (c *Catalog) Wait() {
	c.jobsWG.Wait()
}

// Count returns the number of rows filter matches (spec.md §6, "count").
func (c *Catalog) Count(ctx context.Context, filter filterc.Filter) (int, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Count(ctx, filter)
}

// Delete removes every row filter matches (spec.md §6, "delete").
func (c *Catalog) Delete(ctx context.Context, filter filterc.Filter) (int, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Delete(ctx, filter)
}

// Reindex recomputes content hashes for filter's single synth (spec.md
// §6, "reindex").
func (c *Catalog) Reindex(ctx context.Context, filter filterc.Filter, reporter types.ProgressReporter) (int, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.Reindex(ctx, filter, reporter)
}

// ListPatchLists returns every list's metadata (spec.md §6, "list patch
// lists").
func (c *Catalog) ListPatchLists(ctx context.Context) ([]types.ListInfo, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.lists.All(ctx)
}

// GetList loads one list and its resolved patches (spec.md §6, "get
// list").
func (c *Catalog) GetList(ctx context.Context, listID string) (*types.List, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.lists.Get(ctx, listID)
}

// PutList creates a new list or renames an existing one, depending on
// whether info.ID already names one (spec.md §6, "put list").
func (c *Catalog) PutList(ctx context.Context, info types.ListInfo) error {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	existing, err := c.lists.All(ctx)
	if err != nil {
		return err
	}
	for _, l := range existing {
		if l.ID == info.ID {
			return c.lists.Update(ctx, info)
		}
	}
	return c.lists.Create(ctx, info)
}

// AppendToList adds p to listID at order_num 0 (spec.md §6, "append
// list"); see list.Store.Append.
func (c *Catalog) AppendToList(ctx context.Context, listID string, p *types.Patch) error {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.lists.Append(ctx, listID, p)
}

// UpdateCategories upserts the given category rows by bit index (spec.md
// §6, "update categories"). It never allocates a bit index on the
// caller's behalf; call NextCategoryBitIndex first for a new category.
func (c *Catalog) UpdateCategories(ctx context.Context, defs []types.CategoryDefinition) error {
	c.catMu.Lock()
	defer c.catMu.Unlock()
	return c.categories.Upsert(ctx, defs)
}

// NextCategoryBitIndex returns MAX(bit_index)+1, the bit index a new
// category should use (spec.md §6, "allocate next bit index"). It
// writes nothing; the index is taken once UpdateCategories stores a
// row at it.
func (c *Catalog) NextCategoryBitIndex(ctx context.Context) (int, error) {
	c.catMu.Lock()
	defer c.catMu.Unlock()
	return c.categories.NextFreeBitIndex(ctx)
}

// SnapshotCategories returns the active category definitions and a
// codec built from them in the same locked step, so the codec's bit
// range can never disagree with the definitions a caller pairs it with
// (spec.md §6 "snapshot", §9 "side-effect in category snapshot").
func (c *Catalog) SnapshotCategories(ctx context.Context) ([]types.CategoryDefinition, *bitfield.Codec, error) {
	c.catMu.Lock()
	defer c.catMu.Unlock()
	return c.categories.Snapshot(ctx)
}

// GetCategories returns every category row, active and inactive alike
// (spec.md §6, "get categories").
func (c *Catalog) GetCategories(ctx context.Context) ([]types.CategoryDefinition, error) {
	c.catMu.Lock()
	defer c.catMu.Unlock()
	return c.categories.All(ctx)
}

// ReconcileCategories reconciles the registry against an externally
// supplied automatic-rule set (spec.md §4.2 reconcile_with_rules).
func (c *Catalog) ReconcileCategories(ctx context.Context, rules []types.CategoryRule) (*category.MergedCategorizer, error) {
	c.catMu.Lock()
	defer c.catMu.Unlock()
	return c.categories.ReconcileWithRules(ctx, rules)
}

// ListImports returns every import grouping recorded for synthName
// (spec.md §6, "list imports").
func (c *Catalog) ListImports(ctx context.Context, synthName string) ([]types.Import, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.patches.ListImports(ctx, synthName)
}

// Path reports the currently open database file, or ":memory:".
func (c *Catalog) Path() string {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.mgr.Path()
}

// Snapshot copies the live database file to a sibling named
// <stem><suffix><ext>, uniquified against clobbering an existing file
// (spec.md §4.4, §6 "snapshot").
func (c *Catalog) Snapshot(suffix string) (string, error) {
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.backup.Snapshot(c.mgr.Path(), suffix)
}

// Close stops taking new async queries, waits for every worker to drain
// its queue, then backs up and releases the open database handle
// (spec.md §4.3 "on close"). Calling Close again is a no-op.
func (c *Catalog) Close() error {
	c.closeOnce.Do(func() { close(c.jobs) })
	_ = c.workers.Wait()
	c.storageMu.Lock()
	defer c.storageMu.Unlock()
	return c.mgr.Close()
}
