package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/synthvault/catalog/internal/catalog"
	"github.com/synthvault/catalog/internal/storage/sqlite"
	"github.com/synthvault/catalog/internal/types"
)

var (
	watchSynthName string
	watchDebounce  time.Duration
)

// emptySynthRegistry resolves no synths. sxv is a reference CLI over
// the catalog core; it does not link any hardware synth's sysex parser
// itself (spec.md §6 draws the Synth contract as the embedder's
// responsibility). watch fails clearly instead of guessing a format.
type emptySynthRegistry struct{}

func (emptySynthRegistry) Synth(string) (types.Synth, bool) { return nil, false }

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "import every new file dropped into a directory",
	Long: `watch observes a directory and, each time a file is created or
written, imports it as a new patch via the --synth parser and merges it
into the catalog with every field refreshed.

This binary does not embed any hardware synth's sysex parser; --synth
must name one registered by whatever build links it in, or watch exits
immediately with an error naming the missing synth.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		registry := emptySynthRegistry{}
		if _, ok := registry.Synth(watchSynthName); !ok {
			return fmt.Errorf("no synth named %q is registered in this build; watch cannot parse incoming files without one", watchSynthName)
		}
		return runWatch(cmdContext(cmd), dir, registry)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSynthName, "synth", "", "name of the registered synth parser to use for incoming files (required)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "minimum quiet period after the last write before a file is imported")
	_ = watchCmd.MarkFlagRequired("synth")
}

func runWatch(ctx context.Context, dir string, registry types.SynthRegistry) error {
	cat, err := catalog.Open(ctx, resolvedDBPath(), sqlite.ModeReadWrite, registry, nil, log)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	color.Green("watching %s for new patches (synth=%s)\n", dir, watchSynthName)

	pending := make(map[string]*time.Timer)
	importOne := func(path string) {
		if err := importWatchedFile(ctx, cat, registry, path); err != nil {
			color.Red("import %s: %v\n", path, err)
			if log != nil {
				log.Warnf("watch: import %s: %v", path, err)
			}
			return
		}
		fmt.Printf("imported %s\n", path)
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := event.Name
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(watchDebounce, func() { importOne(path) })

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			color.Red("watch error: %v\n", err)
		}
	}
}

func importWatchedFile(ctx context.Context, cat *catalog.Catalog, registry types.SynthRegistry, path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from a watched directory the operator chose
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	synth, ok := registry.Synth(watchSynthName)
	if !ok {
		return fmt.Errorf("synth %q is no longer registered", watchSynthName)
	}
	patch, err := synth.Deserialize(data, 0)
	if err != nil {
		return fmt.Errorf("deserializing %s: %w", filepath.Base(path), err)
	}

	_, _, err = cat.MergePatches(ctx, []*types.Patch{patch}, types.UpdateAll, true, types.NopReporter{})
	return err
}
