package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ppiankov/costscan/internal/config"
	"github.com/ppiankov/costscan/internal/reporter"
	"github.com/ppiankov/costscan/internal/scan"
)

// debounceDefault is the debounce interval for file events.
const debounceDefault = 200 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var (
		skipDirs []string
		maxFiles int
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan on file changes and browse findings live",
		Long:  "Watch the project tree, rescan after each change, and show findings in an interactive browser that refreshes in place.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("skip-dir") && len(cfg.SkipDirs) > 0 {
				skipDirs = cfg.SkipDirs
			}
			if !cmd.Flags().Changed("max-files") && cfg.MaxFiles > 0 {
				maxFiles = cfg.MaxFiles
			}
			if !cmd.Flags().Changed("workers") && cfg.Workers > 0 {
				workers = cfg.Workers
			}

			debounce := cfg.WatchDebounce
			if debounce <= 0 {
				debounce = debounceDefault
			}

			w := &watchSession{
				root:     root,
				opts:     scan.Options{SkipDirs: skipDirs, MaxFiles: maxFiles, Workers: workers},
				skipDirs: skipDirs,
				debounce: debounce,
			}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVar(&skipDirs, "skip-dir", nil, "extra directory names to skip")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "stop discovery after this many files (0 = unlimited)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file analyzers (0 = default)")

	return cmd
}

type watchSession struct {
	root     string
	opts     scan.Options
	skipDirs []string
	debounce time.Duration

	mu     sync.RWMutex
	result *scan.Result
}

func (w *watchSession) latest() *scan.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.result
}

func (w *watchSession) rescan(ctx context.Context) {
	result, err := scan.Scan(ctx, w.root, w.opts)
	if err != nil {
		slog.Error("rescan failed", "error", err)
		return
	}
	w.mu.Lock()
	w.result = result
	w.mu.Unlock()
}

func (w *watchSession) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.rescan(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dirs, err := scan.WatchDirs(w.root, w.skipDirs)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			slog.Warn("watch dir", "dir", d, "error", err)
		}
	}

	go w.eventLoop(ctx, watcher)

	if !isTerminal() {
		return w.plainLoop(ctx)
	}

	model := reporter.NewTUIModel(w.latest)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// eventLoop coalesces bursts of file events into one rescan per debounce
// window. New directories are added to the watcher as they appear.
func (w *watchSession) eventLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			w.rescan(ctx)
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if !skippedDirName(filepath.Base(event.Name), w.skipDirs) {
						_ = watcher.Add(event.Name)
					}
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// plainLoop renders text output after every rescan when stdout is not a
// terminal.
func (w *watchSession) plainLoop(ctx context.Context) error {
	formatter := scan.NewTextFormatter(false)
	var lastTotal = -1

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result := w.latest()
			if result == nil || result.TotalFindings == lastTotal {
				continue
			}
			lastTotal = result.TotalFindings
			if err := formatter.Format(os.Stdout, result); err != nil {
				return err
			}
		}
	}
}

func skippedDirName(name string, extra []string) bool {
	if scan.DefaultSkipDirs[name] {
		return true
	}
	for _, d := range extra {
		if strings.TrimSpace(d) == name {
			return true
		}
	}
	return strings.HasPrefix(name, ".") && name != ".github" && name != ".gitlab"
}
