// Package watch imports template files dropped into a folder.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is imported.
const DefaultSettle = 250 * time.Millisecond

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Result reports one import attempt.
type Result struct {
	Path     string
	Name     string
	Warnings []string
	Err      error
}

// Options configures a Watcher.
type Options struct {
	// Settle debounces rapid writes to the same file (default: DefaultSettle).
	Settle time.Duration

	// Report receives every import attempt. Called from the watch goroutine.
	Report func(Result)
}

// Watcher imports .json, .yaml and .yml templates from a directory into the
// local template store as they are created or rewritten.
type Watcher struct {
	dir       string
	templates driving.TemplateService
	settle    time.Duration
	report    func(Result)

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for dir.
func New(dir string, templates driving.TemplateService, opts Options) *Watcher {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Report == nil {
		opts.Report = func(Result) {}
	}
	return &Watcher{
		dir:       dir,
		templates: templates,
		settle:    opts.Settle,
		report:    opts.Report,
		pending:   make(map[string]time.Time),
	}
}

// TemplateNameFor derives a store name from a file path: the base name
// without extension, with unsupported characters replaced by '_'.
func TemplateNameFor(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := strings.Trim(invalidNameChars.ReplaceAllString(base, "_"), "_")
	if name == "" {
		return "template"
	}
	return name
}

func isTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return !strings.HasPrefix(filepath.Base(path), ".")
	default:
		return false
	}
}

// ImportExisting imports every template file already in the directory.
func (w *Watcher) ImportExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading import folder: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		w.report(w.importFile(ctx, filepath.Join(w.dir, e.Name())))
	}
	return nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Debug("watch: watching %s", w.dir)

	tick := time.NewTicker(w.settle / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(event.Name) || !(event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-tick.C:
			w.flush(ctx)
		}
	}
}

// flush imports files that have been quiet for the settle period.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.report(w.importFile(ctx, path))
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) Result {
	res := Result{Path: path, Name: TemplateNameFor(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		return res
	}
	tmpl, err := w.templates.Parse(data, formatFor(path))
	if err != nil {
		res.Err = err
		return res
	}
	if err := w.templates.Validate(tmpl); err != nil {
		res.Err = err
		return res
	}
	_, res.Warnings = w.templates.Normalize(tmpl)
	if err := w.templates.Save(ctx, res.Name, tmpl); err != nil {
		res.Err = err
		return res
	}
	logger.Info("imported template %q from %s", res.Name, filepath.Base(path))
	return res
}

func formatFor(path string) driving.TemplateFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return driving.FormatJSON
	}
	return driving.FormatYAML
}
