package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// Ensure SourceCoordinator implements the interface.
var _ driving.SourceCoordinator = (*SourceCoordinator)(nil)

// Coordinator defaults.
const (
	DefaultPollInterval = 60 * time.Second
	defaultCacheSize    = 32
)

// CoordinatorOptions configures a SourceCoordinator.
type CoordinatorOptions struct {
	// PollInterval is how often a managed template is checked upstream.
	// Zero uses the default, a negative interval disables polling.
	PollInterval time.Duration

	// CacheSize bounds the shared templates remembered for fetch failures.
	CacheSize int

	// Notifier receives warnings and "template changed upstream" notices.
	Notifier driven.Notifier
}

type sharedSnapshot struct {
	tmpl   *domain.Template
	marker string
}

// SourceCoordinator tracks whether the active template is locally owned or
// owned by a shared context, gates edits accordingly, and flags upstream
// changes without ever reloading on its own.
type SourceCoordinator struct {
	templates *TemplateService
	shared    driven.SharedTemplateStore
	opts      CoordinatorOptions
	cache     *lru.Cache[string, sharedSnapshot]

	mu        sync.Mutex
	mode      domain.SourceMode
	active    *domain.Template
	local     *domain.Template
	localName string
	contextID string
	marker    string
	stale     bool
	poller    *stalenessPoller
	closed    bool
}

// NewSourceCoordinator creates a coordinator in Local mode with no active
// template. shared may be nil when no shared transport is configured.
func NewSourceCoordinator(
	templates *TemplateService,
	shared driven.SharedTemplateStore,
	opts CoordinatorOptions,
) (*SourceCoordinator, error) {
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, sharedSnapshot](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create shared template cache: %w", err)
	}
	return &SourceCoordinator{
		templates: templates,
		shared:    shared,
		opts:      opts,
		cache:     cache,
		mode:      domain.SourceLocal,
	}, nil
}

// Mode returns the current source mode.
func (c *SourceCoordinator) Mode() domain.SourceMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Active returns a copy of the active template, nil if none.
func (c *SourceCoordinator) Active() *domain.Template {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Clone()
}

// Editable reports whether Edit is currently allowed.
func (c *SourceCoordinator) Editable() bool {
	return c.Mode().Editable()
}

// ContextID returns the connected shared context, empty when local.
func (c *SourceCoordinator) ContextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextID
}

// LocalName returns the name the local template is persisted under.
func (c *SourceCoordinator) LocalName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localName
}

// Stale reports whether the shared template changed upstream since load.
func (c *SourceCoordinator) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// UseLocal activates a stored local template. An invalid template leaves
// the previous one active.
func (c *SourceCoordinator) UseLocal(ctx context.Context, name string) error {
	if c.Mode() == domain.SourceSharedManaged {
		return domain.ErrTemplateManaged
	}
	tmpl, err := c.templates.Load(ctx, name)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == domain.SourceSharedManaged {
		return domain.ErrTemplateManaged
	}
	c.local = tmpl
	c.localName = name
	c.active = tmpl
	logger.Debug("activated local template %q", name)
	return nil
}

// Edit replaces the active template with an edited version. In Local mode
// the result is persisted under the local name, if one is set.
func (c *SourceCoordinator) Edit(ctx context.Context, tmpl *domain.Template) error {
	prepared, warnings, err := c.templates.Prepare(tmpl)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.mode == domain.SourceSharedManaged {
		c.mu.Unlock()
		return domain.ErrTemplateManaged
	}
	c.active = prepared
	persist := ""
	if c.mode == domain.SourceLocal {
		c.local = prepared
		persist = c.localName
	}
	c.mu.Unlock()

	c.warn("", warnings...)
	if persist != "" {
		return c.templates.Save(ctx, persist, prepared)
	}
	return nil
}

// Connect joins a shared context. A context with a template of its own
// becomes authoritative (SharedManaged); an empty context keeps the current
// template editable (SharedUnmanaged). When the fetch fails, the last
// template loaded for the context is used if there is one.
func (c *SourceCoordinator) Connect(ctx context.Context, contextID string) (domain.SourceMode, error) {
	if contextID == "" {
		return c.Mode(), fmt.Errorf("%w: empty context id", domain.ErrInvalidInput)
	}
	if c.shared == nil {
		return c.Mode(), fmt.Errorf("%w: no shared template store configured", domain.ErrNotConnected)
	}

	remote, marker, err := c.shared.Get(ctx, contextID)
	var prepared *domain.Template
	if err == nil {
		prepared, _, err = c.templates.Prepare(remote)
		if err != nil {
			// A shared template that is not a usable form counts as absent.
			c.warn(contextID, fmt.Sprintf("shared template ignored: %v", err))
			err = domain.ErrNotFound
		}
	}

	switch {
	case err == nil:
		c.cache.Add(contextID, sharedSnapshot{tmpl: prepared, marker: marker})
		c.becomeManaged(contextID, prepared, marker)
	case errors.Is(err, domain.ErrNotFound):
		c.becomeUnmanaged(contextID)
	default:
		cached, ok := c.cache.Get(contextID)
		if !ok {
			c.warn(contextID, fmt.Sprintf("could not load shared template: %v", err))
			return c.Mode(), fmt.Errorf("fetch shared template %q: %w", contextID, err)
		}
		c.warn(contextID, fmt.Sprintf("could not load shared template, using last loaded version: %v", err))
		c.becomeManaged(contextID, cached.tmpl, cached.marker)
	}
	return c.Mode(), nil
}

func (c *SourceCoordinator) becomeManaged(contextID string, tmpl *domain.Template, marker string) {
	c.mu.Lock()
	old := c.poller
	c.mode = domain.SourceSharedManaged
	c.contextID = contextID
	c.active = tmpl.Clone()
	c.marker = marker
	c.stale = false
	c.poller = nil
	if !c.closed {
		// Started under mu so a concurrent Close or Disconnect stops it.
		c.poller = newStalenessPoller(c.opts.PollInterval, c.CheckUpstream)
		c.poller.Start()
	}
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	logger.Info("connected to shared context %q (managed)", contextID)
}

func (c *SourceCoordinator) becomeUnmanaged(contextID string) {
	c.mu.Lock()
	old := c.poller
	c.poller = nil
	if c.mode == domain.SourceSharedManaged || c.active == nil {
		c.active = c.local
	}
	c.mode = domain.SourceSharedUnmanaged
	c.contextID = contextID
	c.marker = ""
	c.stale = false
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	logger.Info("connected to shared context %q (no shared template)", contextID)
}

// SaveShared promotes the active template to the connected context,
// moving SharedUnmanaged to SharedManaged.
func (c *SourceCoordinator) SaveShared(ctx context.Context) error {
	c.mu.Lock()
	mode, contextID, active := c.mode, c.contextID, c.active
	c.mu.Unlock()

	switch {
	case contextID == "":
		return domain.ErrNotConnected
	case mode == domain.SourceSharedManaged:
		return domain.ErrTemplateManaged
	case active == nil:
		return domain.ErrNoActiveTemplate
	}

	marker, err := c.shared.Save(ctx, contextID, active)
	if err != nil {
		return fmt.Errorf("save shared template %q: %w", contextID, err)
	}
	c.cache.Add(contextID, sharedSnapshot{tmpl: active, marker: marker})
	c.becomeManaged(contextID, active, marker)
	return nil
}

// SaveLocalCopy stores the active template locally under name. It is
// allowed in every mode; the copy becomes the local template.
func (c *SourceCoordinator) SaveLocalCopy(ctx context.Context, name string) error {
	active := c.Active()
	if active == nil {
		return domain.ErrNoActiveTemplate
	}
	if err := c.templates.Save(ctx, name, active); err != nil {
		return err
	}

	c.mu.Lock()
	c.local = active
	c.localName = name
	c.mu.Unlock()
	return nil
}

// Disconnect leaves the shared context. From SharedManaged the local
// template is restored. From SharedUnmanaged the template being edited stays
// active and becomes the local template; it is not written to the local
// store until the next Edit or SaveLocalCopy.
func (c *SourceCoordinator) Disconnect() {
	c.mu.Lock()
	old := c.poller
	c.poller = nil
	if c.mode == domain.SourceSharedUnmanaged && c.active != nil {
		c.local = c.active
	}
	c.mode = domain.SourceLocal
	c.contextID = ""
	c.marker = ""
	c.stale = false
	c.active = c.local
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

// CheckUpstream compares the remote marker with the one recorded at load.
// The first mismatch sets Stale and emits one NoticeTemplateChanged; the
// template itself is never reloaded.
func (c *SourceCoordinator) CheckUpstream(ctx context.Context) (bool, error) {
	c.mu.Lock()
	mode, contextID, marker := c.mode, c.contextID, c.marker
	c.mu.Unlock()

	if contextID == "" {
		return false, domain.ErrNotConnected
	}
	if mode != domain.SourceSharedManaged {
		return false, nil
	}

	remote, err := c.shared.Status(ctx, contextID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("check shared template %q: %w", contextID, err)
	}
	if remote == marker {
		return false, nil
	}

	c.mu.Lock()
	if c.contextID != contextID || c.marker != marker {
		c.mu.Unlock()
		return false, nil
	}
	first := !c.stale
	c.stale = true
	c.mu.Unlock()

	if first && c.opts.Notifier != nil {
		c.opts.Notifier.Notify(domain.Notice{
			Kind:      domain.NoticeTemplateChanged,
			ContextID: contextID,
			Message:   "The shared template changed upstream. Reload to use the new version.",
			At:        time.Now(),
		})
	}
	return true, nil
}

// Reload re-fetches the shared template and clears staleness.
func (c *SourceCoordinator) Reload(ctx context.Context) error {
	contextID := c.ContextID()
	if contextID == "" {
		return domain.ErrNotConnected
	}
	remote, marker, err := c.shared.Get(ctx, contextID)
	if errors.Is(err, domain.ErrNotFound) {
		c.becomeUnmanaged(contextID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload shared template %q: %w", contextID, err)
	}
	prepared, _, err := c.templates.Prepare(remote)
	if err != nil {
		return err
	}
	c.cache.Add(contextID, sharedSnapshot{tmpl: prepared, marker: marker})
	c.becomeManaged(contextID, prepared, marker)
	return nil
}

// Close stops background polling. Later connections never start a poller.
func (c *SourceCoordinator) Close() error {
	c.mu.Lock()
	old := c.poller
	c.poller = nil
	c.closed = true
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	return nil
}

func (c *SourceCoordinator) warn(contextID string, messages ...string) {
	for _, m := range messages {
		logger.Warn("%s", m)
		if c.opts.Notifier != nil {
			c.opts.Notifier.Notify(domain.Notice{
				Kind:      domain.NoticeWarning,
				ContextID: contextID,
				Message:   m,
				At:        time.Now(),
			})
		}
	}
}
