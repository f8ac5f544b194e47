// Package pages tracks the live widget pages served by this process.
package pages

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/scripture-chat/internal/agent"
	"github.com/ashureev/scripture-chat/internal/config"
	"github.com/ashureev/scripture-chat/internal/identity"
	"github.com/ashureev/scripture-chat/internal/widget"
)

// ErrPageNotFound is returned for unknown or expired page IDs.
var ErrPageNotFound = errors.New("page not found")

// Options configures the widgets created by a Registry.
type Options struct {
	Client         agent.Client
	Persona        config.Persona
	Journal        widget.ObjectJournal // optional
	MaxDiagnostics int
	Logger         *slog.Logger
	Now            func() time.Time
}

type page struct {
	widget   *widget.Widget
	lastSeen time.Time
}

// Registry owns one widget per open page.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]*page
	opts  Options
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		pages: make(map[string]*page),
		opts:  opts,
	}
}

// Open creates a page and initializes its session. Initialization failures
// are reflected in the page transcript, so the page is returned either way.
func (r *Registry) Open(ctx context.Context) *widget.Widget {
	id := identity.NewPageID()
	w := widget.New(widget.Options{
		PageID:         id,
		Persona:        r.opts.Persona,
		Client:         r.opts.Client,
		Journal:        r.opts.Journal,
		MaxDiagnostics: r.opts.MaxDiagnostics,
		Logger:         r.opts.Logger,
		Now:            r.opts.Now,
	})

	r.mu.Lock()
	r.pages[id] = &page{widget: w, lastSeen: r.opts.Now()}
	r.mu.Unlock()
	r.opts.Logger.Info("Page opened", "page_id", id)

	if err := w.Initialize(ctx); err != nil {
		r.opts.Logger.Warn("Page session failed to initialize", "page_id", id, "error", err)
	}
	return w
}

// Get returns the widget for a page and marks the page as active.
func (r *Registry) Get(id string) (*widget.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	p.lastSeen = r.opts.Now()
	return p.widget, nil
}

// Len returns the number of open pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// Close tears a page down and forgets it.
func (r *Registry) Close(ctx context.Context, id string) (widget.TeardownResult, error) {
	r.mu.Lock()
	p, ok := r.pages[id]
	if ok {
		delete(r.pages, id)
	}
	r.mu.Unlock()
	if !ok {
		return widget.TeardownResult{}, ErrPageNotFound
	}

	result := p.widget.DeleteAllObjects(ctx)
	p.widget.Close()
	r.opts.Logger.Info("Page closed", "page_id", id)
	return result, nil
}

// Expire tears down pages idle for longer than ttl and returns how many were removed.
func (r *Registry) Expire(ctx context.Context, ttl time.Duration) int {
	cutoff := r.opts.Now().Add(-ttl)

	r.mu.Lock()
	var expired []*page
	for id, p := range r.pages {
		if p.lastSeen.Before(cutoff) {
			expired = append(expired, p)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, p := range expired {
		r.opts.Logger.Info("Expiring idle page", "page_id", p.widget.ID(), "last_seen", p.lastSeen)
		p.widget.DeleteAllObjects(ctx)
		p.widget.Close()
	}
	return len(expired)
}

// CloseAll tears down every open page. Used at shutdown.
func (r *Registry) CloseAll(ctx context.Context) int {
	r.mu.Lock()
	all := r.pages
	r.pages = make(map[string]*page)
	r.mu.Unlock()

	for _, p := range all {
		p.widget.DeleteAllObjects(ctx)
		p.widget.Close()
	}
	return len(all)
}
