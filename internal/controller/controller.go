// Package controller implements the instance operations behind both the
// TUI and the CLI. It owns the in-memory view of all instances and
// re-derives it from the stores after every mutation.
//
// A Controller is not safe for concurrent use. The TUI calls it from the
// Bubble Tea update loop; background goroutines reach it only through
// events delivered to that loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/smartnotes/internal/autostart"
	"github.com/zjrosen/smartnotes/internal/config"
	"github.com/zjrosen/smartnotes/internal/history"
	"github.com/zjrosen/smartnotes/internal/hook"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/legacy"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/store"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/tracing"
)

// Supervisor is the process side the controller needs.
type Supervisor interface {
	Launch(ctx context.Context, id string) error
	IsRunning(id string) bool
	PID(id string) (int, bool)
}

// History is the launch journal. It is optional.
type History interface {
	Last(ctx context.Context, instanceID string) (history.Launch, bool, error)
	DeleteInstance(ctx context.Context, instanceID string) (int64, error)
}

// Deps are the collaborators of a Controller. Store, Registry, Hook and
// Supervisor are required.
type Deps struct {
	Config     config.Config
	Store      *store.Store
	Registry   *autostart.Registry
	Hook       hook.Hook
	Supervisor Supervisor
	History    History
	Tracer     trace.Tracer
	Now        func() time.Time
	NewID      func() string
	// ProcessAlive reports whether a pid recorded in History still runs.
	// Defaults to supervisor.Alive.
	ProcessAlive func(pid int) bool
	// SelfCommand is registered as the global startup entry, normally
	// `<executable> startup`.
	SelfCommand []string
}

// Controller coordinates the stores, the startup hook and the supervisor.
type Controller struct {
	cfg        config.Config
	store      *store.Store
	registry   *autostart.Registry
	hook       hook.Hook
	sup        Supervisor
	history    History
	alive      func(pid int) bool
	tracer     trace.Tracer
	now        func() time.Time
	newID      func() string
	self       []string
	instances  map[string]instance.Instance
	orphans    map[string]bool
	skipped    []store.Skipped
	views      []View
	onRefresh  func()
	refreshErr error
}

// New validates deps and returns an empty Controller. Call Load next.
func New(d Deps) (*Controller, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("controller: store is required")
	case d.Registry == nil:
		return nil, errors.New("controller: auto-start registry is required")
	case d.Hook == nil:
		return nil, errors.New("controller: startup hook is required")
	case d.Supervisor == nil:
		return nil, errors.New("controller: supervisor is required")
	}
	c := &Controller{
		cfg:       d.Config,
		store:     d.Store,
		registry:  d.Registry,
		hook:      d.Hook,
		sup:       d.Supervisor,
		history:   d.History,
		alive:     d.ProcessAlive,
		tracer:    d.Tracer,
		now:       d.Now,
		newID:     d.NewID,
		self:      d.SelfCommand,
		instances: make(map[string]instance.Instance),
		orphans:   make(map[string]bool),
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("controller")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.alive == nil {
		c.alive = supervisor.Alive
	}
	if c.newID == nil {
		c.newID = instance.NewID
	}
	if c.cfg.MaxInstances <= 0 {
		c.cfg.MaxInstances = config.Defaults().MaxInstances
	}
	if c.cfg.AutoStart.Mode == "" {
		c.cfg.AutoStart.Mode = config.AutoStartModeManager
	}
	if len(c.cfg.Widget.Command) == 0 {
		c.cfg.Widget.Command = config.Defaults().Widget.Command
	}
	return c, nil
}

// SetOnRefresh installs a callback invoked after every refresh.
func (c *Controller) SetOnRefresh(fn func()) {
	c.onRefresh = fn
}

// Load imports the legacy registry (once) and performs the first refresh.
func (c *Controller) Load(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, tracing.SpanLoad)
	defer span.End()

	res, err := legacy.Import(c.store.Layout().LegacyRegistry(), c.store, c.registry)
	if err != nil {
		log.Warn(log.CatController, "Legacy registry import incomplete", "error", err)
	} else if res.Found {
		span.AddEvent("legacy.imported", trace.WithAttributes(
			attribute.Int("metadata", len(res.MetadataAdded)),
			attribute.Int("autostart", len(res.AutoStartAdded)),
		))
	}
	return tracing.Fail(span, c.Refresh(ctx))
}

// Refresh re-derives every view from disk and the supervisor.
func (c *Controller) Refresh(ctx context.Context) error {
	_, span := c.tracer.Start(ctx, tracing.SpanRefresh)
	defer span.End()

	scan := c.store.Scan()
	c.registry.Reload()

	c.instances = scan.Instances
	c.skipped = scan.Skipped
	c.refreshErr = scan.Err
	clear(c.orphans)
	for id, e := range c.registry.List() {
		if _, ok := c.instances[id]; ok {
			continue
		}
		c.instances[id] = e.Instance
		c.orphans[id] = true
	}

	views := make([]View, 0, len(c.instances))
	for id, inst := range c.instances {
		v := View{
			Instance:  inst,
			Running:   c.sup.IsRunning(id),
			AutoStart: c.registry.IsEnabled(id),
			Orphan:    c.orphans[id],
		}
		v.PID, _ = c.sup.PID(id)
		views = append(views, v)
	}
	sortViews(views)
	c.views = views
	span.SetAttributes(attribute.Int(tracing.AttrCount, len(views)))

	if c.onRefresh != nil {
		c.onRefresh()
	}
	if scan.Err != nil {
		return tracing.Fail(span, fmt.Errorf("scanning instances: %w", scan.Err))
	}
	return nil
}

// Views returns the current views sorted by creation date then name.
func (c *Controller) Views() []View {
	return append([]View(nil), c.views...)
}

// View returns the view for id.
func (c *Controller) View(id string) (View, bool) {
	for _, v := range c.views {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}

// Skipped returns the metadata files the last refresh could not read.
func (c *Controller) Skipped() []store.Skipped {
	return append([]store.Skipped(nil), c.skipped...)
}

// Stats counts total, running and auto-start instances.
func (c *Controller) Stats() Stats {
	s := Stats{Total: len(c.views)}
	for _, v := range c.views {
		if v.Running {
			s.Running++
		}
		if v.AutoStart {
			s.AutoStart++
		}
	}
	return s
}

// Config returns the effective configuration.
func (c *Controller) Config() config.Config {
	return c.cfg
}

// Resolve maps an id or unique id prefix to a full id.
func (c *Controller) Resolve(idOrPrefix string) (string, error) {
	if idOrPrefix == "" {
		return "", ErrUnknownInstance
	}
	if _, ok := c.instances[idOrPrefix]; ok {
		return idOrPrefix, nil
	}
	var match string
	for id := range c.instances {
		if strings.HasPrefix(id, idOrPrefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %q", ErrAmbiguousID, idOrPrefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownInstance, idOrPrefix)
	}
	return match, nil
}

// LastLaunch returns the newest journal row for id.
func (c *Controller) LastLaunch(ctx context.Context, id string) (history.Launch, bool) {
	if c.history == nil {
		return history.Launch{}, false
	}
	l, ok, err := c.history.Last(ctx, id)
	if err != nil {
		log.Warn(log.CatController, "Could not read launch history", "id", id, "error", err)
		return history.Launch{}, false
	}
	return l, ok
}

func (c *Controller) lookup(id string) (instance.Instance, error) {
	inst, ok := c.instances[id]
	if !ok {
		return instance.Instance{}, fmt.Errorf("%w: %q", ErrUnknownInstance, id)
	}
	return inst, nil
}

// running reports whether the widget for id is alive. Widgets started by
// another manager process are found through the launch journal: an open
// run whose pid still exists counts as running.
func (c *Controller) running(ctx context.Context, id string) bool {
	if c.sup.IsRunning(id) {
		return true
	}
	if c.history == nil {
		return false
	}
	last, ok, err := c.history.Last(ctx, id)
	if err != nil {
		log.Warn(log.CatController, "Could not read launch history", "id", id, "error", err)
		return false
	}
	if !ok || !last.Running() || !c.alive(last.PID) {
		return false
	}
	log.Debug(log.CatController, "Widget running under another manager", "id", id, "pid", last.PID)
	return true
}

func (c *Controller) refreshAfter(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		log.Warn(log.CatController, "Refresh failed", "error", err)
	}
}

func (c *Controller) widgetCommand(id string) []string {
	return supervisor.WidgetArgs(c.cfg.Widget.Command, id)
}
