package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/smartnotes/internal/config"
	"github.com/zjrosen/smartnotes/internal/hook"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/paths"
	"github.com/zjrosen/smartnotes/internal/supervisor"
	"github.com/zjrosen/smartnotes/internal/tracing"
)

// Create adds a new instance with the next default name and an empty notes
// file. Depending on configuration it is then enabled for auto-start and
// launched; failures of those follow-ups are logged, not returned.
func (c *Controller) Create(ctx context.Context) (instance.Instance, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanCreate)
	defer span.End()

	count := len(c.instances)
	if count >= c.cfg.MaxInstances {
		return instance.Instance{}, tracing.Fail(span, ErrCapReached)
	}
	inst := instance.New(c.newID(), instance.DefaultName(count+1), instance.Theme(c.cfg.DefaultTheme), c.now())
	span.SetAttributes(attribute.String(tracing.AttrInstanceID, inst.ID))

	if err := c.store.Write(inst); err != nil {
		return instance.Instance{}, tracing.Fail(span, fmt.Errorf("could not create instance: %w", err))
	}
	if err := c.store.TouchNotes(inst.ID); err != nil {
		log.Warn(log.CatController, "Could not create notes file", "id", inst.ID, "error", err)
	}
	c.instances[inst.ID] = inst
	log.Info(log.CatController, "Created instance", "id", inst.ID, "name", inst.Name)

	if c.cfg.Create.AutoStart {
		if err := c.enableAutoStart(inst); err != nil {
			log.Warn(log.CatController, "Could not enable auto-start for new instance", "id", inst.ID, "error", err)
		}
	}
	if c.cfg.Create.Launch {
		if err := c.sup.Launch(ctx, inst.ID); err != nil {
			log.Warn(log.CatController, "Could not launch new instance", "id", inst.ID, "error", err)
		}
	}
	c.refreshAfter(ctx)
	return inst, nil
}

// Clone copies an instance's theme and notes under a new id. A notes copy
// failure leaves the clone with empty notes.
func (c *Controller) Clone(ctx context.Context, srcID string) (instance.Instance, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanClone)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrSourceID, srcID))

	src, err := c.lookup(srcID)
	if err != nil {
		return instance.Instance{}, tracing.Fail(span, err)
	}
	if len(c.instances) >= c.cfg.MaxInstances {
		return instance.Instance{}, tracing.Fail(span, ErrCapReached)
	}
	clone := src.CloneAs(c.newID(), c.now())
	span.SetAttributes(attribute.String(tracing.AttrInstanceID, clone.ID))

	copied, err := c.store.CopyNotes(src.ID, clone.ID)
	if err != nil {
		log.Warn(log.CatController, "Could not copy notes, clone starts empty", "src", src.ID, "id", clone.ID, "error", err)
	}
	if !copied {
		if err := c.store.TouchNotes(clone.ID); err != nil {
			log.Warn(log.CatController, "Could not create notes file", "id", clone.ID, "error", err)
		}
	}
	if err := c.store.Write(clone); err != nil {
		_ = c.store.RemoveInstanceFiles(clone.ID)
		return instance.Instance{}, tracing.Fail(span, fmt.Errorf("could not clone instance: %w", err))
	}
	c.instances[clone.ID] = clone
	log.Info(log.CatController, "Cloned instance", "src", src.ID, "id", clone.ID, "notes_copied", copied)

	c.refreshAfter(ctx)
	return clone, nil
}

// Rename sets a new display name. The name is trimmed and must not be
// empty. A registered auto-start entry is updated too.
func (c *Controller) Rename(ctx context.Context, id, name string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanRename)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrInstanceID, id))

	name = strings.TrimSpace(name)
	if name == "" {
		return false, tracing.Fail(span, ErrInvalidName)
	}
	inst, err := c.lookup(id)
	if err != nil {
		return false, tracing.Fail(span, err)
	}
	renamed := inst.Renamed(name, c.now())
	if err := c.store.Write(renamed); err != nil {
		return false, tracing.Fail(span, fmt.Errorf("could not rename instance: %w", err))
	}
	c.instances[id] = renamed
	if _, err := c.registry.UpdateMetadata(renamed); err != nil {
		log.Warn(log.CatController, "Could not update auto-start entry", "id", id, "error", err)
	}
	log.Info(log.CatController, "Renamed instance", "id", id, "name", name)

	c.refreshAfter(ctx)
	return true, nil
}

// DeleteRequest is the first step of a delete. It carries what the
// confirmation prompt shows.
type DeleteRequest struct {
	ID        string
	Name      string
	AutoStart bool
	Files     []string
}

// Prompt is the confirmation text.
func (r DeleteRequest) Prompt() string {
	return fmt.Sprintf("Delete instance '%s'?\n\nThis will permanently delete all notes and settings for this instance. This action cannot be undone.", r.Name)
}

// DeleteResult reports what a confirmed delete could not remove.
type DeleteResult struct {
	ID       string
	Name     string
	Problems []error
}

// RequestDelete checks that id may be deleted and returns the request to
// confirm. Nothing is changed.
func (c *Controller) RequestDelete(ctx context.Context, id string) (DeleteRequest, error) {
	inst, err := c.lookup(id)
	if err != nil {
		return DeleteRequest{}, err
	}
	if c.running(ctx, id) {
		return DeleteRequest{}, ErrInstanceRunning
	}
	req := DeleteRequest{
		ID:        id,
		Name:      inst.Name,
		AutoStart: c.registry.IsEnabled(id),
	}
	for _, role := range paths.Roles {
		req.Files = append(req.Files, paths.DisplayPath(id, role))
	}
	return req, nil
}

// ConfirmDelete removes the instance's files, auto-start entry, startup
// hook entry and launch history. The running check is repeated because the
// widget may have been launched while the prompt was open. File removal is
// best-effort; what failed is listed in the result.
func (c *Controller) ConfirmDelete(ctx context.Context, req DeleteRequest) (DeleteResult, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanDelete)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrInstanceID, req.ID))

	inst, err := c.lookup(req.ID)
	if err != nil {
		return DeleteResult{}, tracing.Fail(span, err)
	}
	if c.running(ctx, req.ID) {
		return DeleteResult{}, tracing.Fail(span, ErrInstanceRunning)
	}

	res := DeleteResult{ID: inst.ID, Name: inst.Name}
	if err := c.hook.Unregister(hook.EntryName(inst.ID)); err != nil {
		log.Warn(log.CatController, "Could not remove startup entry", "id", inst.ID, "error", err)
		res.Problems = append(res.Problems, err)
	}
	res.Problems = append(res.Problems, c.store.RemoveInstanceFiles(inst.ID)...)
	if err := c.registry.Remove(inst.ID); err != nil {
		res.Problems = append(res.Problems, err)
	}
	if c.history != nil {
		if _, err := c.history.DeleteInstance(ctx, inst.ID); err != nil {
			log.Warn(log.CatController, "Could not purge launch history", "id", inst.ID, "error", err)
		}
	}
	delete(c.instances, inst.ID)
	log.Info(log.CatController, "Deleted instance", "id", inst.ID, "name", inst.Name, "problems", len(res.Problems))

	c.refreshAfter(ctx)
	return res, nil
}

// ToggleAutoStart flips auto-start for id and returns the new state.
func (c *Controller) ToggleAutoStart(ctx context.Context, id string) (bool, error) {
	on := !c.registry.IsEnabled(id)
	if err := c.SetAutoStart(ctx, id, on); err != nil {
		return !on, err
	}
	return on, nil
}

// SetAutoStart enables or disables auto-start for id. In direct mode the
// per-instance startup entry follows the registry; in manager mode the
// global entry is installed when auto-start is enabled.
func (c *Controller) SetAutoStart(ctx context.Context, id string, on bool) error {
	ctx, span := c.tracer.Start(ctx, tracing.SpanAutoStart)
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrInstanceID, id),
		attribute.Bool(tracing.AttrAutoStart, on),
		attribute.String(tracing.AttrAutoStartMode, c.cfg.AutoStart.Mode),
	)

	inst, err := c.lookup(id)
	if err != nil {
		return tracing.Fail(span, err)
	}
	if on {
		err = c.enableAutoStart(inst)
	} else {
		err = c.disableAutoStart(inst)
	}
	c.refreshAfter(ctx)
	return tracing.Fail(span, err)
}

func (c *Controller) enableAutoStart(inst instance.Instance) error {
	if err := c.registry.Add(inst); err != nil {
		return fmt.Errorf("could not enable auto-start: %w", err)
	}
	if c.cfg.AutoStart.Mode == config.AutoStartModeDirect {
		if err := c.hook.Register(hook.EntryName(inst.ID), c.widgetCommand(inst.ID)); err != nil {
			_ = c.registry.Remove(inst.ID)
			return fmt.Errorf("%w: %w", ErrStartupEntry, err)
		}
		return nil
	}
	if err := c.ensureGlobalHook(); err != nil {
		return fmt.Errorf("%w: %w", ErrStartupEntry, err)
	}
	return nil
}

func (c *Controller) disableAutoStart(inst instance.Instance) error {
	if err := c.registry.Remove(inst.ID); err != nil {
		return fmt.Errorf("could not disable auto-start: %w", err)
	}
	// Also cleans up entries left behind by an earlier direct-mode setup.
	if err := c.hook.Unregister(hook.EntryName(inst.ID)); err != nil {
		return fmt.Errorf("%w: %w", ErrStartupEntry, err)
	}
	return nil
}

func (c *Controller) ensureGlobalHook() error {
	ok, err := hook.Contains(c.hook, hook.GlobalEntryName)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if len(c.self) == 0 {
		return errors.New("no command configured for the startup manager")
	}
	return c.hook.Register(hook.GlobalEntryName, c.self)
}

// SetGlobalAutoStart installs or removes the startup manager entry.
func (c *Controller) SetGlobalAutoStart(ctx context.Context, on bool) error {
	_, span := c.tracer.Start(ctx, tracing.SpanGlobalHook)
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrHookEntry, hook.GlobalEntryName),
		attribute.Bool(tracing.AttrAutoStart, on),
	)
	if on {
		if len(c.self) == 0 {
			return tracing.Fail(span, errors.New("no command configured for the startup manager"))
		}
		return tracing.Fail(span, c.hook.Register(hook.GlobalEntryName, c.self))
	}
	return tracing.Fail(span, c.hook.Unregister(hook.GlobalEntryName))
}

// GlobalAutoStart reports whether the startup manager entry exists.
func (c *Controller) GlobalAutoStart() (bool, error) {
	return hook.Contains(c.hook, hook.GlobalEntryName)
}

// Launch starts the widget for id.
func (c *Controller) Launch(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, tracing.SpanLaunch)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrInstanceID, id))

	if _, err := c.lookup(id); err != nil {
		return tracing.Fail(span, err)
	}
	if c.orphans[id] {
		log.Warn(log.CatController, "Refusing to launch instance without metadata", "id", id)
		return tracing.Fail(span, fmt.Errorf("%w: %q", ErrMissingMetadata, id))
	}
	err := c.sup.Launch(ctx, id)
	c.refreshAfter(ctx)
	return tracing.Fail(span, err)
}

// HandleExit applies a widget exit. It must run on the goroutine that owns
// the controller and triggers exactly one refresh.
func (c *Controller) HandleExit(ctx context.Context, ev supervisor.ExitEvent) {
	log.Debug(log.CatController, "Applying widget exit", "id", ev.ID, "pid", ev.PID)
	c.refreshAfter(ctx)
}
