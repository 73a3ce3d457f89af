// Package startup relaunches auto-start instances when the user logs in.
// It runs as `smartnotes startup` from the global startup entry.
package startup

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/tracing"
)

// Registry lists the instances to start.
type Registry interface {
	List() map[string]instance.AutoStartEntry
}

// Launcher starts one widget.
type Launcher interface {
	Launch(ctx context.Context, id string) error
}

// Failure is a launch that did not happen.
type Failure struct {
	ID   string
	Name string
	Err  error
}

// Summary reports one run.
type Summary struct {
	Launched []string
	Failed   []Failure
}

// Manager launches every registry entry after a delay, spacing launches
// by Stagger.
type Manager struct {
	Registry Registry
	Launcher Launcher
	Delay    time.Duration
	Stagger  time.Duration
	Tracer   trace.Tracer
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run performs the relaunch. It returns early with ctx's error when ctx is
// cancelled; launches made before that are still reported.
func (m *Manager) Run(ctx context.Context) (Summary, error) {
	tracer := m.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("startup")
	}
	sleep := m.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	ctx, span := tracer.Start(ctx, tracing.SpanStartup)
	defer span.End()

	var sum Summary
	if err := sleep(ctx, m.Delay); err != nil {
		return sum, tracing.Fail(span, err)
	}

	entries := m.Registry.List()
	span.SetAttributes(attribute.Int(tracing.AttrCount, len(entries)))
	if len(entries) == 0 {
		log.Info(log.CatStartup, "No auto-start instances")
		return sum, nil
	}
	log.Info(log.CatStartup, "Starting auto-start instances", "count", len(entries))

	for i, e := range ordered(entries) {
		if i > 0 {
			if err := sleep(ctx, m.Stagger); err != nil {
				return sum, tracing.Fail(span, err)
			}
		}
		lctx, lspan := tracer.Start(ctx, tracing.SpanStartupLaunch,
			trace.WithAttributes(attribute.String(tracing.AttrInstanceID, e.ID)))
		err := m.Launcher.Launch(lctx, e.ID)
		if err != nil {
			_ = tracing.Fail(lspan, err)
			log.Warn(log.CatStartup, "Auto-start launch failed", "id", e.ID, "name", e.Name, "error", err)
			sum.Failed = append(sum.Failed, Failure{ID: e.ID, Name: e.Name, Err: err})
		} else {
			log.Info(log.CatStartup, "Started instance", "id", e.ID, "name", e.Name)
			sum.Launched = append(sum.Launched, e.ID)
		}
		lspan.End()
	}
	return sum, nil
}

// ordered returns entries oldest enablement first, ties by id.
func ordered(entries map[string]instance.AutoStartEntry) []instance.AutoStartEntry {
	out := make([]instance.AutoStartEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].AutoStartEnabled.Compare(out[j].AutoStartEnabled.Time); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
