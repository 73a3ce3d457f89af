package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrInstanceID    = "instance.id"
	AttrInstanceName  = "instance.name"
	AttrSourceID      = "instance.source_id"
	AttrAutoStart     = "instance.auto_start"
	AttrAutoStartMode = "autostart.mode"
	AttrHookEntry     = "hook.entry"
	AttrCount         = "instance.count"
)

// Span names.
const (
	SpanLoad          = "controller.load"
	SpanRefresh       = "controller.refresh"
	SpanCreate        = "controller.create"
	SpanClone         = "controller.clone"
	SpanRename        = "controller.rename"
	SpanDelete        = "controller.delete"
	SpanAutoStart     = "controller.autostart"
	SpanGlobalHook    = "controller.global_hook"
	SpanLaunch        = "controller.launch"
	SpanStartup       = "startup.run"
	SpanStartupLaunch = "startup.launch"
)

// Fail records err on span and marks it failed. It returns err so callers
// can write `return tracing.Fail(span, err)`.
func Fail(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
