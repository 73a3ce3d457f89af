package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Listener keeps one subscription open across Update calls and turns each
// event into a model message. Call Next again after handling a message to
// keep receiving.
type Listener[T any] struct {
	ctx  context.Context
	ch   <-chan Event[T]
	wrap func(Event[T]) tea.Msg
}

// Listen subscribes to sub for the lifetime of ctx. wrap builds the message
// delivered to Update; models use it to tell apart topics that share a
// payload type.
func Listen[T any](ctx context.Context, sub Subscriber[T], wrap func(Event[T]) tea.Msg) *Listener[T] {
	return &Listener[T]{ctx: ctx, ch: sub.Subscribe(ctx), wrap: wrap}
}

// Next returns the command that waits for the next event. The command
// yields nil once ctx is done or the subscription closes.
func (l *Listener[T]) Next() tea.Cmd {
	if l == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-l.ctx.Done():
			return nil
		case ev, ok := <-l.ch:
			if !ok {
				return nil
			}
			return l.wrap(ev)
		}
	}
}
