// Package pubsub carries events from background goroutines (widget
// supervision, the data directory watcher, the debug log) to the single
// goroutine that owns UI state. Each broker serves one topic.
package pubsub

import (
	"context"
	"time"
)

// Topic names the stream an event belongs to.
type Topic string

const (
	// TopicWidgetExit carries supervisor.ExitEvent payloads.
	TopicWidgetExit Topic = "widget.exit"
	// TopicDataDir carries the base name of a changed data file.
	TopicDataDir Topic = "datadir.change"
	// TopicLogLine carries one formatted debug log line.
	TopicLogLine Topic = "log.line"
)

// Event wraps a payload with its topic and publish time. Seq numbers the
// broker's publishes from 1; a gap seen by a subscriber means events were
// dropped for it.
type Event[T any] struct {
	Topic   Topic
	Seq     uint64
	Payload T
	At      time.Time
}

// Subscriber hands out event channels.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher accepts payloads.
type Publisher[T any] interface {
	Publish(payload T)
}
