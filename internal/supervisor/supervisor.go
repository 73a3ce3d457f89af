// Package supervisor launches widget processes and tracks which instances
// are running in this session. Each launched process gets one goroutine
// that blocks until the process exits; exits are published on a broker
// and never applied to UI state directly.
//
// The live set is not persisted, and there is deliberately no way to stop a
// widget from here: widgets are closed by the user.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/pubsub"
)

// ErrAlreadyRunning is returned when launching an instance that this
// session already started and that has not exited.
var ErrAlreadyRunning = errors.New("instance is already running")

// Process is a started widget.
type Process interface {
	PID() int
	// Wait blocks until the process exits.
	Wait() error
}

// Spawner starts the widget for an instance id.
type Spawner interface {
	Spawn(ctx context.Context, id string) (Process, error)
}

// Journal is notified of launches and exits. Failures are logged only.
type Journal interface {
	RecordLaunch(ctx context.Context, instanceID string, pid int, at time.Time) (int64, error)
	RecordExit(ctx context.Context, runID int64, at time.Time, exitErr error) error
}

// ExitEvent reports that a launched widget exited.
type ExitEvent struct {
	ID  string
	PID int
	Err error
	At  time.Time
}

type run struct {
	pid     int
	started time.Time
	runID   int64
}

// Supervisor owns the live set.
type Supervisor struct {
	mu      sync.Mutex
	spawner Spawner
	running map[string]*run
	broker  *pubsub.Broker[ExitEvent]
	journal Journal
	tracer  trace.Tracer
	now     func() time.Time
	wg      sync.WaitGroup
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithJournal records launches and exits.
func WithJournal(j Journal) Option {
	return func(s *Supervisor) { s.journal = j }
}

// WithTracer sets the tracer used for launch spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Supervisor) { s.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// New creates a Supervisor that starts processes with spawner.
func New(spawner Spawner, opts ...Option) *Supervisor {
	s := &Supervisor{
		spawner: spawner,
		running: make(map[string]*run),
		broker:  pubsub.NewBroker[ExitEvent](pubsub.TopicWidgetExit),
		tracer:  noop.NewTracerProvider().Tracer("supervisor"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch starts the widget for id. The id is marked running before the
// spawn and unmarked again if the spawn fails.
func (s *Supervisor) Launch(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "supervisor.launch",
		trace.WithAttributes(attribute.String("instance.id", id)))
	defer span.End()

	s.mu.Lock()
	if _, ok := s.running[id]; ok {
		s.mu.Unlock()
		span.SetStatus(codes.Error, ErrAlreadyRunning.Error())
		return ErrAlreadyRunning
	}
	r := &run{started: s.now()}
	s.running[id] = r
	s.mu.Unlock()

	proc, err := s.spawner.Spawn(ctx, id)
	if err != nil {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatSupervisor, "Failed to launch widget", err, "id", id)
		return fmt.Errorf("launching %s: %w", id, err)
	}

	pid := proc.PID()
	var runID int64
	if s.journal != nil {
		runID, err = s.journal.RecordLaunch(context.WithoutCancel(ctx), id, pid, r.started)
		if err != nil {
			log.Warn(log.CatSupervisor, "Could not record launch", "id", id, "error", err)
		}
	}
	s.mu.Lock()
	r.pid = pid
	r.runID = runID
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("process.pid", pid))
	log.Info(log.CatSupervisor, "Launched widget", "id", id, "pid", pid)

	s.wg.Add(1)
	go s.wait(id, proc, r)
	return nil
}

func (s *Supervisor) wait(id string, proc Process, r *run) {
	defer s.wg.Done()
	err := proc.Wait()
	at := s.now()

	s.mu.Lock()
	if s.running[id] == r {
		delete(s.running, id)
	}
	pid, runID := r.pid, r.runID
	s.mu.Unlock()

	if err != nil {
		log.Warn(log.CatSupervisor, "Widget exited with error", "id", id, "pid", pid, "error", err)
	} else {
		log.Info(log.CatSupervisor, "Widget exited", "id", id, "pid", pid)
	}
	if s.journal != nil && runID != 0 {
		if jerr := s.journal.RecordExit(context.Background(), runID, at, err); jerr != nil {
			log.Warn(log.CatSupervisor, "Could not record exit", "id", id, "error", jerr)
		}
	}
	s.broker.Publish(ExitEvent{ID: id, PID: pid, Err: err, At: at})
}

// IsRunning reports whether id was launched by this session and has not
// exited.
func (s *Supervisor) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// PID returns the process id of a running instance.
func (s *Supervisor) PID(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.running[id]
	if !ok || r.pid == 0 {
		return 0, false
	}
	return r.pid, true
}

// Running returns the running ids, sorted.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

// Events subscribes to exit events until ctx is done.
func (s *Supervisor) Events(ctx context.Context) <-chan pubsub.Event[ExitEvent] {
	return s.broker.Subscribe(ctx)
}

// Subscribe implements pubsub.Subscriber so a pubsub.Listener can drain
// exits into a Bubble Tea program.
func (s *Supervisor) Subscribe(ctx context.Context) <-chan pubsub.Event[ExitEvent] {
	return s.Events(ctx)
}

// Wait blocks until every launched process has exited and its event has
// been published.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Close stops event delivery. Running widgets are left alone.
func (s *Supervisor) Close() {
	s.broker.Close()
}
