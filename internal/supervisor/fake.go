package supervisor

import (
	"context"
	"sync"
)

// FakeSpawner hands out FakeProcesses. It lets tests decide when each
// widget exits.
type FakeSpawner struct {
	mu      sync.Mutex
	nextPID int
	procs   map[string]*FakeProcess
	// Err, when set, is returned by the next Spawn.
	Err error
	// Spawned records every id passed to Spawn, in order.
	Spawned []string
}

// NewFakeSpawner returns a FakeSpawner whose first pid is 1000.
func NewFakeSpawner() *FakeSpawner {
	return &FakeSpawner{nextPID: 1000, procs: make(map[string]*FakeProcess)}
}

func (f *FakeSpawner) Spawn(_ context.Context, id string) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Spawned = append(f.Spawned, id)
	if f.Err != nil {
		err := f.Err
		f.Err = nil
		return nil, err
	}
	f.nextPID++
	p := &FakeProcess{pid: f.nextPID, done: make(chan error, 1)}
	f.procs[id] = p
	return p, nil
}

// Process returns the latest process spawned for id.
func (f *FakeSpawner) Process(id string) *FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[id]
}

// SpawnedIDs returns a copy of Spawned.
func (f *FakeSpawner) SpawnedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Spawned...)
}

// FakeProcess blocks in Wait until Exit is called.
type FakeProcess struct {
	pid  int
	done chan error
	once sync.Once
}

func (p *FakeProcess) PID() int { return p.pid }

func (p *FakeProcess) Wait() error { return <-p.done }

// Exit makes Wait return err. Later calls are ignored.
func (p *FakeProcess) Exit(err error) {
	p.once.Do(func() { p.done <- err })
}
