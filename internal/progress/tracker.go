// Package progress tracks the named steps of a long-running pipeline call and
// notifies observers whenever the step list changes.
package progress

import (
	"sync"
	"sync/atomic"
)

// Observer is notified after every change. It must re-read the step list.
type Observer interface {
	ProgressChanged()
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func()

// ProgressChanged calls f.
func (f ObserverFunc) ProgressChanged() { f() }

// StepView is a read-only snapshot of a step.
type StepView struct {
	ID       uint64 `json:"id"`
	Message  string `json:"message"`
	Complete bool   `json:"complete"`
}

var stepIDs atomic.Uint64

// Tracker owns an ordered list of steps. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	steps     []*Step
	observers map[uint64]Observer
	order     []uint64
	nextObs   uint64
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{observers: make(map[uint64]Observer)}
}

// Step appends an incomplete step and returns its handle.
func (t *Tracker) Step(message string) *Step {
	s := &Step{id: stepIDs.Add(1), message: message, tracker: t}

	t.mu.Lock()
	t.steps = append(t.steps, s)
	t.mu.Unlock()

	t.notify()
	return s
}

// Reset detaches every step. Calls on their handles become no-ops.
func (t *Tracker) Reset() {
	t.mu.Lock()
	for _, s := range t.steps {
		s.detached = true
	}
	t.steps = nil
	t.mu.Unlock()

	t.notify()
}

// Steps returns a snapshot of the current steps in creation order.
func (t *Tracker) Steps() []StepView {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]StepView, len(t.steps))
	for i, s := range t.steps {
		out[i] = StepView{ID: s.id, Message: s.message, Complete: s.complete}
	}
	return out
}

// Subscribe registers o and returns a function that removes it.
func (t *Tracker) Subscribe(o Observer) (unsubscribe func()) {
	t.mu.Lock()
	t.nextObs++
	id := t.nextObs
	t.observers[id] = o
	t.order = append(t.order, id)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.observers, id)
			for i, oid := range t.order {
				if oid == id {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		})
	}
}

// notify calls observers outside the lock so they may read Steps.
func (t *Tracker) notify() {
	t.mu.Lock()
	obs := make([]Observer, 0, len(t.order))
	for _, id := range t.order {
		obs = append(obs, t.observers[id])
	}
	t.mu.Unlock()

	for _, o := range obs {
		o.ProgressChanged()
	}
}

// Step is a handle to one tracked step.
type Step struct {
	id       uint64
	tracker  *Tracker
	message  string
	complete bool
	detached bool
}

// ID returns the process-unique step id.
func (s *Step) ID() uint64 { return s.id }

// Complete marks the step done.
func (s *Step) Complete() {
	s.update(func() { s.complete = true })
}

// SetMessage replaces the step text.
func (s *Step) SetMessage(text string) {
	s.update(func() { s.message = text })
}

func (s *Step) update(fn func()) {
	t := s.tracker
	t.mu.Lock()
	if s.detached {
		t.mu.Unlock()
		return
	}
	fn()
	t.mu.Unlock()

	t.notify()
}
