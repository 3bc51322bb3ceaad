package view

import (
	"context"
	"fmt"
	"sync"
)

// Phase is the load state of a List.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseLoadFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseLoadFailed:
		return "load_failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Snapshot is a copy of a List's state for rendering. A failed load exposes
// no items and keeps the error so "failed" and "empty" stay distinguishable.
type Snapshot[T any] struct {
	Phase Phase
	Items []T
	Err   error
}

// Empty reports whether the list loaded successfully with no entries.
func (s Snapshot[T]) Empty() bool {
	return s.Phase == PhaseLoaded && len(s.Items) == 0
}

// List is the fetch/render state machine shared by every list view.
type List[T any] struct {
	mu    sync.Mutex
	phase Phase
	items []T
	err   error
	seq   uint64
	fetch func(context.Context) ([]T, error)
}

// NewList returns an idle list backed by fetch.
func NewList[T any](fetch func(context.Context) ([]T, error)) *List[T] {
	return &List[T]{fetch: fetch}
}

// Load fetches the list. When loads overlap, only the most recently started
// one updates the state.
func (l *List[T]) Load(ctx context.Context) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.phase = PhaseLoading
	l.mu.Unlock()

	items, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return err
	}
	if err != nil {
		l.phase = PhaseLoadFailed
		l.items = nil
		l.err = err
		return err
	}
	l.phase = PhaseLoaded
	l.items = items
	l.err = nil
	return nil
}

// Snapshot returns a copy of the current state.
func (l *List[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]T, len(l.items))
	copy(items, l.items)
	return Snapshot[T]{Phase: l.phase, Items: items, Err: l.err}
}

// Reset drops the loaded items and returns the list to idle. A load still in
// flight no longer updates the state.
func (l *List[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.phase = PhaseIdle
	l.items = nil
	l.err = nil
}

// Items returns a copy of the last loaded items.
func (l *List[T]) Items() []T {
	return l.Snapshot().Items
}

// guard gates duplicate submission of the same action.
type guard struct {
	mu   sync.Mutex
	busy map[string]bool
}

func (g *guard) begin(action string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[string]bool)
	}
	if g.busy[action] {
		return nil, fmt.Errorf("%s: %w", action, ErrBusy)
	}
	g.busy[action] = true
	return func() {
		g.mu.Lock()
		delete(g.busy, action)
		g.mu.Unlock()
	}, nil
}
