package view

import (
	"sync"
	"time"
)

// NoticeKind distinguishes success from failure feedback.
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice is a transient, dismissible message shown after a mutation.
type Notice struct {
	Kind NoticeKind
	Text string
	At   time.Time
}

// Notifier holds at most one notice and clears it after a fixed duration.
type Notifier struct {
	mu        sync.Mutex
	ttl       time.Duration
	current   *Notice
	seq       uint64
	timer     *time.Timer
	listeners []func()
}

// NewNotifier returns a Notifier whose notices live for ttl.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &Notifier{ttl: ttl}
}

// Success shows a success notice.
func (n *Notifier) Success(text string) { n.show(NoticeSuccess, text) }

// Error shows a failure notice.
func (n *Notifier) Error(text string) { n.show(NoticeError, text) }

func (n *Notifier) show(kind NoticeKind, text string) {
	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.current = &Notice{Kind: kind, Text: text, At: time.Now()}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(seq) })
	n.mu.Unlock()
	n.changed()
}

// expire clears the notice only if it is still the one that armed the timer.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	if n.seq != seq || n.current == nil {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.mu.Unlock()
	n.changed()
}

// Current returns the visible notice, if any.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notice{}, false
	}
	return *n.current, true
}

// Dismiss clears the visible notice immediately.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	n.seq++
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()
	n.changed()
}

// OnChange registers fn to run whenever the visible notice changes.
func (n *Notifier) OnChange(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func (n *Notifier) changed() {
	n.mu.Lock()
	listeners := append([]func(){}, n.listeners...)
	n.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
