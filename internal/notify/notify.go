// Package notify keeps the list of transient notifications shown to the user.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/talentflow/internal/bus"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3 * time.Second

// Kind selects the notification style.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Toast is one notification.
type Toast struct {
	ID      int
	Kind    Kind
	Message string
	Expires time.Time
}

// Center holds active notifications. Expired ones are dropped lazily.
type Center struct {
	clock    Clock
	duration time.Duration

	mu     sync.Mutex
	nextID int
	toasts []Toast
}

// NewCenter returns a center whose notifications live for duration
// (DefaultDuration when zero).
func NewCenter(duration time.Duration) *Center {
	return NewCenterWithClock(duration, realClock{})
}

// NewCenterWithClock creates a Center with a custom clock (for testing).
func NewCenterWithClock(duration time.Duration, clock Clock) *Center {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Center{clock: clock, duration: duration}
}

// Show adds a notification and returns it.
func (c *Center) Show(kind Kind, format string, args ...any) Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := Toast{
		ID:      c.nextID,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Expires: c.clock.Now().Add(c.duration),
	}
	c.toasts = append(c.toasts, t)
	return t
}

// Dismiss removes a notification before it expires.
func (c *Center) Dismiss(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return
		}
	}
}

// Active returns the notifications that have not expired, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
	return append([]Toast(nil), kept...)
}

// Attach subscribes the center to the hub's failure events and returns a
// function that detaches it. The failure is already logged by the
// publisher; the center only shows it.
func (c *Center) Attach(hub *bus.Hub) (detach func()) {
	return hub.MutationFailed.Subscribe(func(e bus.MutationFailed) {
		c.Show(Error, "Could not save changes to %s: %v", e.RecordID, e.Err)
	})
}
