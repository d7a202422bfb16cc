// Package entity holds the per-page authoritative copy of a remote collection.
//
// A Store serializes every local transition behind its mutex. Optimistic
// mutations enter through Apply or Rearrange, which return a Ticket; the
// matching settlement goes through Settle. A settlement changes values only
// when its ticket is the latest for that record within the current fetch
// epoch, so out-of-order responses cannot overwrite newer local state.
package entity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kalambet/talentflow/internal/bus"
	"github.com/kalambet/talentflow/internal/record"
)

// ErrUnknownRecord is returned when a mutation targets an id not in the store.
var ErrUnknownRecord = errors.New("unknown record")

// Keyed is implemented by records with a stable id.
type Keyed interface {
	Key() string
}

// Loader fetches one page of the collection.
type Loader[T any] func(ctx context.Context, q record.Query) (record.Page[T], error)

// Ticket identifies one optimistic mutation.
type Ticket struct {
	ID    string
	Seq   uint64
	Epoch uint64
}

// Outcome is the result of a settlement.
type Outcome int

const (
	// Applied means the settlement function ran on the record.
	Applied Outcome = iota
	// Superseded means a newer mutation or a refetch owns the record's value.
	Superseded
	// Discarded means the store was closed; nothing changed.
	Discarded
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Superseded:
		return "superseded"
	default:
		return "discarded"
	}
}

// Change describes a local state transition.
type Change struct {
	Epoch uint64
	IDs   []string // nil for wholesale replacement
}

// Store is the local copy of one page of a collection.
type Store[T Keyed] struct {
	name    string
	load    Loader[T]
	logger  *slog.Logger
	hub     *bus.Hub
	group   singleflight.Group
	changes *bus.Topic[Change]

	mu      sync.Mutex
	items   []T
	index   map[string]int
	total   int
	err     error
	query   record.Query
	epoch   uint64
	seq     map[string]uint64
	pending map[string]int
	closed  bool
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
	hub    *bus.Hub
	query  record.Query
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithHub publishes Refreshed events on hub.
func WithHub(h *bus.Hub) Option { return func(o *options) { o.hub = h } }

// WithQuery sets the initial filter and page.
func WithQuery(q record.Query) Option { return func(o *options) { o.query = q } }

// NewStore returns an empty store named name (used in logs and events) that
// fetches with load.
func NewStore[T Keyed](name string, load Loader[T], opts ...Option) *Store[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:    name,
		load:    load,
		logger:  o.logger.With("store", name),
		hub:     o.hub,
		changes: bus.NewTopic[Change](),
		index:   map[string]int{},
		query:   o.query.Normalize(),
		seq:     map[string]uint64{},
		pending: map[string]int{},
	}
}

// Name returns the collection name.
func (s *Store[T]) Name() string { return s.name }

// Items returns the records in display order.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.items...)
}

// Len returns the number of local records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the record with id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Total returns the unpaginated count reported by the last fetch.
func (s *Store[T]) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Err returns the last fetch error, or nil.
func (s *Store[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Epoch returns the fetch generation.
func (s *Store[T]) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Query returns the current filter and page.
func (s *Store[T]) Query() record.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetQuery changes the filter and page used by the next Refresh.
func (s *Store[T]) SetQuery(q record.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q.Normalize()
}

// Pending reports whether id has a mutation in flight.
func (s *Store[T]) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id] > 0
}

// PendingCount returns the number of records with mutations in flight.
func (s *Store[T]) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Subscribe registers fn for local state changes.
func (s *Store[T]) Subscribe(fn func(Change)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Replace installs page wholesale and starts a new epoch. Settlements of
// mutations issued before the call no longer change values.
func (s *Store[T]) Replace(page record.Page[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.replaceLocked(page.Items, page.Total, nil)
	epoch := s.epoch
	s.mu.Unlock()
	s.changes.Publish(Change{Epoch: epoch})
}

func (s *Store[T]) replaceLocked(items []T, total int, err error) {
	s.items = append([]T(nil), items...)
	s.total = total
	s.err = err
	s.epoch++
	s.seq = map[string]uint64{}
	s.reindexLocked()
}

func (s *Store[T]) reindexLocked() {
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.Key()] = i
	}
}

// Refresh fetches the current query. Concurrent calls share one fetch. A
// failed fetch empties the store and exposes the error.
func (s *Store[T]) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (any, error) {
		q := s.Query()
		page, err := s.load(ctx, q)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, err
		}
		if err != nil {
			s.replaceLocked(nil, 0, err)
		} else {
			s.replaceLocked(page.Items, page.Total, nil)
		}
		epoch, total := s.epoch, s.total
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("fetch failed", "page", q.Page, "error", err)
		} else {
			s.logger.Debug("fetched", "page", q.Page, "items", len(page.Items), "total", total)
		}
		s.changes.Publish(Change{Epoch: epoch})
		if s.hub != nil {
			s.hub.Refreshed.Publish(bus.Refreshed{Collection: s.name, Total: total, Err: err})
		}
		return nil, err
	})
	return err
}

// Apply runs fn on record id, marks it pending and returns the mutation
// ticket together with the value before fn ran.
func (s *Store[T]) Apply(id string, fn func(T) T) (Ticket, T, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok || s.closed {
		s.mu.Unlock()
		var zero T
		return Ticket{}, zero, ErrUnknownRecord
	}
	before := s.items[i]
	s.items[i] = fn(before)
	tk := s.beginLocked(id)
	s.mu.Unlock()

	s.changes.Publish(Change{Epoch: tk.Epoch, IDs: []string{id}})
	return tk, before, nil
}

// Rearrange runs fn on a copy of the item list. fn returns the id the
// mutation targets and the new list, which must hold the same records.
func (s *Store[T]) Rearrange(fn func(items []T) (string, []T, error)) (Ticket, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Ticket{}, ErrUnknownRecord
	}
	id, next, err := fn(append([]T(nil), s.items...))
	if err != nil {
		s.mu.Unlock()
		return Ticket{}, err
	}
	if _, ok := s.index[id]; !ok {
		s.mu.Unlock()
		return Ticket{}, ErrUnknownRecord
	}
	s.items = next
	s.reindexLocked()
	tk := s.beginLocked(id)
	s.mu.Unlock()

	s.changes.Publish(Change{Epoch: tk.Epoch, IDs: []string{id}})
	return tk, nil
}

func (s *Store[T]) beginLocked(id string) Ticket {
	s.seq[id]++
	s.pending[id]++
	return Ticket{ID: id, Seq: s.seq[id], Epoch: s.epoch}
}

// Settle clears the pending mark of tk and, when tk is still the latest
// mutation of its record, replaces the record with fn's result. A nil fn
// only clears the mark.
func (s *Store[T]) Settle(tk Ticket, fn func(T) T) Outcome {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Discarded
	}
	if n := s.pending[tk.ID]; n <= 1 {
		delete(s.pending, tk.ID)
	} else {
		s.pending[tk.ID] = n - 1
	}

	outcome := Superseded
	if tk.Epoch == s.epoch && s.seq[tk.ID] == tk.Seq {
		if i, ok := s.index[tk.ID]; ok {
			if fn != nil {
				s.items[i] = fn(s.items[i])
			}
			outcome = Applied
		}
	}
	epoch := s.epoch
	s.mu.Unlock()

	s.changes.Publish(Change{Epoch: epoch, IDs: []string{tk.ID}})
	return outcome
}

// Close marks the store dead. Later fetches and settlements are dropped.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = map[string]int{}
}

// Alive reports whether the store still accepts updates.
func (s *Store[T]) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}
