// Package optimistic applies record changes locally before the remote store
// confirms them, and reconciles or rolls back when the call settles.
package optimistic

import (
	"errors"

	"github.com/kalambet/talentflow/internal/entity"
)

var (
	// ErrUnknownRecord is returned when the target id is not in the store.
	ErrUnknownRecord = entity.ErrUnknownRecord
	// ErrIndexOutOfRange is returned by Move for positions outside the list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Patcher is a partial update of T. Capture returns the patch that restores
// the fields the receiver would overwrite.
type Patcher[T, P any] interface {
	Apply(T) T
	Capture(T) P
}

// Mutation is one scalar optimistic change. Apply must be called once
// before Commit or Rollback.
type Mutation[T entity.Keyed, P Patcher[T, P]] struct {
	ID       string
	Patch    P
	Snapshot P

	store   *entity.Store[T]
	ticket  entity.Ticket
	applied bool
}

// NewMutation prepares patch for record id in store.
func NewMutation[T entity.Keyed, P Patcher[T, P]](store *entity.Store[T], id string, patch P) *Mutation[T, P] {
	return &Mutation[T, P]{ID: id, Patch: patch, store: store}
}

// Apply captures the undo snapshot, writes the patch locally and marks the
// record pending.
func (m *Mutation[T, P]) Apply() error {
	var snap P
	tk, _, err := m.store.Apply(m.ID, func(cur T) T {
		snap = m.Patch.Capture(cur)
		return m.Patch.Apply(cur)
	})
	if err != nil {
		return err
	}
	m.Snapshot = snap
	m.ticket = tk
	m.applied = true
	return nil
}

// Ticket returns the store ticket issued by Apply.
func (m *Mutation[T, P]) Ticket() entity.Ticket { return m.ticket }

// Commit reconciles the record to the canonical value returned by the
// remote store. A canonical record with a different id is ignored and only
// the pending mark is cleared.
func (m *Mutation[T, P]) Commit(canonical T) entity.Outcome {
	if !m.applied {
		return entity.Discarded
	}
	return m.store.Settle(m.ticket, func(cur T) T {
		if canonical.Key() != m.ID {
			return cur
		}
		return canonical
	})
}

// Rollback restores the snapshot fields of this record only.
func (m *Mutation[T, P]) Rollback() entity.Outcome {
	if !m.applied {
		return entity.Discarded
	}
	return m.store.Settle(m.ticket, m.Snapshot.Apply)
}
