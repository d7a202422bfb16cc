package optimistic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/talentflow/internal/bus"
	"github.com/kalambet/talentflow/internal/entity"
	"github.com/kalambet/talentflow/internal/remote"
)

const (
	kindUpdate  = "update"
	kindReorder = "reorder"
)

// settler tracks in-flight remote calls and reports failures.
type settler struct {
	store    interface{ Refresh(context.Context) error }
	failures *bus.Topic[bus.MutationFailed]
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func (s *settler) fail(kind, id string, err error) {
	s.logger.Warn("mutation failed", "kind", kind, "record_id", id, "error", err)
	if s.failures != nil {
		s.failures.Publish(bus.MutationFailed{Kind: kind, RecordID: id, Err: err})
	}
}

func (s *settler) refetch(ctx context.Context) {
	if err := s.store.Refresh(ctx); err != nil {
		s.logger.Warn("refetch after failed mutation", "error", err)
	}
}

// Wait blocks until every issued remote call has settled.
func (s *settler) Wait() { s.wg.Wait() }

// Coordinator runs scalar optimistic updates of records in one store.
type Coordinator[T entity.Keyed, P Patcher[T, P]] struct {
	settler
	entities *entity.Store[T]
	remote   remote.Collection[T, P]
}

// NewCoordinator returns a coordinator that settles updates of store against
// rc. failures may be nil.
func NewCoordinator[T entity.Keyed, P Patcher[T, P]](store *entity.Store[T], rc remote.Collection[T, P], failures *bus.Topic[bus.MutationFailed]) *Coordinator[T, P] {
	return &Coordinator[T, P]{
		settler: settler{
			store:    store,
			failures: failures,
			logger:   slog.Default().With("store", store.Name()),
		},
		entities: store,
		remote:   rc,
	}
}

// Update applies patch to record id now and sends it to the remote store in
// the background. The returned error covers only the local step. On remote
// failure the patched fields are restored and one MutationFailed event is
// published. A failure whose rollback was superseded by a newer mutation
// refetches the page instead.
func (c *Coordinator[T, P]) Update(ctx context.Context, id string, patch P) (*Mutation[T, P], error) {
	m := NewMutation(c.entities, id, patch)
	if err := m.Apply(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		canonical, err := c.remote.Update(ctx, id, patch)
		if err == nil {
			observe(kindUpdate, "committed", m.Commit(canonical), start)
			return
		}
		outcome := m.Rollback()
		observe(kindUpdate, "rolled_back", outcome, start)
		if outcome == entity.Discarded {
			return
		}
		c.fail(kindUpdate, id, err)
		if outcome == entity.Superseded {
			c.refetch(ctx)
		}
	}()
	return m, nil
}
