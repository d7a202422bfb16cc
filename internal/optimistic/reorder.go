package optimistic

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/talentflow/internal/bus"
	"github.com/kalambet/talentflow/internal/entity"
	"github.com/kalambet/talentflow/internal/remote"
)

// Orderable records carry a numeric sort key.
type Orderable[T any] interface {
	entity.Keyed
	OrderKey() float64
	WithOrderKey(float64) T
}

// Reorderer runs optimistic drag-reorders of records in one store.
type Reorderer[T Orderable[T]] struct {
	settler
	entities *entity.Store[T]
	remote   remote.Ordered
}

// NewReorderer returns a reorderer for store backed by ro. failures may be nil.
func NewReorderer[T Orderable[T]](store *entity.Store[T], ro remote.Ordered, failures *bus.Topic[bus.MutationFailed]) *Reorderer[T] {
	return &Reorderer[T]{
		settler: settler{
			store:    store,
			failures: failures,
			logger:   slog.Default().With("store", store.Name()),
		},
		entities: store,
		remote:   ro,
	}
}

// Move drags the record at index from to index to. The local list changes
// before Move returns; the remote reorder runs in the background and a
// failure refetches the page rather than undoing the splice.
func (r *Reorderer[T]) Move(ctx context.Context, from, to int) error {
	var (
		id             string
		fromKey, toKey float64
	)
	tk, err := r.entities.Rearrange(func(items []T) (string, []T, error) {
		n := len(items)
		if from < 0 || from >= n || to < 0 || to >= n {
			return "", nil, ErrIndexOutOfRange
		}
		if from == to {
			return "", nil, errNoop
		}
		id = items[from].Key()
		fromKey, toKey = items[from].OrderKey(), items[to].OrderKey()
		return id, Splice(items, from, to), nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	if err != nil {
		return err
	}

	start := time.Now()
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.remote.Reorder(ctx, id, fromKey, toKey)
		if err == nil {
			observe(kindReorder, "committed", r.entities.Settle(tk, nil), start)
			return
		}
		outcome := r.entities.Settle(tk, nil)
		observe(kindReorder, "refetched", outcome, start)
		if outcome == entity.Discarded {
			return
		}
		r.fail(kindReorder, id, err)
		r.refetch(ctx)
	}()
	return nil
}

var errNoop = errors.New("no-op move")

// Splice moves items[from] to position to and redistributes the order keys
// of the affected range so the keys keep their original sorted positions.
// The moved record takes the key previously at to. items is modified in
// place and returned.
func Splice[T Orderable[T]](items []T, from, to int) []T {
	lo, hi := from, to
	if lo > hi {
		lo, hi = hi, lo
	}
	keys := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		keys = append(keys, items[i].OrderKey())
	}

	moved := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = moved

	for i := lo; i <= hi; i++ {
		items[i] = items[i].WithOrderKey(keys[i-lo])
	}
	return items
}
