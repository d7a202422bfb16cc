// Package remote defines the contracts of the remote record service and an
// HTTP/JSON client that implements them.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
)

var (
	// ErrNotFound is returned when the addressed record or document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a reorder names stale order keys.
	ErrConflict = errors.New("conflict")
)

// StatusError is any other non-2xx response.
type StatusError struct {
	Code    int
	Type    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Collection lists and patches records of one kind.
type Collection[T, P any] interface {
	List(ctx context.Context, q record.Query) (record.Page[T], error)
	Update(ctx context.Context, id string, patch P) (T, error)
}

// Ordered moves a record from one order key to another.
type Ordered interface {
	Reorder(ctx context.Context, id string, fromKey, toKey float64) error
}

// Documents loads and stores the assessment attached to an owner record.
type Documents interface {
	Fetch(ctx context.Context, ownerID string) (document.Tree, error)
	Save(ctx context.Context, ownerID string, tree document.Tree) error
}

// Notes appends free-text notes to a record.
type Notes interface {
	Add(ctx context.Context, recordID, text string) (record.Note, error)
}
