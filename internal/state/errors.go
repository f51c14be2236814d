package state

import (
	"errors"
	"fmt"

	"github.com/idilsaglam/tada/internal/model"
)

var (
	// ErrEmptyTitle is the local validation failure of Add. It never reaches the network.
	ErrEmptyTitle = errors.New("state: title is empty")
	// ErrNotFound means the intent named a todo that is not in the local collection.
	ErrNotFound = errors.New("state: todo not found")
)

// SyncError is a remote failure collapsed to its category.
type SyncError struct {
	Kind model.ErrorKind
	ID   int // 0 for list and create
	Err  error
}

func (e *SyncError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s (todo %d): %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// KindOf returns the category of err, or model.ErrNone when err is not a
// sync or validation failure.
func KindOf(err error) model.ErrorKind {
	var se *SyncError
	switch {
	case err == nil:
		return model.ErrNone
	case errors.Is(err, ErrEmptyTitle):
		return model.ErrEmptyTitle
	case errors.As(err, &se):
		return se.Kind
	}
	return model.ErrNone
}
