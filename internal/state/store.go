// Package state keeps a local copy of one user's todos in step with the
// remote collection.
//
// Intents call the remote service first and commit to the local collection
// only once the call is confirmed, so a failed call never leaves local state
// diverged from the server. Failures are collapsed to a model.ErrorKind that
// stays visible for a fixed window and then clears itself.
//
// A Store is safe for concurrent use. The store mutex is never held across
// a remote call. Concurrent identical intents (same operation, same todo)
// share a single remote call; different writes to the same todo run one
// after the other.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/view"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultErrorWindow is how long an error stays visible.
	DefaultErrorWindow = 3 * time.Second
	// DefaultBulkLimit caps concurrent per-item calls of bulk intents.
	DefaultBulkLimit = 8
)

// Service is the remote todos collection.
type Service interface {
	List(ctx context.Context, userID int) ([]model.Todo, error)
	Create(ctx context.Context, todo model.Todo) (model.Todo, error)
	Update(ctx context.Context, todo model.Todo) error
	Delete(ctx context.Context, id int) error
}

// Store mirrors the remote collection for a single user.
type Store struct {
	svc       Service
	userID    int
	window    time.Duration
	bulkLimit int
	log       logrus.FieldLogger

	flights singleflight.Group
	changes chan struct{}

	mu       sync.Mutex
	todos    []model.Todo
	fetching int
	adding   int
	pending  map[int]int // todo id -> in-flight calls
	writes   map[int]*todoLock
	errKind  model.ErrorKind
	errSeq   uint64
	errTimer *time.Timer
	closed   bool
}

// Option configures a Store.
type Option func(*Store)

// WithErrorWindow sets how long an error stays before clearing itself.
// Zero keeps errors until dismissed.
func WithErrorWindow(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.window = d
		}
	}
}

// WithBulkLimit caps concurrent calls issued by ToggleAll and ClearCompleted.
func WithBulkLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.bulkLimit = n
		}
	}
}

// WithLogger routes store logs to l.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store for userID. Call FetchAll to populate it.
func New(svc Service, userID int, opts ...Option) *Store {
	s := &Store{
		svc:       svc,
		userID:    userID,
		window:    DefaultErrorWindow,
		bulkLimit: DefaultBulkLimit,
		log:       logging.Nop(),
		changes:   make(chan struct{}, 1),
		todos:     []model.Todo{},
		pending:   map[int]int{},
		writes:    map[int]*todoLock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("user_id", userID)
	return s
}

// UserID is the owner of the mirrored collection.
func (s *Store) UserID() int { return s.userID }

// Changes signals after every state change. Signals coalesce: a receiver
// that falls behind sees one signal, then reads the latest Snapshot. The
// channel is closed by Close.
func (s *Store) Changes() <-chan struct{} { return s.changes }

// Close stops the error timer and closes Changes. In-flight calls still
// settle but no longer signal.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
	close(s.changes)
}

// Snapshot returns a copy of the collection and sync status.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[int]bool, len(s.pending))
	for id := range s.pending {
		pending[id] = true
	}
	return Snapshot{
		Todos:    model.Clone(s.todos),
		Fetching: s.fetching > 0,
		Adding:   s.adding > 0,
		Loading:  s.fetching > 0 || s.adding > 0 || len(s.pending) > 0,
		Pending:  pending,
		Err:      s.errKind,
	}
}

// ---------------------------------------------------
// Intents
// ---------------------------------------------------

// FetchAll replaces the collection with the server's. On failure the
// collection is left as it was.
func (s *Store) FetchAll(ctx context.Context) error {
	_, err, _ := s.flights.Do("list", func() (any, error) {
		s.mu.Lock()
		s.fetching++
		s.clearErrorLocked()
		s.notifyLocked()
		s.mu.Unlock()

		todos, err := s.svc.List(ctx, s.userID)

		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.notifyLocked()
		s.fetching--
		if err != nil {
			return nil, s.failLocked(model.ErrLoad, 0, err)
		}
		s.todos = model.Clone(todos)
		s.clearErrorLocked()
		s.log.WithField("count", len(todos)).Debug("todos loaded")
		return nil, nil
	})
	return err
}

// Add creates a todo titled strings.TrimSpace(title) and appends the
// server's record. An empty title sets ErrEmptyTitle without a remote call.
func (s *Store) Add(ctx context.Context, title string) (model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		s.SetError(model.ErrEmptyTitle)
		return model.Todo{}, ErrEmptyTitle
	}

	v, err, _ := s.flights.Do("add:"+title, func() (any, error) {
		s.mu.Lock()
		s.adding++
		s.clearErrorLocked()
		s.notifyLocked()
		s.mu.Unlock()

		created, err := s.svc.Create(ctx, model.NewTodo(title, s.userID))

		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.notifyLocked()
		s.adding--
		if err != nil {
			return nil, s.failLocked(model.ErrAdd, 0, err)
		}
		s.todos = append(s.todos, created)
		s.log.WithField("id", created.ID).Debug("todo added")
		return created, nil
	})
	if err != nil {
		return model.Todo{}, err
	}
	return v.(model.Todo), nil
}

// ToggleStatus flips the completed flag of the local todo with todo.ID.
func (s *Store) ToggleStatus(ctx context.Context, todo model.Todo) error {
	s.mu.Lock()
	i, ok := s.indexLocked(todo.ID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("toggle %d: %w", todo.ID, ErrNotFound)
	}
	target := !s.todos[i].Completed
	s.clearErrorLocked()
	s.mu.Unlock()

	return s.setCompleted(ctx, todo.ID, target)
}

// ToggleAll completes every todo, or reopens every todo when all of them
// are already completed. Per-item calls run concurrently and commit
// independently; the returned error joins the ones that failed.
func (s *Store) ToggleAll(ctx context.Context) error {
	s.mu.Lock()
	target := !view.AllCompleted(s.todos)
	var ids []int
	for _, t := range s.todos {
		if t.Completed != target {
			ids = append(ids, t.ID)
		}
	}
	s.clearErrorLocked()
	s.mu.Unlock()

	return s.bulk(ctx, ids, func(ctx context.Context, id int) error {
		return s.setCompleted(ctx, id, target)
	})
}

// RenameOrDelete saves newTitle (trimmed). An unchanged title is a no-op,
// an empty one deletes the todo.
func (s *Store) RenameOrDelete(ctx context.Context, todo model.Todo, newTitle string) error {
	title := strings.TrimSpace(newTitle)

	s.mu.Lock()
	i, ok := s.indexLocked(todo.ID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("rename %d: %w", todo.ID, ErrNotFound)
	}
	current := s.todos[i].Title
	s.mu.Unlock()

	switch title {
	case current:
		return nil
	case "":
		return s.Delete(ctx, todo.ID)
	}

	s.mu.Lock()
	s.clearErrorLocked()
	s.mu.Unlock()

	key := fmt.Sprintf("rename:%d:%s", todo.ID, title)
	return s.update(ctx, todo.ID, key, func(t *model.Todo) { t.Title = title })
}

// Delete removes the todo with id once the server confirms.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	if _, ok := s.indexLocked(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	s.clearErrorLocked()
	s.mu.Unlock()

	return s.remove(ctx, id)
}

// ClearCompleted deletes every completed todo. Todos whose delete fails
// stay in the collection.
func (s *Store) ClearCompleted(ctx context.Context) error {
	s.mu.Lock()
	var ids []int
	for _, t := range s.todos {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	s.clearErrorLocked()
	s.mu.Unlock()

	return s.bulk(ctx, ids, s.remove)
}

// SetError shows kind. Any earlier auto-clear timer is cancelled.
func (s *Store) SetError(kind model.ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErrorLocked(kind)
	s.notifyLocked()
}

// DismissError clears the current error. No-op when there is none.
func (s *Store) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errKind == model.ErrNone {
		return
	}
	s.setErrorLocked(model.ErrNone)
	s.notifyLocked()
}

// ---------------------------------------------------
// Remote calls
// ---------------------------------------------------

func (s *Store) setCompleted(ctx context.Context, id int, target bool) error {
	key := fmt.Sprintf("complete:%d:%t", id, target)
	return s.update(ctx, id, key, func(t *model.Todo) { t.Completed = target })
}

// update sends the todo with change applied. Writes to one todo run one
// at a time and each is built from the record the previous one left, so
// the server never receives a stale copy of another field.
func (s *Store) update(ctx context.Context, id int, key string, change func(*model.Todo)) error {
	_, err, _ := s.flights.Do(key, func() (any, error) {
		s.mu.Lock()
		if _, ok := s.indexLocked(id); !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("update %d: %w", id, ErrNotFound)
		}
		s.pending[id]++
		s.notifyLocked()
		s.mu.Unlock()

		unlock := s.lockTodo(id)
		defer unlock()

		s.mu.Lock()
		i, ok := s.indexLocked(id)
		if !ok {
			s.settleLocked(id)
			s.notifyLocked()
			s.mu.Unlock()
			return nil, fmt.Errorf("update %d: %w", id, ErrNotFound)
		}
		next := s.todos[i]
		change(&next)
		s.mu.Unlock()

		err := s.svc.Update(ctx, next)

		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.notifyLocked()
		s.settleLocked(id)
		if err != nil {
			return nil, s.failLocked(model.ErrUpdate, id, err)
		}
		if i, ok := s.indexLocked(id); ok {
			s.todos[i] = next
		}
		s.log.WithField("id", id).Debug("todo updated")
		return nil, nil
	})
	return err
}

func (s *Store) remove(ctx context.Context, id int) error {
	_, err, _ := s.flights.Do(fmt.Sprintf("delete:%d", id), func() (any, error) {
		s.mu.Lock()
		s.pending[id]++
		s.notifyLocked()
		s.mu.Unlock()

		unlock := s.lockTodo(id)
		defer unlock()

		err := s.svc.Delete(ctx, id)

		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.notifyLocked()
		s.settleLocked(id)
		if err != nil {
			return nil, s.failLocked(model.ErrDelete, id, err)
		}
		if i, ok := s.indexLocked(id); ok {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
		}
		s.log.WithField("id", id).Debug("todo deleted")
		return nil, nil
	})
	return err
}

// bulk runs fn for every id, best-effort: a failure does not stop the others.
func (s *Store) bulk(ctx context.Context, ids []int, fn func(context.Context, int) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(s.bulkLimit)
	for _, id := range ids {
		g.Go(func() error {
			if err := fn(ctx, id); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// todoLock serializes remote writes to one todo.
type todoLock struct {
	mu   sync.Mutex
	refs int
}

// lockTodo blocks until no other write to id is in flight and returns the
// matching unlock. Must be called without s.mu held.
func (s *Store) lockTodo(id int) func() {
	s.mu.Lock()
	l, ok := s.writes[id]
	if !ok {
		l = &todoLock{}
		s.writes[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.writes, id)
		}
		s.mu.Unlock()
	}
}

// ---------------------------------------------------
// Locked helpers (s.mu held)
// ---------------------------------------------------

func (s *Store) indexLocked(id int) (int, bool) {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) settleLocked(id int) {
	if s.pending[id] <= 1 {
		delete(s.pending, id)
		return
	}
	s.pending[id]--
}

func (s *Store) failLocked(kind model.ErrorKind, id int, err error) error {
	entry := s.log.WithField("op", kind.String()).WithError(err)
	if id != 0 {
		entry = entry.WithField("id", id)
	}
	entry.Warn("remote call failed")
	s.setErrorLocked(kind)
	return &SyncError{Kind: kind, ID: id, Err: err}
}

func (s *Store) clearErrorLocked() {
	if s.errKind != model.ErrNone {
		s.setErrorLocked(model.ErrNone)
		s.notifyLocked()
	}
}

// setErrorLocked gives every error a fresh sequence number. The auto-clear
// timer only clears the error it was armed for.
func (s *Store) setErrorLocked(kind model.ErrorKind) {
	s.errSeq++
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
	s.errKind = kind
	if kind == model.ErrNone || s.window <= 0 || s.closed {
		return
	}
	seq := s.errSeq
	s.errTimer = time.AfterFunc(s.window, func() { s.expire(seq) })
}

func (s *Store) expire(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errSeq != seq || s.errKind == model.ErrNone {
		return
	}
	s.errKind = model.ErrNone
	s.errTimer = nil
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	if s.closed {
		return
	}
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
