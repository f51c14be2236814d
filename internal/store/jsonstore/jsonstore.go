package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/idilsaglam/tada/internal/model"
)

// JSON-backed todos service for offline use. Single file, human-readable,
// portable. It answers the same four calls as the remote API, so the state
// store can't tell the difference.

// DefaultFileName is used when no data file is configured.
const DefaultFileName = "todos.json"

// ErrNotFound is returned when an update or delete targets a missing id or
// a todo owned by another user.
var ErrNotFound = errors.New("jsonstore: todo not found")

// Store reads and rewrites the whole file on every call. The mutex only
// serializes this process; there is no cross-process locking. Writes only
// touch todos that belong to owner.
type Store struct {
	path  string
	owner int
	mu    sync.Mutex
}

// New returns a store over path acting for owner. The file is created on
// first write.
func New(path string, owner int) *Store {
	if path == "" {
		path = DefaultFileName
	}
	return &Store{path: path, owner: owner}
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) List(ctx context.Context, userID int) ([]model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return nil, err
	}
	out := []model.Todo{}
	for _, it := range items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, todo model.Todo) (model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return model.Todo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return model.Todo{}, err
	}
	todo.ID = nextID(items)
	items = append(items, todo)
	if err := s.save(items); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func (s *Store) Update(ctx context.Context, todo model.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == todo.ID && items[i].UserID == todo.UserID && s.owns(items[i]) {
			items[i].Title = todo.Title
			items[i].Completed = todo.Completed
			return s.save(items)
		}
	}
	return fmt.Errorf("update %d: %w", todo.ID, ErrNotFound)
}

func (s *Store) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == id && s.owns(items[i]) {
			items = append(items[:i], items[i+1:]...)
			return s.save(items)
		}
	}
	return fmt.Errorf("delete %d: %w", id, ErrNotFound)
}

func (s *Store) owns(td model.Todo) bool { return td.UserID == s.owner }

func nextID(items []model.Todo) int {
	top := 0
	for _, it := range items {
		if it.ID > top {
			top = it.ID
		}
	}
	return top + 1
}

func (s *Store) load() ([]model.Todo, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var items []model.Todo
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return items, nil
}

func (s *Store) save(items []model.Todo) error {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	// write-then-rename so a crash never leaves a truncated file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
