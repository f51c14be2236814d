package state

import "github.com/idilsaglam/tada/internal/model"

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Todos []model.Todo

	// Loading is true while any call is in flight.
	Loading  bool
	Fetching bool
	Adding   bool
	// Pending holds the ids of todos with an update or delete in flight.
	Pending map[int]bool

	Err model.ErrorKind
}

// IsPending reports whether the todo with id has a call in flight.
func (s Snapshot) IsPending(id int) bool { return s.Pending[id] }

// Find returns the todo with id.
func (s Snapshot) Find(id int) (model.Todo, bool) {
	for _, t := range s.Todos {
		if t.ID == id {
			return t, true
		}
	}
	return model.Todo{}, false
}
