package model

// Todo is the domain model for a todo entry as the remote service stores it.
// ID 0 means the todo has not been saved yet.
type Todo struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
}

// NewTodo returns an unsaved, active todo owned by userID.
func NewTodo(title string, userID int) Todo {
	return Todo{Title: title, UserID: userID}
}

// Saved reports whether the server has assigned an id.
func (t Todo) Saved() bool { return t.ID != 0 }

// Clone copies a collection so callers can't alias store internals.
func Clone(todos []Todo) []Todo {
	if todos == nil {
		return []Todo{}
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}
