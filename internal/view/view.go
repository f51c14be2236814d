// Package view derives what the presentation shows from a todo collection.
// Everything here is pure; callers recompute whenever the collection or
// the filter selection changes.
package view

import "github.com/idilsaglam/tada/internal/model"

// Visible returns the todos matching f, in collection order.
func Visible(todos []model.Todo, f model.Filter) []model.Todo {
	if f == model.FilterAll {
		return model.Clone(todos)
	}
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Active returns the todos that are not completed.
func Active(todos []model.Todo) []model.Todo { return Visible(todos, model.FilterActive) }

// Completed returns the completed todos.
func Completed(todos []model.Todo) []model.Todo { return Visible(todos, model.FilterCompleted) }

// AllCompleted is true when no active todo remains (including the empty collection).
func AllCompleted(todos []model.Todo) bool {
	for _, t := range todos {
		if !t.Completed {
			return false
		}
	}
	return true
}

// Counts returns how many todos are active and how many are completed.
func Counts(todos []model.Todo) (active, completed int) {
	for _, t := range todos {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	return
}

// ResetFilter falls back to All when the current filter would show nothing
// because its category emptied out. Applying it twice is the same as once.
func ResetFilter(f model.Filter, todos []model.Todo) model.Filter {
	active, completed := Counts(todos)
	switch {
	case f == model.FilterActive && active == 0:
		return model.FilterAll
	case f == model.FilterCompleted && completed == 0:
		return model.FilterAll
	}
	return f
}

// SelectFilter is what a filter tab does when picked: an empty category
// selects All instead.
func SelectFilter(requested model.Filter, todos []model.Todo) model.Filter {
	return ResetFilter(requested, todos)
}
