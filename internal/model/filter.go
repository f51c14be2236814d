package model

import (
	"fmt"
	"strings"
)

// Filter selects which part of the collection is shown. Client-only.
type Filter int

const (
	FilterAll Filter = iota
	FilterActive
	FilterCompleted
)

// Filters lists the selections in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func (f Filter) String() string {
	switch f {
	case FilterActive:
		return "Active"
	case FilterCompleted:
		return "Completed"
	default:
		return "All"
	}
}

// Next cycles All -> Active -> Completed -> All.
func (f Filter) Next() Filter {
	return Filters[(int(f)+1)%len(Filters)]
}

// Matches reports whether t belongs in the filtered view.
func (f Filter) Matches(t Todo) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// ParseFilter accepts the names printed by String, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q", s)
}
