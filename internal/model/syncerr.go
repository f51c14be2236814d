package model

// ErrorKind is the single error category shown to the user at a time.
// Remote failures collapse to the category of the operation that failed.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrLoad
	ErrAdd
	ErrUpdate
	ErrDelete
	ErrEmptyTitle
)

var errorMessages = map[ErrorKind]string{
	ErrLoad:       "Unable to load todos",
	ErrAdd:        "Unable to add a todo",
	ErrUpdate:     "Unable to update a todo",
	ErrDelete:     "Unable to delete a todo",
	ErrEmptyTitle: "Title should not be empty",
}

// Message is the banner text; empty for ErrNone.
func (k ErrorKind) Message() string { return errorMessages[k] }

func (k ErrorKind) String() string {
	switch k {
	case ErrLoad:
		return "load-failed"
	case ErrAdd:
		return "add-failed"
	case ErrUpdate:
		return "update-failed"
	case ErrDelete:
		return "delete-failed"
	case ErrEmptyTitle:
		return "empty-title"
	default:
		return "none"
	}
}
