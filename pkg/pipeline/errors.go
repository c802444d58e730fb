package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is on any error returned by Build or
// Job.Run.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch error")
	ErrRender        = errors.New("render error")
	ErrWrite         = errors.New("write error")
)

// Error tags a stage failure with its kind.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%v: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

func wrap(kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or nil when err did not come from a stage.
func KindOf(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return nil
}

func resultLabel(err error) string {
	switch KindOf(err) {
	case nil:
		if err == nil {
			return "success"
		}
		return "error"
	case ErrConfiguration:
		return "configuration"
	case ErrFetch:
		return "fetch"
	case ErrRender:
		return "render"
	case ErrWrite:
		return "write"
	default:
		return "error"
	}
}
