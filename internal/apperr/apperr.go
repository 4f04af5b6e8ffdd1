// Package apperr defines the error kinds the prediction front ends report to the operator.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the top-level handler.
type Kind int

const (
	// Internal is any failure without a more specific kind.
	Internal Kind = iota
	// MissingInputPath means a configured or chosen input does not exist.
	MissingInputPath
	// MissingModelFile means the weights file is absent and no fallback URL is configured.
	MissingModelFile
	// UnopenableSource means a camera or video file could not be opened.
	UnopenableSource
	// UnreadableFrame means a single input could not be decoded. It is skipped, never fatal.
	UnreadableFrame
	// UserCancelled means the operator chose nothing. The process exits cleanly.
	UserCancelled
	// InvalidMenuChoice means the operator typed an option that is not on the menu.
	InvalidMenuChoice
	// SourceNotFound means the window to capture does not exist.
	SourceNotFound
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	MissingInputPath:  "missing_input_path",
	MissingModelFile:  "missing_model_file",
	UnopenableSource:  "unopenable_source",
	UnreadableFrame:   "unreadable_frame",
	UserCancelled:     "user_cancelled",
	InvalidMenuChoice: "invalid_menu_choice",
	SourceNotFound:    "source_not_found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Err, when set, is the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil || Is(err, UserCancelled) {
		return 0
	}
	return 1
}
