package bridge

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrScriptFailed   = errors.New("script execution failed")
	ErrTimeout        = errors.New("script timed out")
	ErrInvalidOutput  = errors.New("script produced invalid output")
	ErrScriptNotFound = errors.New("script not found")
)

// ScriptError is returned by Execute. Kind is one of the sentinel errors
// above; Script is the caller's script reference, never a resolved path.
// Stderr is kept for callers using errors.As and is not part of Error,
// since it routinely carries tracebacks and absolute paths.
type ScriptError struct {
	Kind     error
	Script   string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ScriptError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Script)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScriptError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// pathless drops the file name from fs errors so scratch locations do not
// leak into run results.
func pathless(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return fmt.Errorf("%s: %w", pe.Op, pe.Err)
	}
	return err
}
