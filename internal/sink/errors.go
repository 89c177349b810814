package sink

import (
	"errors"
	"fmt"
	"io/fs"

	"go-pipeline-engine/internal/model"
)

var (
	ErrSink        = errors.New("output persistence failed")
	ErrUnknownSink = errors.New("unknown output kind")
)

// SinkError names the sink and the sub-step that failed.
type SinkError struct {
	Kind model.OutputKind
	Op   string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *SinkError) Unwrap() []error {
	return []error{ErrSink, e.Err}
}

// fail builds a SinkError without file names in the message; run results
// must not expose where the sink roots live.
func fail(kind model.OutputKind, op string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = fmt.Errorf("%s: %w", pe.Op, pe.Err)
	}
	return &SinkError{Kind: kind, Op: op, Err: err}
}
