package compile

import (
	"errors"
	"fmt"

	"github.com/danmuck/fastplan/internal/template"
)

var (
	ErrKindMismatch = errors.New("compile: value does not match field kind")
	ErrArity        = errors.New("compile: more values than fields")
	ErrDecimalRange = errors.New("compile: decimal mantissa exceeds 64 bits")
	ErrNilTemplate  = errors.New("compile: nil template")
)

// BindError reports the field path that failed to bind.
type BindError struct {
	Path string
	Kind template.Kind
	Got  string
	Err  error
}

func (e *BindError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("compile: %s (%s): %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("compile: %s (%s) got %s: %v", e.Path, e.Kind, e.Got, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
