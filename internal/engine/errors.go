package engine

import (
	"errors"
	"fmt"
	"runtime/debug"

	pkgerrors "github.com/pkg/errors"
)

// PanicError is a panic raised by an executor or evaluator, recovered and
// turned into that experiment's failure.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// withStack attaches a stack trace to err unless it already carries one.
func withStack(err error) error {
	if err == nil {
		return nil
	}
	var st stackTracer
	var pe *PanicError
	if errors.As(err, &st) || errors.As(err, &pe) {
		return err
	}
	return pkgerrors.WithStack(err)
}

// Failure is the diagnostic reported for a failed experiment.
type Failure struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// describe extracts the root error type, the message and the best available
// stack trace from err.
func describe(err error) Failure {
	f := Failure{Message: err.Error()}

	var pe *PanicError
	if errors.As(err, &pe) {
		f.Type = fmt.Sprintf("panic(%T)", pe.Value)
		f.Stack = string(pe.Stack)
		return f
	}

	var st stackTracer
	if errors.As(err, &st) {
		f.Stack = fmt.Sprintf("%+v", st.StackTrace())
	}
	f.Type = fmt.Sprintf("%T", rootCause(err))
	return f
}

// rootCause follows the single-error Unwrap chain to its end.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
