// Package jsvm evaluates scripts in a shared global scope.
//
// Evaluation is a capability the host provides: restricted hosts hand out
// Unavailable, which rejects every script.
package jsvm

import (
	"errors"
	"fmt"
)

// Scope evaluates code so that top-level declarations stay visible to
// later evaluations. Implementations are not required to be goroutine-safe.
type Scope interface {
	Eval(name, code string) (any, error)
}

var ErrEvalUnavailable = errors.New("script evaluation is not available in this host")

// Unavailable is the Scope of hosts that forbid dynamic evaluation.
type Unavailable struct{}

func (Unavailable) Eval(name, _ string) (any, error) {
	return nil, &ExecError{Label: name, Message: ErrEvalUnavailable.Error(), Err: ErrEvalUnavailable}
}

// ExecError is a script that threw (or failed to compile) during evaluation.
type ExecError struct {
	Label   string
	Message string
	Stack   string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Label == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (in %s)", e.Message, e.Label)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
