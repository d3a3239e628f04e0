package main

import (
	"errors"
	"fmt"
	"os"
)

// reportedError marks a failure whose details were already printed as
// diagnostics; main only sets the exit status for it.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func printCommandError(err error) {
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
