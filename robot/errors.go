package robot

import (
	"fmt"

	"github.com/pkg/errors"
)

// InitError is returned when a bring-up stage fails. Code is the stage's status code; it is left
// on the status panel and becomes the process exit status.
type InitError struct {
	Stage Stage
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("bring-up failed at stage %#x (%s): %v", int(e.Stage), e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Code is the process exit status for this failure.
func (e *InitError) Code() int {
	return int(e.Stage)
}

// ExitCode returns the status code carried by err, or 1 for errors that did not come from a
// bring-up stage.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var initErr *InitError
	if errors.As(err, &initErr) {
		return initErr.Code()
	}
	return 1
}
