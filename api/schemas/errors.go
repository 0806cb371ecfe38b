// api/schemas/errors.go
package schemas

import "fmt"

// NonCriticalError marks a failure the pipeline absorbs: the operation is
// logged and skipped, and processing continues. Using a concrete type keeps
// the distinction between ignorable and fatal failure visible in the result
// model instead of hiding it in a swallowed error.
type NonCriticalError struct {
	Op  string
	Err error
}

func (e *NonCriticalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (non-critical)", e.Op)
	}
	return fmt.Sprintf("%s failed (non-critical): %v", e.Op, e.Err)
}

func (e *NonCriticalError) Unwrap() error { return e.Err }

// NonCritical wraps err as a NonCriticalError for operation op.
func NonCritical(op string, err error) *NonCriticalError {
	return &NonCriticalError{Op: op, Err: err}
}
