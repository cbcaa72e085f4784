package git

import "fmt"

// SyncError wraps a failure from one of the clone/fetch/checkout/submodule
// steps, enabling structured classification without string parsing upstream.
type SyncError struct {
	Step string // clone | fetch | checkout | submodules
	Name string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %s failed: %v", e.Name, e.Step, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
