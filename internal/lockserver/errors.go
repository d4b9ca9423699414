package lockserver

import "errors"

// Sentinel errors for the action kinds from spec.md §7, declared as a
// package-level Err* block following the error-sentinel convention used by
// go-lockbox/core. The Handler answers these cases directly with wire
// responses; it does not return or compare against these values.
var (
	ErrInvalidRequest  = errors.New("lockserver: invalid request")
	ErrInvalidAction   = errors.New("lockserver: invalid action")
	ErrInvalidLockName = errors.New("lockserver: invalid lock name")
	ErrNotGranted      = errors.New("lockserver: lock not granted")
)
