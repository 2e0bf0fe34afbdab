package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a step has no transition for a trigger
	ErrInvalidTransition = errors.New("invalid step transition")

	// ErrUnknownKind is returned when an application kind is not recognized
	ErrUnknownKind = errors.New("unknown application kind")

	// ErrGuardFailed is returned when no guarded transition matched
	ErrGuardFailed = errors.New("guard condition failed")
)
