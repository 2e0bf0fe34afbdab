package workflow

// StateMachine tracks the current step of one document and validates transitions
type StateMachine interface {
	// Step returns the current step
	Step() Step

	// CanFire returns true if the trigger is configured for the current step
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, consulting the rejection history for guarded transitions
	Fire(trigger Trigger, h History) error

	// PermittedTriggers returns all triggers configured for the current step
	PermittedTriggers() []Trigger
}
