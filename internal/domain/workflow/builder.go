package workflow

import (
	"fmt"
)

// History is the rejection memory a guard may consult
type History struct {
	LastRejectStep Step
	BypassTeacher  bool
}

// GuardFunc evaluates whether a transition applies for the given history
type GuardFunc func(h History) bool

// ChartBuilder builds a transition chart for one document kind
type ChartBuilder interface {
	// Configure returns the step configuration for the given step
	Configure(step Step) StepConfiguration

	// Build creates a new state machine positioned at the given step
	Build(initial Step) StateMachine
}

// StepConfiguration configures transitions out of a specific step
type StepConfiguration interface {
	// Permit allows a trigger to move to the target step
	Permit(trigger Trigger, to Step) StepConfiguration

	// PermitIf allows a trigger to move to the target step if the guard passes.
	// Guards are evaluated in registration order and the first match wins.
	PermitIf(trigger Trigger, to Step, guard GuardFunc) StepConfiguration
}

type transition struct {
	to    Step
	guard GuardFunc
}

type stepConfig struct {
	from        Step
	transitions map[Trigger][]transition
}

type chartBuilder struct {
	configurations map[Step]*stepConfig
}

type stateMachine struct {
	current        Step
	configurations map[Step]*stepConfig
}

// NewBuilder creates a new chart builder
func NewBuilder() ChartBuilder {
	return &chartBuilder{
		configurations: make(map[Step]*stepConfig),
	}
}

// Configure returns the step configuration for the given step
func (b *chartBuilder) Configure(step Step) StepConfiguration {
	if !step.IsValid() {
		panic(fmt.Sprintf("invalid step: %s", step))
	}

	config, exists := b.configurations[step]
	if !exists {
		config = &stepConfig{
			from:        step,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[step] = config
	}

	return config
}

// Build creates a new state machine positioned at the given step.
// The machine shares the chart read-only; charts must not be configured after the first Build.
func (b *chartBuilder) Build(initial Step) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial step: %s", initial))
	}

	return &stateMachine{
		current:        initial,
		configurations: b.configurations,
	}
}

// Permit allows a trigger to move to the target step
func (c *stepConfig) Permit(trigger Trigger, to Step) StepConfiguration {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows a trigger to move to the target step if the guard passes
func (c *stepConfig) PermitIf(trigger Trigger, to Step, guard GuardFunc) StepConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target step: %s", to))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// Step returns the current step
func (m *stateMachine) Step() Step {
	return m.current
}

// CanFire returns true if the trigger is configured for the current step
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Fire executes the trigger, moving to the first step whose guard passes
func (m *stateMachine) Fire(trigger Trigger, h History) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire %s from %s (no configuration)", ErrInvalidTransition, trigger, m.current)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(h) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns all triggers configured for the current step
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.current]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}

	return triggers
}
