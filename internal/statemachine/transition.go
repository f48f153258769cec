package statemachine

// Transition moves a machine from Parent to Child. It fires when Trigger was
// called while Parent was active, or when ShouldTransition returns true
// during Machine.Update.
type Transition struct {
	Name   string
	Parent Behavior
	Child  Behavior

	ShouldTransition func() bool
	// OnTransition runs after Parent exited and before Child is entered.
	OnTransition func()

	triggered bool
}

// Trigger requests the transition on the next Update. It is ignored while
// Parent is inactive.
func (t *Transition) Trigger() {
	if t.Parent == nil || !t.Parent.Active() {
		return
	}
	t.triggered = true
}

func (t *Transition) IsTriggered() bool { return t.triggered }

func (t *Transition) ResetTrigger() { t.triggered = false }

func (t *Transition) ready() bool {
	if t.triggered {
		return true
	}
	return t.ShouldTransition != nil && t.ShouldTransition()
}
