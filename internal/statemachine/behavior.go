// Package statemachine drives bot behaviors as nodes of a finite state
// machine. A Machine owns a set of behaviors and the transitions between
// them, and guarantees that at most one of them is active at a time.
//
// All methods are meant to be called from a single tick goroutine; nothing
// here locks.
package statemachine

// Behavior is one node of a state machine.
//
// OnStateEntered runs once per activation and OnStateExited once per
// deactivation, on every exit path. Implementations embed Base, which carries
// the name and the active flag; only the driver flips the flag.
type Behavior interface {
	Name() string
	Active() bool
	OnStateEntered()
	OnStateExited()

	base() *Base
}

// Updater is implemented by behaviors that need work every tick while
// active. Nested machines implement it.
type Updater interface {
	Update()
}

type Base struct {
	name   string
	active bool
}

func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string { return b.name }

// SetName renames the state, e.g. to tell two instances of one behavior
// apart in logs.
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) Active() bool { return b.active }

func (b *Base) base() *Base { return b }

func activate(b Behavior) {
	b.OnStateEntered()
	b.base().active = true
}

func deactivate(b Behavior) {
	b.OnStateExited()
	b.base().active = false
}
