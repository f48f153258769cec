package statemachine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Versifine/locus-statemachine/internal/event"
	"github.com/Versifine/locus-statemachine/internal/metrics"
)

var (
	ErrNoEntryState   = errors.New("state machine needs an entry state")
	ErrUnknownState   = errors.New("state does not belong to this machine")
	ErrMachineStopped = errors.New("state machine is not active")
)

// Machine is itself a Behavior, so machines nest: entering a Machine enters
// its entry state and exiting it exits whichever child is active.
type Machine struct {
	Base

	enter       Behavior
	exit        Behavior
	states      []Behavior
	transitions []*Transition
	current     Behavior

	bus     *event.Bus
	metrics *metrics.Metrics
	log     *slog.Logger
}

type Option func(*Machine)

// WithExit marks the state in which the machine counts as finished.
func WithExit(b Behavior) Option {
	return func(m *Machine) { m.exit = b }
}

func WithBus(bus *event.Bus) Option {
	return func(m *Machine) { m.bus = bus }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

func NewMachine(name string, enter Behavior, transitions []*Transition, opts ...Option) (*Machine, error) {
	if enter == nil {
		return nil, ErrNoEntryState
	}
	m := &Machine{
		Base:        NewBase(name),
		enter:       enter,
		transitions: transitions,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.addState(enter)
	for i, t := range transitions {
		if t == nil || t.Parent == nil || t.Child == nil {
			return nil, fmt.Errorf("transition %d of machine %q: parent and child are required", i, name)
		}
		m.addState(t.Parent)
		m.addState(t.Child)
	}
	if m.exit != nil && !m.hasState(m.exit) {
		return nil, fmt.Errorf("exit state %q: %w", m.exit.Name(), ErrUnknownState)
	}
	return m, nil
}

// Start activates a top-level machine. Nested machines are started by their
// parent instead.
func (m *Machine) Start() {
	if m.Active() {
		return
	}
	m.log.Info("State machine started", "machine", m.Name())
	activate(m)
}

// Stop exits the active state and deactivates the machine.
func (m *Machine) Stop() {
	if !m.Active() {
		return
	}
	deactivate(m)
	m.log.Info("State machine stopped", "machine", m.Name())
}

func (m *Machine) OnStateEntered() {
	m.current = nil
	m.switchTo(m.enter, nil)
}

func (m *Machine) OnStateExited() {
	if m.current == nil {
		return
	}
	prev := m.current
	m.leave(prev)
	m.resetTriggersFrom(prev)
	m.current = nil
	m.metrics.ObserveTransition(m.Name(), prev.Name(), "")
}

// Update fires at most one ready transition out of the active state, then
// updates the active state if it wants per-tick work.
func (m *Machine) Update() {
	if !m.Active() || m.current == nil {
		return
	}
	for _, t := range m.transitions {
		if t.Parent != m.current || !t.ready() {
			continue
		}
		t.ResetTrigger()
		m.switchTo(t.Child, t)
		break
	}
	if u, ok := m.current.(Updater); ok && m.current.Active() {
		u.Update()
	}
}

// Transition forces a switch to an arbitrary state of this machine. Switching
// to the state that is already active does nothing.
func (m *Machine) Transition(to Behavior) error {
	if !m.Active() {
		return ErrMachineStopped
	}
	if to == nil || !m.hasState(to) {
		name := "<nil>"
		if to != nil {
			name = to.Name()
		}
		return fmt.Errorf("transition to %q: %w", name, ErrUnknownState)
	}
	if to == m.current {
		return nil
	}
	m.switchTo(to, nil)
	return nil
}

func (m *Machine) ActiveState() Behavior {
	return m.current
}

func (m *Machine) IsFinished() bool {
	return m.exit != nil && m.current == m.exit
}

func (m *Machine) States() []Behavior {
	return append([]Behavior(nil), m.states...)
}

func (m *Machine) switchTo(next Behavior, via *Transition) {
	prev := m.current
	prevName := ""
	if prev != nil {
		prevName = prev.Name()
		m.leave(prev)
		m.resetTriggersFrom(prev)
	}

	m.current = nil
	if via != nil && via.OnTransition != nil {
		via.OnTransition()
	}

	attrs := []any{"machine", m.Name(), "from", prevName, "to", next.Name()}
	if via != nil && via.Name != "" {
		attrs = append(attrs, "transition", via.Name)
	}
	m.log.Info("State transition", attrs...)

	m.current = next
	activate(next)
	m.metrics.ObserveTransition(m.Name(), prevName, next.Name())
	m.bus.Publish(event.EventStateEnter, event.StateEvent{Machine: m.Name(), State: next.Name()})
}

func (m *Machine) leave(b Behavior) {
	deactivate(b)
	m.bus.Publish(event.EventStateExit, event.StateEvent{Machine: m.Name(), State: b.Name()})
}

func (m *Machine) resetTriggersFrom(b Behavior) {
	for _, t := range m.transitions {
		if t.Parent == b {
			t.ResetTrigger()
		}
	}
}

func (m *Machine) addState(b Behavior) {
	if !m.hasState(b) {
		m.states = append(m.states, b)
	}
}

func (m *Machine) hasState(b Behavior) bool {
	for _, s := range m.states {
		if s == b {
			return true
		}
	}
	return false
}
