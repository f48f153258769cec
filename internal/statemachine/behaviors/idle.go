package behaviors

import "github.com/Versifine/locus-statemachine/internal/statemachine"

const IdleName = "idle"

// Idle does nothing; machines park in it between tasks.
type Idle struct {
	statemachine.Base
}

func NewIdle() *Idle {
	return &Idle{Base: statemachine.NewBase(IdleName)}
}

func (*Idle) OnStateEntered() {}
func (*Idle) OnStateExited()  {}
