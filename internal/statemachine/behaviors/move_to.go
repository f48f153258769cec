package behaviors

import (
	"github.com/Versifine/locus-statemachine/internal/pathfinder"
	"github.com/Versifine/locus-statemachine/internal/statemachine"
	"github.com/Versifine/locus-statemachine/internal/world"
)

const MoveToName = "moveTo"

// MoveTo walks the bot to targets.Position. The destination is fixed, so the
// goal is planned once instead of re-evaluated every tick.
type MoveTo struct {
	statemachine.Base

	// Distance is the arrival radius in blocks.
	Distance float64

	self       SelfLocator
	pathfinder pathfinder.Adapter
	targets    *statemachine.Targets
	movements  pathfinder.Movements
	deps
}

func NewMoveTo(
	self SelfLocator,
	pf pathfinder.Adapter,
	targets *statemachine.Targets,
	movements pathfinder.Movements,
	opts ...Option,
) *MoveTo {
	return &MoveTo{
		Base:       statemachine.NewBase(MoveToName),
		self:       self,
		pathfinder: pf,
		targets:    targets,
		movements:  movements,
		deps:       newDeps(opts),
	}
}

func (m *MoveTo) OnStateEntered() {
	m.startMoving()
}

func (m *MoveTo) OnStateExited() {
	m.stopMoving()
}

// SetMoveTarget records a new destination and restarts movement if active.
func (m *MoveTo) SetMoveTarget(pos world.Vec3) {
	if m.targets.Position != nil && *m.targets.Position == pos {
		return
	}
	m.targets.Position = &pos
	m.Restart()
}

func (m *MoveTo) Restart() {
	if !m.Active() {
		return
	}
	m.stopMoving()
	m.startMoving()
}

// IsFinished reports arrival within Distance blocks of the destination,
// using the same block rounding as the submitted goal.
func (m *MoveTo) IsFinished() bool {
	pos := m.targets.Position
	if pos == nil {
		return false
	}
	return pathfinder.WithinBlockRange(m.self.SelfPosition(), *pos, m.Distance)
}

func (m *MoveTo) DistanceToTarget() float64 {
	pos := m.targets.Position
	if pos == nil {
		return 0
	}
	return m.self.SelfPosition().DistanceTo(*pos)
}

func (m *MoveTo) stopMoving() {
	m.pathfinder.SetGoal(nil, false)
}

func (m *MoveTo) startMoving() {
	pos := m.targets.Position
	if pos == nil {
		return
	}
	goal := pathfinder.NewGoalNear(*pos, m.Distance)
	m.pathfinder.SetMovements(m.movements)
	m.pathfinder.SetGoal(goal, false)
	m.log.Debug("Moving to position", "state", m.Name(), "x", pos.X, "y", pos.Y, "z", pos.Z, "goal", goal.ID())
}
