package behaviors

import (
	"github.com/Versifine/locus-statemachine/internal/pathfinder"
	"github.com/Versifine/locus-statemachine/internal/statemachine"
	"github.com/Versifine/locus-statemachine/internal/world"
)

const FollowEntityName = "followEntity"

// FollowEntity keeps the bot moving toward targets.Entity for as long as the
// state is active.
type FollowEntity struct {
	statemachine.Base

	// FollowDistance is how close, in blocks, the bot tries to stay. Zero
	// means standing on the target's block.
	FollowDistance float64

	self       SelfLocator
	pathfinder pathfinder.Adapter
	targets    *statemachine.Targets
	movements  pathfinder.Movements
	deps
}

// NewFollowEntity builds the behavior around the machine's shared targets.
// pf must be non-nil; a missing pathfinder is a wiring fault of the caller.
func NewFollowEntity(
	self SelfLocator,
	pf pathfinder.Adapter,
	targets *statemachine.Targets,
	movements pathfinder.Movements,
	opts ...Option,
) *FollowEntity {
	return &FollowEntity{
		Base:       statemachine.NewBase(FollowEntityName),
		self:       self,
		pathfinder: pf,
		targets:    targets,
		movements:  movements,
		deps:       newDeps(opts),
	}
}

func (f *FollowEntity) OnStateEntered() {
	f.startMoving()
}

func (f *FollowEntity) OnStateExited() {
	f.stopMoving()
}

// SetFollowTarget replaces the entity to follow. Assigning the entity that
// is already the target does nothing. When the state is active the running
// goal is cancelled and a new one submitted before this returns; otherwise
// the target is only recorded and picked up on the next activation.
func (f *FollowEntity) SetFollowTarget(entity world.EntityRef) {
	if world.SameEntity(f.targets.Entity, entity) {
		return
	}
	f.targets.Entity = entity
	f.Restart()
}

// Restart cancels the current goal and starts a new one toward the current
// target. It does nothing while the state is inactive.
func (f *FollowEntity) Restart() {
	if !f.Active() {
		return
	}
	f.stopMoving()
	f.startMoving()
}

// DistanceToTarget returns the distance between the bot and the target, or
// 0 when there is no target or it has left the world.
func (f *FollowEntity) DistanceToTarget() float64 {
	pos, ok := livePosition(f.targets.Entity)
	if !ok {
		return 0
	}
	return f.self.SelfPosition().DistanceTo(pos)
}

func (f *FollowEntity) stopMoving() {
	f.pathfinder.SetGoal(nil, false)
}

func (f *FollowEntity) startMoving() {
	entity := f.targets.Entity
	if entity == nil {
		return
	}
	if _, ok := livePosition(entity); !ok {
		f.log.Debug("Follow target is gone, staying idle", "state", f.Name(), "entity", entity.EntityID())
		return
	}

	goal := pathfinder.NewGoalFollow(entity, f.FollowDistance)
	f.pathfinder.SetMovements(f.movements)
	f.pathfinder.SetGoal(goal, true)
	f.log.Debug("Following entity", "state", f.Name(), "entity", entity.EntityID(),
		"distance", f.FollowDistance, "goal", goal.ID())
}
