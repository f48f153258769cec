package behaviors

import (
	"github.com/Versifine/locus-statemachine/internal/statemachine"
	"github.com/Versifine/locus-statemachine/internal/world"
)

const GetClosestEntityName = "getClosestEntity"

type EntityFilter func(world.Entity) bool

// EntitySource is the part of the world GetClosestEntity searches.
type EntitySource interface {
	ClosestEntity(filter func(world.Entity) bool) (world.Entity, bool)
	Ref(entityID int32) world.EntityRef
}

// GetClosestEntity stores the nearest entity accepted by its filter in
// targets.Entity when entered, or clears the slot when nothing matches.
type GetClosestEntity struct {
	statemachine.Base

	source  EntitySource
	targets *statemachine.Targets
	filter  EntityFilter
	deps
}

func NewGetClosestEntity(source EntitySource, targets *statemachine.Targets, filter EntityFilter, opts ...Option) *GetClosestEntity {
	return &GetClosestEntity{
		Base:    statemachine.NewBase(GetClosestEntityName),
		source:  source,
		targets: targets,
		filter:  filter,
		deps:    newDeps(opts),
	}
}

func (g *GetClosestEntity) OnStateEntered() {
	e, ok := g.source.ClosestEntity(g.filter)
	if !ok {
		g.targets.Entity = nil
		g.log.Debug("No matching entity nearby", "state", g.Name())
		return
	}
	g.targets.Entity = g.source.Ref(e.EntityID)
	g.log.Debug("Closest entity selected", "state", g.Name(), "entity", e.EntityID, "name", e.Name)
}

func (g *GetClosestEntity) OnStateExited() {}

// Found reports whether the last search assigned a target.
func (g *GetClosestEntity) Found() bool {
	return g.targets.Entity != nil
}

func PlayersOnly() EntityFilter {
	return func(e world.Entity) bool { return e.Type == world.EntityTypePlayer }
}

func WithinRange(self SelfLocator, maxDist float64) EntityFilter {
	return func(e world.Entity) bool {
		return self.SelfPosition().DistanceSquared(e.Vec()) <= maxDist*maxDist
	}
}

// AllOf accepts an entity only when every filter does.
func AllOf(filters ...EntityFilter) EntityFilter {
	return func(e world.Entity) bool {
		for _, f := range filters {
			if f != nil && !f(e) {
				return false
			}
		}
		return true
	}
}
