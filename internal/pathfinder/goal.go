package pathfinder

import (
	"math"

	"github.com/Versifine/locus-statemachine/internal/world"
	"github.com/google/uuid"
)

const (
	GoalKindFollow = "follow"
	GoalKindNear   = "near"
)

type Goal interface {
	ID() string
	Kind() string
	// Target reports the current destination. ok is false once the
	// destination no longer exists, e.g. the followed entity left the world.
	Target() (pos world.Vec3, ok bool)
	// IsEnd reports whether pos satisfies the goal.
	IsEnd(pos world.Vec3) bool
}

// GoalFollow keeps the bot within Range blocks of a moving entity. Range is
// measured between floored block positions, so 0 means sharing the entity's
// block.
type GoalFollow struct {
	id     string
	Entity world.EntityRef
	Range  float64
}

func NewGoalFollow(entity world.EntityRef, rangeBlocks float64) *GoalFollow {
	return &GoalFollow{
		id:     uuid.NewString(),
		Entity: entity,
		Range:  math.Max(rangeBlocks, 0),
	}
}

func (g *GoalFollow) ID() string   { return g.id }
func (g *GoalFollow) Kind() string { return GoalKindFollow }

func (g *GoalFollow) Target() (world.Vec3, bool) {
	if g == nil || g.Entity == nil {
		return world.Vec3{}, false
	}
	return g.Entity.Position()
}

func (g *GoalFollow) IsEnd(pos world.Vec3) bool {
	target, ok := g.Target()
	if !ok {
		return false
	}
	return WithinBlockRange(pos, target, g.Range)
}

// GoalNear is satisfied within Range blocks of a fixed position.
type GoalNear struct {
	id    string
	Pos   world.Vec3
	Range float64
}

func NewGoalNear(pos world.Vec3, rangeBlocks float64) *GoalNear {
	return &GoalNear{
		id:    uuid.NewString(),
		Pos:   pos,
		Range: math.Max(rangeBlocks, 0),
	}
}

func (g *GoalNear) ID() string                 { return g.id }
func (g *GoalNear) Kind() string               { return GoalKindNear }
func (g *GoalNear) Target() (world.Vec3, bool) { return g.Pos, g != nil }

func (g *GoalNear) IsEnd(pos world.Vec3) bool {
	return WithinBlockRange(pos, g.Pos, g.Range)
}

// WithinBlockRange compares floored block positions, the way goals decide
// arrival.
func WithinBlockRange(pos, target world.Vec3, r float64) bool {
	a := pos.Floored()
	b := target.Floored()
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return dx*dx+dy*dy+dz*dz <= r*r
}
