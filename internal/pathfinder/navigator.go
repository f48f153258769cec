package pathfinder

import (
	"log/slog"
	"math"
	"sync"

	"github.com/Versifine/locus-statemachine/internal/event"
	"github.com/Versifine/locus-statemachine/internal/metrics"
	"github.com/Versifine/locus-statemachine/internal/world"
)

const (
	stuckTicks         = 10
	replanCooldown     = 6
	partialStallLimit  = 3
	waypointReach      = 0.35
	movedThreshold     = 0.08
	failedPlanAttempts = 3
)

// Step is the steering output of one navigator tick.
type Step struct {
	Waypoint world.Vec3
	Moving   bool
	Sprint   bool
	Arrived  bool
}

type Status struct {
	GoalID   string
	GoalKind string
	Dynamic  bool
	PathLen  int
	Waypoint int
}

// Navigator implements Adapter with A* over BlockAccess. Commands take effect
// immediately; movement happens in Tick, which the owner calls once per game
// tick with the bot's current position.
type Navigator struct {
	mu sync.Mutex

	blocks    BlockAccess
	movements Movements
	goal      Goal
	dynamic   bool

	path          []world.BlockPos
	waypointIdx   int
	lastTarget    world.BlockPos
	hasLastTarget bool
	lastPos       world.Vec3
	hasLastPos    bool
	stuckTicks    int
	cooldown      int
	reached       bool
	failures      int

	hasPartialEnd bool
	partialEnd    world.BlockPos
	partialStalls int

	bus     *event.Bus
	metrics *metrics.Metrics
	log     *slog.Logger
}

type NavigatorOption func(*Navigator)

func WithBus(bus *event.Bus) NavigatorOption {
	return func(n *Navigator) { n.bus = bus }
}

func WithMetrics(m *metrics.Metrics) NavigatorOption {
	return func(n *Navigator) { n.metrics = m }
}

func WithLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		if l != nil {
			n.log = l
		}
	}
}

func NewNavigator(blocks BlockAccess, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		blocks:    blocks,
		movements: DefaultMovements(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Navigator) SetMovements(m Movements) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.movements = m.normalized()
	n.invalidateLocked()
}

func (n *Navigator) SetGoal(goal Goal, dynamic bool) {
	n.mu.Lock()
	prev := n.goal
	if goal == nil {
		n.goal = nil
		n.dynamic = false
		n.invalidateLocked()
		n.mu.Unlock()

		n.metrics.GoalCancelled()
		if prev != nil {
			n.log.Debug("Goal cancelled", "goal", prev.ID(), "kind", prev.Kind())
			n.bus.Publish(event.EventGoalCancelled, event.GoalEvent{GoalID: prev.ID(), Kind: prev.Kind()})
		}
		return
	}

	n.goal = goal
	n.dynamic = dynamic
	n.reached = false
	n.failures = 0
	n.hasLastTarget = false
	n.invalidateLocked()
	n.mu.Unlock()

	if prev != nil {
		n.log.Debug("Goal superseded", "goal", prev.ID(), "by", goal.ID())
	}
	n.metrics.GoalSet(goal.Kind(), dynamic)
	n.log.Debug("Goal set", "goal", goal.ID(), "kind", goal.Kind(), "dynamic", dynamic)
	n.bus.Publish(event.EventGoalSet, event.GoalEvent{GoalID: goal.ID(), Kind: goal.Kind(), Dynamic: dynamic})
}

// Goal returns the active goal, if any.
func (n *Navigator) Goal() (Goal, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goal, n.goal != nil
}

func (n *Navigator) IsMoving() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goal != nil && !n.reached
}

func (n *Navigator) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := Status{
		Dynamic:  n.dynamic,
		PathLen:  len(n.path),
		Waypoint: n.waypointIdx,
	}
	if n.goal != nil {
		st.GoalID = n.goal.ID()
		st.GoalKind = n.goal.Kind()
	}
	return st
}

// Tick advances navigation for one game tick. A goal whose target vanished
// idles until it is replaced or cancelled. Planning failures are returned
// but keep the goal; the caller decides whether to give up.
func (n *Navigator) Tick(self world.Vec3) (Step, error) {
	n.mu.Lock()
	step, evt, err := n.tickLocked(self)
	n.mu.Unlock()

	if evt != nil {
		n.bus.Publish(evt.name, evt.payload)
	}
	return step, err
}

type pendingEvent struct {
	name    string
	payload event.GoalEvent
}

func (n *Navigator) tickLocked(self world.Vec3) (Step, *pendingEvent, error) {
	goal := n.goal
	if goal == nil {
		return Step{}, nil, nil
	}

	target, ok := goal.Target()
	if !ok {
		n.invalidateLocked()
		n.hasLastTarget = false
		return Step{}, nil, nil
	}

	if goal.IsEnd(self) {
		var evt *pendingEvent
		if !n.reached {
			n.reached = true
			n.metrics.GoalReached(goal.Kind())
			evt = &pendingEvent{
				name:    event.EventGoalReached,
				payload: event.GoalEvent{GoalID: goal.ID(), Kind: goal.Kind(), Dynamic: n.dynamic},
			}
		}
		if !n.dynamic {
			n.goal = nil
		}
		n.path = nil
		n.waypointIdx = 0
		return Step{Arrived: true}, evt, nil
	}
	n.reached = false

	targetBlock := target.Floored()
	if n.dynamic && n.hasLastTarget && targetBlock != n.lastTarget {
		n.path = nil
		n.waypointIdx = 0
		n.cooldown = 0
	}
	n.lastTarget = targetBlock
	n.hasLastTarget = true

	if n.cooldown > 0 {
		n.cooldown--
	}
	n.trackProgress(self)

	needReplan := len(n.path) == 0 || n.waypointIdx >= len(n.path) || n.stuckTicks >= stuckTicks
	if !needReplan && !IsWalkable(n.path[n.waypointIdx], n.blocks) {
		needReplan = true
	}

	if needReplan {
		if n.cooldown > 0 {
			return Step{}, nil, nil
		}
		if evt, err := n.replanLocked(self, targetBlock, goal); err != nil {
			return Step{}, evt, err
		}
	}

	n.waypointIdx = n.advanceWaypoint(self)
	if n.waypointIdx >= len(n.path) {
		n.path = nil
		n.waypointIdx = 0
		n.cooldown = 0
		return Step{}, nil, nil
	}

	return Step{
		Waypoint: n.path[n.waypointIdx].Center(),
		Moving:   true,
		Sprint:   n.movements.AllowSprinting,
	}, nil, nil
}

func (n *Navigator) replanLocked(self world.Vec3, targetBlock world.BlockPos, goal Goal) (*pendingEvent, error) {
	n.metrics.Replanned()
	result := FindPath(self.Floored(), targetBlock, n.blocks, n.movements)
	n.cooldown = replanCooldown
	n.stuckTicks = 0

	if len(result.Path) == 0 {
		n.path = nil
		return n.failLocked(goal, ErrNoPath), ErrNoPath
	}
	if !result.Complete && n.recordPartial(result.Path[len(result.Path)-1], targetBlock) {
		n.path = nil
		return n.failLocked(goal, ErrUnreachable), ErrUnreachable
	}
	if result.Complete {
		n.resetPartial()
	}

	n.failures = 0
	n.path = result.Path
	n.waypointIdx = 1
	return nil, nil
}

func (n *Navigator) failLocked(goal Goal, err error) *pendingEvent {
	n.failures++
	n.log.Debug("Path planning failed", "goal", goal.ID(), "attempt", n.failures, "error", err)
	if n.failures != failedPlanAttempts {
		return nil
	}
	return &pendingEvent{
		name:    event.EventGoalFailed,
		payload: event.GoalEvent{GoalID: goal.ID(), Kind: goal.Kind(), Dynamic: n.dynamic, Err: err},
	}
}

func (n *Navigator) trackProgress(self world.Vec3) {
	if !n.hasLastPos {
		n.lastPos = self
		n.hasLastPos = true
		return
	}
	moved := math.Abs(self.X-n.lastPos.X) > movedThreshold || math.Abs(self.Z-n.lastPos.Z) > movedThreshold
	if moved {
		n.stuckTicks = 0
	} else {
		n.stuckTicks++
	}
	n.lastPos = self
}

func (n *Navigator) advanceWaypoint(self world.Vec3) int {
	idx := n.waypointIdx
	for idx < len(n.path) {
		c := n.path[idx].Center()
		dx := c.X - self.X
		dz := c.Z - self.Z
		if dx*dx+dz*dz > waypointReach*waypointReach || math.Abs(c.Y-self.Y) > 0.6 {
			break
		}
		idx++
	}
	return idx
}

// recordPartial reports true once consecutive partial plans stop getting
// closer to the target.
func (n *Navigator) recordPartial(pathEnd, target world.BlockPos) bool {
	if !n.hasPartialEnd {
		n.hasPartialEnd = true
		n.partialEnd = pathEnd
		n.partialStalls = 0
		return false
	}

	prevDist := manhattan(n.partialEnd, target)
	nextDist := manhattan(pathEnd, target)
	if pathEnd == n.partialEnd || nextDist >= prevDist {
		n.partialStalls++
	} else {
		n.partialStalls = 0
	}
	n.partialEnd = pathEnd
	return n.partialStalls >= partialStallLimit
}

func (n *Navigator) resetPartial() {
	n.partialStalls = 0
	n.hasPartialEnd = false
}

func (n *Navigator) invalidateLocked() {
	n.path = nil
	n.waypointIdx = 0
	n.cooldown = 0
	n.stuckTicks = 0
	n.resetPartial()
}

func manhattan(a, b world.BlockPos) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}
