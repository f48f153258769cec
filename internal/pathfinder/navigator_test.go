package pathfinder

import (
	"testing"

	"github.com/Versifine/locus-statemachine/internal/event"
	"github.com/Versifine/locus-statemachine/internal/metrics"
	"github.com/Versifine/locus-statemachine/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	names []string
}

func recordEvents(bus *event.Bus, names ...string) *eventLog {
	l := &eventLog{}
	for _, name := range names {
		name := name
		bus.Subscribe(name, func(any) { l.names = append(l.names, name) })
	}
	return l
}

// walk moves self straight toward the step's waypoint, up to speed blocks.
func walk(self world.Vec3, step Step, speed float64) world.Vec3 {
	if !step.Moving {
		return self
	}
	delta := step.Waypoint.Sub(self)
	delta.Y = 0
	dist := delta.Length()
	if dist <= speed {
		return world.Vec3{X: step.Waypoint.X, Y: step.Waypoint.Y, Z: step.Waypoint.Z}
	}
	next := self.Add(delta.Scale(speed / dist))
	next.Y = step.Waypoint.Y
	return next
}

func TestNavigatorReachesStaticGoalAndClearsIt(t *testing.T) {
	bus := event.NewBus()
	events := recordEvents(bus, event.EventGoalSet, event.EventGoalReached)
	nav := NewNavigator(flatGround(-4, 12, -4, 4, 63), WithBus(bus), WithMetrics(metrics.New(prometheus.NewRegistry())))

	nav.SetGoal(NewGoalNear(world.Vec3{X: 8.5, Y: 64, Z: 0.5}, 0), false)

	self := world.Vec3{X: 0.5, Y: 64, Z: 0.5}
	arrived := false
	for i := 0; i < 200 && !arrived; i++ {
		step, err := nav.Tick(self)
		require.NoError(t, err)
		arrived = step.Arrived
		self = walk(self, step, 0.5)
	}

	require.True(t, arrived, "bot never arrived, ended at %+v", self)
	_, hasGoal := nav.Goal()
	assert.False(t, hasGoal, "static goal should be cleared on arrival")
	assert.Equal(t, []string{event.EventGoalSet, event.EventGoalReached}, events.names)
}

func TestNavigatorDynamicGoalFollowsMovingTarget(t *testing.T) {
	ws := &world.WorldState{}
	ws.AddEntity(world.Entity{EntityID: 5, X: 4.5, Y: 64, Z: 0.5})
	nav := NewNavigator(flatGround(-4, 20, -4, 4, 63))

	nav.SetGoal(NewGoalFollow(ws.Ref(5), 1), true)

	self := world.Vec3{X: 0.5, Y: 64, Z: 0.5}
	for i := 0; i < 60; i++ {
		step, err := nav.Tick(self)
		require.NoError(t, err)
		self = walk(self, step, 0.4)
	}
	_, hasGoal := nav.Goal()
	require.True(t, hasGoal, "dynamic goal must survive arrival")
	assert.LessOrEqual(t, self.DistanceTo(world.Vec3{X: 4.5, Y: 64, Z: 0.5}), 1.5)

	ws.UpdateEntityPosition(5, 14.5, 64, 0.5)
	for i := 0; i < 120; i++ {
		step, err := nav.Tick(self)
		require.NoError(t, err)
		self = walk(self, step, 0.4)
	}
	assert.LessOrEqual(t, self.DistanceTo(world.Vec3{X: 14.5, Y: 64, Z: 0.5}), 1.5)
}

func TestNavigatorCancelIsIdempotent(t *testing.T) {
	bus := event.NewBus()
	events := recordEvents(bus, event.EventGoalCancelled)
	nav := NewNavigator(flatGround(-4, 4, -4, 4, 63), WithBus(bus))

	nav.SetGoal(nil, false)
	assert.Empty(t, events.names, "cancel without goal publishes nothing")

	nav.SetGoal(NewGoalNear(world.Vec3{X: 3.5, Y: 64, Z: 0.5}, 0), false)
	nav.SetGoal(nil, false)
	nav.SetGoal(nil, false)
	assert.Equal(t, []string{event.EventGoalCancelled}, events.names)

	step, err := nav.Tick(world.Vec3{X: 0.5, Y: 64, Z: 0.5})
	require.NoError(t, err)
	assert.False(t, step.Moving)
	assert.False(t, nav.IsMoving())
}

func TestNavigatorIdlesWhenEntityRemoved(t *testing.T) {
	ws := &world.WorldState{}
	ws.AddEntity(world.Entity{EntityID: 9, X: 6.5, Y: 64, Z: 0.5})
	nav := NewNavigator(flatGround(-4, 10, -4, 4, 63))
	nav.SetGoal(NewGoalFollow(ws.Ref(9), 0), true)

	self := world.Vec3{X: 0.5, Y: 64, Z: 0.5}
	step, err := nav.Tick(self)
	require.NoError(t, err)
	require.True(t, step.Moving)

	ws.RemoveEntities([]int32{9})
	step, err = nav.Tick(self)
	require.NoError(t, err)
	assert.False(t, step.Moving)
	assert.Zero(t, nav.Status().PathLen)
}

func TestNavigatorReportsUnreachableTarget(t *testing.T) {
	bus := event.NewBus()
	events := recordEvents(bus, event.EventGoalFailed)
	// Two islands separated by a gap the bot cannot cross.
	g := flatGround(-2, 2, -2, 2, 63)
	g.FillFloor(10, 12, -2, 2, 63)
	nav := NewNavigator(g, WithBus(bus))
	nav.SetGoal(NewGoalNear(world.Vec3{X: 11.5, Y: 64, Z: 0.5}, 0), false)

	self := world.Vec3{X: 0.5, Y: 64, Z: 0.5}
	var lastErr error
	for i := 0; i < 200; i++ {
		step, err := nav.Tick(self)
		if err != nil {
			lastErr = err
		}
		self = walk(self, step, 0.5)
	}

	// The first plan reaches the island edge; replanning from there finds nothing.
	require.ErrorIs(t, lastErr, ErrNoPath)
	assert.Equal(t, []string{event.EventGoalFailed}, events.names)
	_, hasGoal := nav.Goal()
	assert.True(t, hasGoal, "planning failures keep the goal")
}

func TestNavigatorSetMovementsNormalizes(t *testing.T) {
	nav := NewNavigator(world.NewGridBlocks())
	nav.SetMovements(Movements{MaxDropDown: -1})
	nav.mu.Lock()
	defer nav.mu.Unlock()
	assert.Equal(t, 0, nav.movements.MaxDropDown)
	assert.Equal(t, defaultMaxSearchDist, nav.movements.MaxSearchDist)
}

func TestRecordPartialDetectsStall(t *testing.T) {
	nav := NewNavigator(world.NewGridBlocks())
	target := world.BlockPos{X: 20}

	assert.False(t, nav.recordPartial(world.BlockPos{X: 5}, target))
	assert.False(t, nav.recordPartial(world.BlockPos{X: 8}, target), "progress resets the stall count")
	assert.False(t, nav.recordPartial(world.BlockPos{X: 8}, target))
	assert.False(t, nav.recordPartial(world.BlockPos{X: 7}, target))
	assert.True(t, nav.recordPartial(world.BlockPos{X: 7}, target))

	nav.resetPartial()
	assert.False(t, nav.recordPartial(world.BlockPos{X: 8}, target))
}
