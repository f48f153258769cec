package sim

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Versifine/locus-statemachine/internal/config"
	"github.com/Versifine/locus-statemachine/internal/event"
	"github.com/Versifine/locus-statemachine/internal/metrics"
	"github.com/Versifine/locus-statemachine/internal/pathfinder"
	"github.com/Versifine/locus-statemachine/internal/statemachine/behaviors"
	"github.com/Versifine/locus-statemachine/internal/world"
)

func shortConfig(ticks int) *config.Config {
	cfg := config.Default()
	cfg.Sim.Ticks = ticks
	cfg.Sim.TickMs = 1
	return cfg
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	cfg := config.Default()
	cfg.Follow.Distance = -1
	_, err = New(cfg)
	require.Error(t, err)
}

func TestStepFindsAndFollowsPlayer(t *testing.T) {
	s, err := New(shortConfig(30))
	require.NoError(t, err)

	s.Step()
	assert.Equal(t, behaviors.GetClosestEntityName, s.Machine().ActiveState().Name())

	s.Step()
	assert.Equal(t, behaviors.FollowEntityName, s.Machine().ActiveState().Name())

	st := s.Status()
	require.NotNil(t, st.TargetEntity)
	assert.Equal(t, int32(playerID), *st.TargetEntity)
	assert.Equal(t, "follow", st.GoalKind)
	assert.True(t, st.Dynamic)
	assert.NotEmpty(t, st.GoalID)
}

func TestFollowClosesDistance(t *testing.T) {
	s, err := New(shortConfig(30))
	require.NoError(t, err)

	s.Step()
	s.Step()
	start := s.Follow().DistanceToTarget()
	require.Greater(t, start, 0.0)

	for s.tick < s.leaveAt-1 {
		s.Step()
	}
	assert.Less(t, s.Follow().DistanceToTarget(), start)
}

func TestBotFacesFollowTarget(t *testing.T) {
	s, err := New(shortConfig(30))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		s.Step()
	}

	pose := s.world.GetState().Position
	player, ok := s.world.Entity(playerID)
	require.True(t, ok)
	eye := world.Vec3{Y: world.EyeHeight}
	wantYaw, wantPitch := world.LookAt(pose.Vec().Add(eye), player.Vec().Add(eye))
	assert.InDelta(t, wantYaw, pose.Yaw, 1e-3)
	assert.InDelta(t, wantPitch, pose.Pitch, 1e-3)
}

func TestPlayerLeavingSendsBotHome(t *testing.T) {
	bus := event.NewBus()
	var left []int32
	bus.Subscribe(event.EventEntityLeave, func(raw any) {
		if evt, ok := raw.(event.EntityEvent); ok {
			left = append(left, evt.EntityID)
		}
	})

	s, err := New(shortConfig(30), WithBus(bus))
	require.NoError(t, err)
	home := s.world.SelfPosition()

	for s.tick < s.leaveAt {
		s.Step()
	}
	assert.Equal(t, []int32{playerID}, left)
	assert.Empty(t, s.world.GetState().PlayerList)
	assert.Equal(t, homeStateName, s.Machine().ActiveState().Name())

	st := s.Status()
	assert.Nil(t, st.TargetEntity)
	assert.Zero(t, st.Distance)
	assert.Equal(t, "near", st.GoalKind)
	assert.False(t, st.Dynamic)

	for i := 0; i < 300 && s.Machine().ActiveState().Name() != behaviors.IdleName; i++ {
		s.Step()
	}
	assert.Equal(t, behaviors.IdleName, s.Machine().ActiveState().Name())
	assert.Equal(t, home.Floored(), s.world.SelfPosition().Floored())
	assert.Empty(t, s.Status().GoalID)

	s.Step()
	assert.Equal(t, behaviors.IdleName, s.Machine().ActiveState().Name())
}

func TestRunStopsAfterTickBudget(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := New(shortConfig(5), WithMetrics(metrics.New(reg)))
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 5, s.Status().Tick)
	assert.False(t, s.Machine().Active())

	n, err := testutil.GatherAndCount(reg, "locus_state_transitions_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestRunClearsEntitiesOnExit(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	bus := event.NewBus()
	s, err := New(shortConfig(10), WithBus(bus), WithLogger(l))
	require.NoError(t, err)
	s.leaveAt = 1000

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, s.world.GetState().Entities)
	assert.Nil(t, s.targets.Entity)
	st := s.Status()
	assert.Nil(t, st.TargetEntity)
	assert.Empty(t, st.State)
	assert.Empty(t, st.GoalID)

	bus.Publish(event.EventGoalFailed, event.GoalEvent{GoalID: "after-run"})
	assert.NotContains(t, buf.String(), "after-run")
}

func TestTickLogsWorldSnapshot(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := New(shortConfig(30), WithLogger(l))
	require.NoError(t, err)
	s.leaveAt = 1000

	for i := 0; i < logEveryNTicks; i++ {
		s.Step()
	}
	assert.Contains(t, buf.String(), "Snapshot [Position:")
	assert.Contains(t, buf.String(), "Steve ID:100")
}

func TestRunHonoursCancelledContext(t *testing.T) {
	s, err := New(shortConfig(1000))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Less(t, s.Status().Tick, 1000)
}

func TestMoveToward(t *testing.T) {
	tests := []struct {
		name  string
		self  world.Vec3
		point world.Vec3
		speed float64
		want  world.Vec3
	}{
		{"snap when close", world.Vec3{X: 0, Y: 64}, world.Vec3{X: 0.1, Y: 64}, 0.2, world.Vec3{X: 0.1, Y: 64}},
		{"step along x", world.Vec3{X: 0, Y: 64}, world.Vec3{X: 2, Y: 64}, 0.5, world.Vec3{X: 0.5, Y: 64}},
		{"climb to waypoint height", world.Vec3{X: 0, Y: 64}, world.Vec3{Z: 3, Y: 65}, 1, world.Vec3{Z: 1, Y: 65}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := moveToward(tt.self, tt.point, tt.speed)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
		})
	}
}

func TestMovementsFromConfig(t *testing.T) {
	off := false
	one := 1
	m := movementsFromConfig(config.MovementsConfig{AllowSprinting: &off, MaxDropDown: &one})
	want := pathfinder.DefaultMovements()
	want.AllowSprinting = false
	want.MaxDropDown = 1
	assert.Equal(t, want, m)

	assert.Equal(t, pathfinder.DefaultMovements(), movementsFromConfig(config.MovementsConfig{}))
}

func TestZeroDropDownIsKept(t *testing.T) {
	zero := 0
	m := movementsFromConfig(config.MovementsConfig{MaxDropDown: &zero})
	assert.Equal(t, 0, m.MaxDropDown)

	cfg := shortConfig(5)
	cfg.Movements.MaxDropDown = &zero
	s, err := New(cfg)
	require.NoError(t, err)
	s.Step()
	s.Step()
	assert.Equal(t, behaviors.FollowEntityName, s.Machine().ActiveState().Name())
}
