// Package sim runs the follow state machine against an in-memory world: a
// flat floor, the bot, and one player walking in circles who eventually
// logs off. The machine is
//
//	idle -> getClosestEntity -> followEntity -> returnHome -> idle
//
// with getClosestEntity falling back to idle when nobody is in range.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Versifine/locus-statemachine/internal/config"
	"github.com/Versifine/locus-statemachine/internal/debug"
	"github.com/Versifine/locus-statemachine/internal/event"
	"github.com/Versifine/locus-statemachine/internal/metrics"
	"github.com/Versifine/locus-statemachine/internal/pathfinder"
	"github.com/Versifine/locus-statemachine/internal/physics"
	"github.com/Versifine/locus-statemachine/internal/statemachine"
	"github.com/Versifine/locus-statemachine/internal/statemachine/behaviors"
	"github.com/Versifine/locus-statemachine/internal/world"
)

const (
	floorY         = 63
	floorHalfSize  = 24
	playerID       = 100
	playerName     = "Steve"
	playerUUID     = "00000000-0000-0000-0000-000000000100"
	playerRadius   = 8.0
	playerAngular  = 0.02
	sprintFactor   = 1.3
	fallPerTick    = 0.5
	machineName    = "root"
	homeStateName  = "returnHome"
	logEveryNTicks = 20
)

type Sim struct {
	cfg  *config.Config
	base *slog.Logger
	log  *slog.Logger

	world   *world.WorldState
	blocks  *world.GridBlocks
	nav     *pathfinder.Navigator
	bus     *event.Bus
	unsubs  []func()
	metrics *metrics.Metrics

	targets *statemachine.Targets
	players behaviors.EntityFilter
	idle    *behaviors.Idle
	finder  *behaviors.GetClosestEntity
	follow  *behaviors.FollowEntity
	home    *behaviors.MoveTo
	lost    *statemachine.Transition
	machine *statemachine.Machine

	tick        int
	playerAngle float64
	playerGone  bool
	leaveAt     int

	statusMu sync.RWMutex
	status   debug.Status
}

type Option func(*Sim)

// WithLogger sets the root logger; every subsystem gets its own component
// child of it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sim) {
		if l != nil {
			s.base = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sim) { s.metrics = m }
}

func WithBus(bus *event.Bus) Option {
	return func(s *Sim) { s.bus = bus }
}

func New(cfg *config.Config, opts ...Option) (*Sim, error) {
	if cfg == nil {
		return nil, errors.New("sim requires a config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sim{
		cfg:     cfg,
		base:    slog.Default(),
		world:   &world.WorldState{},
		blocks:  world.NewGridBlocks(),
		targets: &statemachine.Targets{},
		leaveAt: cfg.Sim.Ticks * 2 / 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.component("sim")
	if s.bus == nil {
		s.bus = event.NewBus(event.WithLogger(s.component("event")))
	}

	s.blocks.FillFloor(-floorHalfSize, floorHalfSize, -floorHalfSize, floorHalfSize, floorY)
	s.world.UpdatePosition(world.Position{X: 0.5, Y: floorY + 1, Z: 0.5})
	s.nav = pathfinder.NewNavigator(s.blocks,
		pathfinder.WithBus(s.bus),
		pathfinder.WithMetrics(s.metrics),
		pathfinder.WithLogger(s.component("navigator")),
	)

	if err := s.buildMachine(); err != nil {
		return nil, err
	}
	s.subscribe()
	s.spawnPlayer()
	s.refreshStatus()
	return s, nil
}

func (s *Sim) buildMachine() error {
	bopts := []behaviors.Option{behaviors.WithLogger(s.component("behavior"))}
	s.players = behaviors.AllOf(behaviors.PlayersOnly(), behaviors.WithinRange(s.world, s.cfg.Follow.MaxRange))
	s.idle = behaviors.NewIdle()
	s.finder = behaviors.NewGetClosestEntity(s.world, s.targets, s.players, bopts...)
	s.follow = behaviors.NewFollowEntity(s.world, s.nav, s.targets, movementsFromConfig(s.cfg.Movements), bopts...)
	s.follow.FollowDistance = s.cfg.Follow.Distance
	s.home = behaviors.NewMoveTo(s.world, s.nav, s.targets, movementsFromConfig(s.cfg.Movements), bopts...)
	s.home.SetName(homeStateName)
	s.home.SetMoveTarget(s.world.SelfPosition())

	s.lost = &statemachine.Transition{
		Name:   "target_lost",
		Parent: s.follow,
		Child:  s.home,
		ShouldTransition: func() bool {
			_, ok := s.targetPosition()
			return !ok
		},
		OnTransition: func() { s.targets.Entity = nil },
	}
	transitions := []*statemachine.Transition{
		{
			Name:             "player_nearby",
			Parent:           s.idle,
			Child:            s.finder,
			ShouldTransition: s.playerNearby,
		},
		{
			Name:             "player_found",
			Parent:           s.finder,
			Child:            s.follow,
			ShouldTransition: s.finder.Found,
		},
		{
			Name:             "player_missing",
			Parent:           s.finder,
			Child:            s.idle,
			ShouldTransition: func() bool { return !s.finder.Found() },
		},
		s.lost,
		{
			Name:             "arrived_home",
			Parent:           s.home,
			Child:            s.idle,
			ShouldTransition: s.home.IsFinished,
		},
	}

	m, err := statemachine.NewMachine(machineName, s.idle, transitions,
		statemachine.WithBus(s.bus),
		statemachine.WithMetrics(s.metrics),
		statemachine.WithLogger(s.component("statemachine")),
	)
	if err != nil {
		return err
	}
	s.machine = m
	return nil
}

func (s *Sim) subscribe() {
	s.unsubs = append(s.unsubs, s.bus.Subscribe(event.EventEntityLeave, func(raw any) {
		evt, ok := raw.(event.EntityEvent)
		if !ok {
			return
		}
		if s.targets.Entity != nil && s.targets.Entity.EntityID() == evt.EntityID {
			s.lost.Trigger()
		}
	}))
	s.unsubs = append(s.unsubs, s.bus.Subscribe(event.EventGoalReached, func(raw any) {
		if evt, ok := raw.(event.GoalEvent); ok {
			s.log.Debug("Goal reached", "goal", evt.GoalID, "kind", evt.Kind)
		}
	}))
	s.unsubs = append(s.unsubs, s.bus.Subscribe(event.EventGoalFailed, func(raw any) {
		if evt, ok := raw.(event.GoalEvent); ok {
			s.log.Warn("Goal failing repeatedly", "goal", evt.GoalID, "error", evt.Err)
		}
	}))
}

// Run starts the machine and steps it once per configured tick until the
// tick budget is spent or ctx is cancelled. A Sim runs once: on return it
// has left the bus and dropped its entities.
func (s *Sim) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.cfg.Sim.TickMs) * time.Millisecond)
	defer ticker.Stop()

	s.machine.Start()
	defer s.shutdown()

	for s.tick < s.cfg.Sim.Ticks {
		select {
		case <-ctx.Done():
			s.log.Info("Simulation interrupted", "tick", s.tick)
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
	s.log.Info("Simulation finished", "ticks", s.tick, "state", s.machine.ActiveState().Name())
	return nil
}

// shutdown stops the machine, detaches from the bus and drops every tracked
// entity so the final status carries no stale target.
func (s *Sim) shutdown() {
	s.machine.Stop()
	for _, unsubscribe := range s.unsubs {
		unsubscribe()
	}
	s.unsubs = nil
	s.targets.Entity = nil
	s.world.ClearEntities()
	s.refreshStatus()
}

// Step advances the world, the machine and the navigator by one tick.
func (s *Sim) Step() {
	if !s.machine.Active() {
		s.machine.Start()
	}
	s.tick++
	s.movePlayer()
	s.machine.Update()

	self := s.world.SelfPosition()
	step, err := s.nav.Tick(self)
	if err != nil {
		s.log.Debug("Navigation step failed", "tick", s.tick, "error", err)
	}
	s.moveSelf(step)

	distance := s.follow.DistanceToTarget()
	s.metrics.SetTargetDistance(distance)
	if s.tick%logEveryNTicks == 0 {
		s.log.Info("Tick", "tick", s.tick, "state", s.machine.ActiveState().Name(), "distance", round2(distance))
		s.log.Debug("World", "tick", s.tick, "snapshot", s.world.GetState().String())
	}
	s.refreshStatus()
}

func (s *Sim) Status() debug.Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Sim) Machine() *statemachine.Machine { return s.machine }

func (s *Sim) Follow() *behaviors.FollowEntity { return s.follow }

func (s *Sim) refreshStatus() {
	st := debug.Status{
		Tick:     s.tick,
		Machine:  s.machine.Name(),
		Distance: s.follow.DistanceToTarget(),
	}
	if active := s.machine.ActiveState(); active != nil {
		st.State = active.Name()
	}
	if e := s.targets.Entity; e != nil {
		id := e.EntityID()
		st.TargetEntity = &id
	}
	nav := s.nav.Status()
	st.GoalID = nav.GoalID
	st.GoalKind = nav.GoalKind
	st.Dynamic = nav.Dynamic
	st.PathLen = nav.PathLen

	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}

func (s *Sim) component(name string) *slog.Logger {
	return s.base.With("component", name)
}

func (s *Sim) playerNearby() bool {
	_, ok := s.world.ClosestEntity(s.players)
	return ok
}

func (s *Sim) targetPosition() (world.Vec3, bool) {
	if s.targets.Entity == nil {
		return world.Vec3{}, false
	}
	return s.targets.Entity.Position()
}

func (s *Sim) spawnPlayer() {
	s.world.AddPlayer([]world.Player{{Name: playerName, UUID: playerUUID}})
	pos := playerPosition(s.playerAngle)
	s.world.AddEntity(world.Entity{
		EntityID: playerID,
		Type:     world.EntityTypePlayer,
		UUID:     playerUUID,
		Name:     playerName,
		X:        pos.X,
		Y:        pos.Y,
		Z:        pos.Z,
	})
	s.bus.Publish(event.EventEntityAppear, event.EntityEvent{EntityID: playerID, Name: playerName, Type: world.EntityTypePlayer})
}

func (s *Sim) movePlayer() {
	if s.playerGone {
		return
	}
	if s.tick >= s.leaveAt {
		s.playerGone = true
		s.world.RemoveEntities([]int32{playerID})
		s.world.RemovePlayer(playerUUID)
		s.log.Info("Player left", "tick", s.tick, "entity", playerID)
		s.bus.Publish(event.EventEntityLeave, event.EntityEvent{EntityID: playerID, Name: playerName, Type: world.EntityTypePlayer})
		return
	}
	s.playerAngle += playerAngular
	pos := playerPosition(s.playerAngle)
	s.world.UpdateEntityPosition(playerID, pos.X, pos.Y, pos.Z)
}

// moveSelf steers the bot toward the navigator's waypoint, clipped against
// the blocks, and turns it to face the follow target. Without a waypoint the
// bot only falls until it lands.
func (s *Sim) moveSelf(step pathfinder.Step) {
	pose := s.world.GetState().Position
	self := pose.Vec()
	next := self
	switch {
	case step.Moving:
		speed := s.cfg.Sim.Speed
		if step.Sprint {
			speed *= sprintFactor
		}
		var clipped bool
		next, clipped = physics.Move(self, moveToward(self, step.Waypoint, speed).Sub(self), s.blocks)
		if clipped {
			s.log.Debug("Movement clipped", "tick", s.tick, "from", self, "to", next)
		}
	case !physics.OnGround(self, s.blocks):
		next, _ = physics.Move(self, world.Vec3{Y: -fallPerTick}, s.blocks)
	}

	eye := world.Vec3{Y: world.EyeHeight}
	if target, ok := s.targetPosition(); ok {
		pose.Yaw, pose.Pitch = world.LookAt(next.Add(eye), target.Add(eye))
	} else if step.Moving {
		pose.Yaw, _ = world.LookAt(next, step.Waypoint)
		pose.Pitch = 0
	}
	pose.X, pose.Y, pose.Z = next.X, next.Y, next.Z
	s.world.UpdatePosition(pose)
}

// moveToward walks horizontally toward waypoint, snapping onto it when it
// is within reach, and takes the waypoint's height.
func moveToward(self, waypoint world.Vec3, speed float64) world.Vec3 {
	delta := waypoint.Sub(self)
	delta.Y = 0
	dist := delta.Length()
	if dist <= speed {
		return waypoint
	}
	next := self.Add(delta.Scale(speed / dist))
	next.Y = waypoint.Y
	return next
}

func playerPosition(angle float64) world.Vec3 {
	return world.Vec3{
		X: playerRadius * math.Cos(angle),
		Y: floorY + 1,
		Z: playerRadius * math.Sin(angle),
	}
}

func movementsFromConfig(mc config.MovementsConfig) pathfinder.Movements {
	m := pathfinder.DefaultMovements()
	if mc.AllowSprinting != nil {
		m.AllowSprinting = *mc.AllowSprinting
	}
	if mc.CanJumpUp != nil {
		m.CanJumpUp = *mc.CanJumpUp
	}
	if mc.MaxDropDown != nil {
		m.MaxDropDown = *mc.MaxDropDown
	}
	if mc.MaxSearchDist > 0 {
		m.MaxSearchDist = mc.MaxSearchDist
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
