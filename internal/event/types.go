package event

const (
	EventStateEnter    = "state.enter"
	EventStateExit     = "state.exit"
	EventGoalSet       = "goal.set"
	EventGoalCancelled = "goal.cancelled"
	EventGoalReached   = "goal.reached"
	EventGoalFailed    = "goal.failed"
	EventEntityAppear  = "entity.appear"
	EventEntityLeave   = "entity.leave"
)

type StateEvent struct {
	Machine string
	State   string
}

type GoalEvent struct {
	GoalID  string
	Kind    string
	Dynamic bool
	Err     error
}

type EntityEvent struct {
	EntityID int32
	Name     string
	Type     int32
}
