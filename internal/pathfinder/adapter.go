// Package pathfinder defines the contract between behaviors and the path
// planner, and ships Navigator, an A* implementation of that contract over a
// block grid.
package pathfinder

import "errors"

var (
	ErrNoPath      = errors.New("path not found")
	ErrUnreachable = errors.New("target unreachable")
)

// Adapter is the command surface behaviors use to drive movement.
//
// SetGoal(nil, _) cancels the active goal and must be safe to call when no
// goal is active. Setting a goal while another is active supersedes it.
// dynamic marks goals whose destination moves and must be re-evaluated
// continuously instead of planned once.
type Adapter interface {
	SetMovements(m Movements)
	SetGoal(goal Goal, dynamic bool)
}

// BlockAccess is the slice of the world the planner needs.
type BlockAccess interface {
	IsSolid(x, y, z int) bool
}

// Movements configures what the planner may do while moving.
type Movements struct {
	AllowSprinting bool
	CanJumpUp      bool
	// MaxDropDown is the highest ledge, in blocks, the bot will step off.
	MaxDropDown int
	// MaxSearchDist bounds the search box around the start block.
	MaxSearchDist int
}

func DefaultMovements() Movements {
	return Movements{
		AllowSprinting: true,
		CanJumpUp:      true,
		MaxDropDown:    defaultMaxDropDown,
		MaxSearchDist:  defaultMaxSearchDist,
	}
}

func (m Movements) normalized() Movements {
	if m.MaxDropDown < 0 {
		m.MaxDropDown = 0
	}
	if m.MaxSearchDist <= 0 {
		m.MaxSearchDist = defaultMaxSearchDist
	}
	return m
}
