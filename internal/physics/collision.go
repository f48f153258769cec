// Package physics moves a player-sized box through a block grid. Movement is
// kinematic: callers decide how far to go each tick and Move clips it against
// solid blocks.
package physics

import (
	"math"

	"github.com/Versifine/locus-statemachine/internal/world"
)

type BlockStore interface {
	IsSolid(x, y, z int) bool
}

type AABB struct {
	MinX float64
	MinY float64
	MinZ float64
	MaxX float64
	MaxY float64
	MaxZ float64
}

func PlayerAABB(pos world.Vec3) AABB {
	return AABB{
		MinX: pos.X - PlayerHalfWidth,
		MinY: pos.Y,
		MinZ: pos.Z - PlayerHalfDepth,
		MaxX: pos.X + PlayerHalfWidth,
		MaxY: pos.Y + PlayerHeight,
		MaxZ: pos.Z + PlayerHalfDepth,
	}
}

func CollidesWithBlock(box AABB, blocks BlockStore) bool {
	if blocks == nil {
		return false
	}
	for y := floorForMin(box.MinY); y <= floorForMax(box.MaxY); y++ {
		for x := floorForMin(box.MinX); x <= floorForMax(box.MaxX); x++ {
			for z := floorForMin(box.MinZ); z <= floorForMax(box.MaxZ); z++ {
				if blocks.IsSolid(x, y, z) && intersects(box, unitBlock(x, y, z)) {
					return true
				}
			}
		}
	}
	return false
}

// OnGround reports whether a solid block sits directly under the feet.
func OnGround(pos world.Vec3, blocks BlockStore) bool {
	probe := PlayerAABB(pos)
	probe.MinY -= GroundProbeDistance
	probe.MaxY -= GroundProbeDistance
	return CollidesWithBlock(probe, blocks)
}

// Move applies delta one axis at a time, Y first, stopping each axis at the
// first solid block. The second result is true when any axis was clipped.
func Move(pos, delta world.Vec3, blocks BlockStore) (world.Vec3, bool) {
	var clipped, c bool
	pos.Y, c = resolveAxis(pos, axisY, delta.Y, blocks)
	clipped = clipped || c
	pos.X, c = resolveAxis(pos, axisX, delta.X, blocks)
	clipped = clipped || c
	pos.Z, c = resolveAxis(pos, axisZ, delta.Z, blocks)
	clipped = clipped || c
	return pos, clipped
}

type axis int

const (
	axisX axis = iota
	axisY
	axisZ
)

// resolveAxis sweeps the box along a by delta and returns the new coordinate
// on that axis.
func resolveAxis(pos world.Vec3, a axis, delta float64, blocks BlockStore) (float64, bool) {
	start := component(pos, a)
	if blocks == nil || nearlyZero(delta) {
		return start + delta, false
	}

	box := PlayerAABB(pos)
	lo, hi := bounds(box, a)
	allowed := delta

	// Cells swept on the moving axis; the other two axes keep the box extent.
	var from, to int
	if delta > 0 {
		from, to = int(math.Floor(hi)), int(math.Floor(hi+delta))
	} else {
		from, to = int(math.Floor(lo+delta)), int(math.Floor(lo-CollisionAxisTolerance))
	}

	minX, maxX := floorForMin(box.MinX), floorForMax(box.MaxX)
	minY, maxY := floorForMin(box.MinY), floorForMax(box.MaxY)
	minZ, maxZ := floorForMin(box.MinZ), floorForMax(box.MaxZ)
	switch a {
	case axisX:
		minX, maxX = from, to
	case axisY:
		minY, maxY = from, to
	case axisZ:
		minZ, maxZ = from, to
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				if !blocks.IsSolid(x, y, z) {
					continue
				}
				cell := float64(pick(a, x, y, z))
				if delta > 0 {
					allowed = math.Min(allowed, cell-hi)
				} else {
					allowed = math.Max(allowed, cell+1-lo)
				}
			}
		}
	}
	return start + allowed, !nearlyEqual(allowed, delta)
}

func component(v world.Vec3, a axis) float64 {
	switch a {
	case axisX:
		return v.X
	case axisY:
		return v.Y
	default:
		return v.Z
	}
}

func bounds(box AABB, a axis) (float64, float64) {
	switch a {
	case axisX:
		return box.MinX, box.MaxX
	case axisY:
		return box.MinY, box.MaxY
	default:
		return box.MinZ, box.MaxZ
	}
}

func pick(a axis, x, y, z int) int {
	switch a {
	case axisX:
		return x
	case axisY:
		return y
	default:
		return z
	}
}

func unitBlock(x, y, z int) AABB {
	return AABB{
		MinX: float64(x), MinY: float64(y), MinZ: float64(z),
		MaxX: float64(x + 1), MaxY: float64(y + 1), MaxZ: float64(z + 1),
	}
}

func floorForMin(v float64) int {
	return int(math.Floor(v + CollisionAxisTolerance))
}

func floorForMax(v float64) int {
	return int(math.Floor(v - CollisionAxisTolerance))
}

func intersects(a, b AABB) bool {
	return a.MinX < b.MaxX &&
		a.MaxX > b.MinX &&
		a.MinY < b.MaxY &&
		a.MaxY > b.MinY &&
		a.MinZ < b.MaxZ &&
		a.MaxZ > b.MinZ
}

func nearlyZero(v float64) bool {
	return math.Abs(v) <= CollisionAxisTolerance
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= CollisionAxisTolerance
}
