package world

import "math"

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) DistanceSquared(o Vec3) float64 {
	dx := o.X - v.X
	dy := o.Y - v.Y
	dz := o.Z - v.Z
	return dx*dx + dy*dy + dz*dz
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	return math.Sqrt(v.DistanceSquared(o))
}

// Floored returns the block containing v.
func (v Vec3) Floored() BlockPos {
	return BlockPos{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

type BlockPos struct {
	X int
	Y int
	Z int
}

// Center is the point on the floor of the block, centred horizontally.
func (b BlockPos) Center() Vec3 {
	return Vec3{X: float64(b.X) + 0.5, Y: float64(b.Y), Z: float64(b.Z) + 0.5}
}
