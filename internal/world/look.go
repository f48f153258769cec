package world

import "math"

// EyeHeight is the offset from a player's feet to its eyes.
const EyeHeight = 1.62

// LookAt returns the yaw and pitch, in degrees, that turn a viewer at from
// toward to. Yaw 0 faces +Z and grows clockwise seen from above; positive
// pitch looks down.
func LookAt(from, to Vec3) (float32, float32) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dz := to.Z - from.Z

	yaw := float32(math.Atan2(-dx, dz) * 180.0 / math.Pi)
	horizontal := math.Sqrt(dx*dx + dz*dz)
	pitch := float32(-math.Atan2(dy, horizontal) * 180.0 / math.Pi)
	return NormalizeYaw(yaw), clampPitch(pitch)
}

// NormalizeYaw maps yaw into (-180, 180].
func NormalizeYaw(yaw float32) float32 {
	for yaw <= -180 {
		yaw += 360
	}
	for yaw > 180 {
		yaw -= 360
	}
	return yaw
}

func clampPitch(pitch float32) float32 {
	if pitch < -90 {
		return -90
	}
	if pitch > 90 {
		return 90
	}
	return pitch
}
