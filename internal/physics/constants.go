package physics

const (
	CollisionAxisTolerance = 1e-9
	GroundProbeDistance    = 0.001

	PlayerWidth     = 0.6
	PlayerDepth     = 0.6
	PlayerHeight    = 1.8
	PlayerHalfWidth = PlayerWidth / 2.0
	PlayerHalfDepth = PlayerDepth / 2.0
)
