package statemachine

import "github.com/Versifine/locus-statemachine/internal/world"

// Targets is the record shared by every behavior of one machine. Any
// behavior may read or overwrite any field at any time, and every field may
// be empty. Each kind of target is an independent slot.
type Targets struct {
	Entity   world.EntityRef
	Position *world.Vec3
}
