package world

// EntityRef is a handle to an entity owned by the world. Position reports
// false once the entity has left the world; holders must treat that as "no
// entity" instead of a fault.
type EntityRef interface {
	EntityID() int32
	Position() (Vec3, bool)
}

// SameEntity compares two handles by identity. Two nil handles are equal.
func SameEntity(a, b EntityRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.EntityID() == b.EntityID()
}

type entityHandle struct {
	ws *WorldState
	id int32
}

// Ref returns a live handle for entityID. The handle does not keep the entity
// alive: its position is read from the world on every call.
func (ws *WorldState) Ref(entityID int32) EntityRef {
	return entityHandle{ws: ws, id: entityID}
}

func (h entityHandle) EntityID() int32 {
	return h.id
}

func (h entityHandle) Position() (Vec3, bool) {
	if h.ws == nil {
		return Vec3{}, false
	}
	e, ok := h.ws.Entity(h.id)
	if !ok {
		return Vec3{}, false
	}
	return e.Vec(), true
}
