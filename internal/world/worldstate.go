package world

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

const EntityTypePlayer int32 = 147

type WorldState struct {
	position   Position
	playerList []Player
	entities   map[int32]*Entity
	mu         sync.RWMutex
}

type Entity struct {
	EntityID int32
	UUID     string
	Type     int32
	Name     string
	X        float64
	Y        float64
	Z        float64
}

func (e Entity) Vec() Vec3 {
	return Vec3{X: e.X, Y: e.Y, Z: e.Z}
}

type Snapshot struct {
	Position   Position
	PlayerList []Player
	Entities   []Entity
}

func (s Snapshot) String() string {
	var entityInfos []string
	self := s.Position.Vec()
	for _, e := range s.Entities {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("Type(%d)", e.Type)
		}
		entityInfos = append(entityInfos, fmt.Sprintf("%s ID:%d (%.1f, %.1f, %.1f) dist:%.1f",
			name, e.EntityID, e.X, e.Y, e.Z, self.DistanceTo(e.Vec())))
	}
	return fmt.Sprintf(
		"Snapshot [Position: (X: %.2f, Y: %.2f, Z: %.2f)] | [Players: %d] | [Entities(%d): [%s]]",
		s.Position.X, s.Position.Y, s.Position.Z,
		len(s.PlayerList),
		len(s.Entities),
		strings.Join(entityInfos, ", "),
	)
}

func (ws *WorldState) GetState() Snapshot {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	entities := make([]Entity, 0, len(ws.entities))
	for _, e := range ws.entities {
		entities = append(entities, *e)
	}
	return Snapshot{
		Position:   ws.position,
		PlayerList: append([]Player(nil), ws.playerList...),
		Entities:   entities,
	}
}

type Position struct {
	X     float64
	Y     float64
	Z     float64
	Yaw   float32
	Pitch float32
}

func (p Position) Vec() Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

func (ws *WorldState) UpdatePosition(pos Position) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.position = pos
}

// SelfPosition reports the bot's own feet position.
func (ws *WorldState) SelfPosition() Vec3 {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.position.Vec()
}

type Player struct {
	Name string
	UUID string
}

func (ws *WorldState) AddPlayer(players []Player) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(players) == 0 {
		return
	}

	existing := make(map[string]int, len(ws.playerList))
	for i, player := range ws.playerList {
		existing[player.UUID] = i
	}

	for _, player := range players {
		if idx, ok := existing[player.UUID]; ok {
			// Keep player list unique by UUID and refresh latest name.
			ws.playerList[idx] = player
			continue
		}
		ws.playerList = append(ws.playerList, player)
		existing[player.UUID] = len(ws.playerList) - 1
	}
}

func (ws *WorldState) RemovePlayer(uuid string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.playerList) == 0 {
		return
	}

	filtered := ws.playerList[:0]
	for _, player := range ws.playerList {
		if player.UUID != uuid {
			filtered = append(filtered, player)
		}
	}
	ws.playerList = filtered
}

func (ws *WorldState) AddEntity(e Entity) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.entities == nil {
		ws.entities = make(map[int32]*Entity)
	}
	ws.entities[e.EntityID] = &e
}

func (ws *WorldState) RemoveEntities(ids []int32) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for _, id := range ids {
		delete(ws.entities, id)
	}
}

func (ws *WorldState) ClearEntities() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.entities) > 0 {
		ws.entities = make(map[int32]*Entity)
	}
}

func (ws *WorldState) UpdateEntityPosition(entityID int32, x, y, z float64) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if e, ok := ws.entities[entityID]; ok {
		e.X = x
		e.Y = y
		e.Z = z
	}
}

// Entity returns a copy of the tracked entity.
func (ws *WorldState) Entity(entityID int32) (Entity, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	e, ok := ws.entities[entityID]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// ClosestEntity returns the nearest entity accepted by filter, or false when
// nothing matches. A nil filter accepts every entity. The filter runs without
// the lock held, so it may read the world state itself.
func (ws *WorldState) ClosestEntity(filter func(Entity) bool) (Entity, bool) {
	ws.mu.RLock()
	self := ws.position.Vec()
	candidates := make([]Entity, 0, len(ws.entities))
	for _, e := range ws.entities {
		candidates = append(candidates, *e)
	}
	ws.mu.RUnlock()

	var (
		best     Entity
		bestDist = math.MaxFloat64
		found    bool
	)
	for _, e := range candidates {
		if filter != nil && !filter(e) {
			continue
		}
		d := self.DistanceSquared(e.Vec())
		if !found || d < bestDist || (d == bestDist && e.EntityID < best.EntityID) {
			best = e
			bestDist = d
			found = true
		}
	}
	return best, found
}
