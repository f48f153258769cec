package world

import "sync"

// GridBlocks is a sparse block store: every position is air unless marked
// solid.
type GridBlocks struct {
	mu     sync.RWMutex
	solids map[BlockPos]struct{}
}

func NewGridBlocks() *GridBlocks {
	return &GridBlocks{solids: make(map[BlockPos]struct{})}
}

func (g *GridBlocks) SetSolid(x, y, z int, solid bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pos := BlockPos{X: x, Y: y, Z: z}
	if solid {
		g.solids[pos] = struct{}{}
		return
	}
	delete(g.solids, pos)
}

// FillFloor makes every block of the rectangle at height y solid.
func (g *GridBlocks) FillFloor(minX, maxX, minZ, maxZ, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for x := minX; x <= maxX; x++ {
		for z := minZ; z <= maxZ; z++ {
			g.solids[BlockPos{X: x, Y: y, Z: z}] = struct{}{}
		}
	}
}

func (g *GridBlocks) IsSolid(x, y, z int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.solids[BlockPos{X: x, Y: y, Z: z}]
	return ok
}
