package pathfinder

import (
	"container/heap"
	"math"

	"github.com/Versifine/locus-statemachine/internal/world"
)

const (
	defaultMaxSearchDist = 64
	defaultMaxDropDown   = 3

	costWalk   = 10
	costJumpUp = 18
	costDrop   = 14
)

type PathResult struct {
	Path []world.BlockPos
	// Complete is false when Path ends at the closest reachable block
	// instead of the requested one.
	Complete bool
}

type planner struct {
	blocks    BlockAccess
	movements Movements
}

// FindPath runs A* from one standing block to another. When to cannot be
// reached, the path to the closest explored block is returned with
// Complete=false.
func FindPath(from, to world.BlockPos, blocks BlockAccess, m Movements) PathResult {
	if blocks == nil {
		return PathResult{}
	}
	p := planner{blocks: blocks, movements: m.normalized()}
	return p.search(from, to)
}

// IsWalkable reports whether a bot can stand with its feet in pos.
func IsWalkable(pos world.BlockPos, blocks BlockAccess) bool {
	if blocks == nil {
		return false
	}
	if blocks.IsSolid(pos.X, pos.Y, pos.Z) || blocks.IsSolid(pos.X, pos.Y+1, pos.Z) {
		return false
	}
	return blocks.IsSolid(pos.X, pos.Y-1, pos.Z)
}

func (p planner) search(from, to world.BlockPos) PathResult {
	start, ok := p.normalize(from)
	if !ok {
		return PathResult{}
	}
	goal, ok := p.normalize(to)
	if !ok {
		goal, ok = p.nearestWalkable(to, start)
		if !ok {
			return PathResult{}
		}
	}
	if start == goal {
		return PathResult{Path: []world.BlockPos{start}, Complete: true}
	}

	open := &nodeQueue{}
	heap.Init(open)
	heap.Push(open, node{Pos: start, G: 0, F: heuristic(start, goal)})

	cameFrom := make(map[world.BlockPos]world.BlockPos)
	gScore := map[world.BlockPos]int{start: 0}
	closed := make(map[world.BlockPos]struct{})

	best := start
	bestH := heuristic(start, goal)

	for open.Len() > 0 {
		current := heap.Pop(open).(node)
		if _, seen := closed[current.Pos]; seen {
			continue
		}
		closed[current.Pos] = struct{}{}

		if current.Pos == goal {
			return PathResult{Path: reconstructPath(cameFrom, start, goal), Complete: true}
		}

		h := heuristic(current.Pos, goal)
		if h < bestH || (h == bestH && gScore[current.Pos] < gScore[best]) {
			best = current.Pos
			bestH = h
		}

		for _, next := range p.neighbors(current.Pos) {
			if !withinRadius(start, next, p.movements.MaxSearchDist) {
				continue
			}
			if _, seen := closed[next]; seen {
				continue
			}

			tentative := gScore[current.Pos] + moveCost(current.Pos, next)
			if prev, known := gScore[next]; known && tentative >= prev {
				continue
			}

			cameFrom[next] = current.Pos
			gScore[next] = tentative
			heap.Push(open, node{Pos: next, G: tentative, F: tentative + heuristic(next, goal)})
		}
	}

	if best == start {
		return PathResult{}
	}
	return PathResult{Path: reconstructPath(cameFrom, start, best), Complete: false}
}

// normalize snaps pos to a nearby standing block: up to two blocks up, or
// down as far as the bot may drop.
func (p planner) normalize(pos world.BlockPos) (world.BlockPos, bool) {
	if IsWalkable(pos, p.blocks) {
		return pos, true
	}
	for dy := 1; dy <= 2; dy++ {
		up := world.BlockPos{X: pos.X, Y: pos.Y + dy, Z: pos.Z}
		if IsWalkable(up, p.blocks) {
			return up, true
		}
	}
	for dy := 1; dy <= p.movements.MaxDropDown; dy++ {
		down := world.BlockPos{X: pos.X, Y: pos.Y - dy, Z: pos.Z}
		if IsWalkable(down, p.blocks) {
			return down, true
		}
	}
	return world.BlockPos{}, false
}

func (p planner) nearestWalkable(target, from world.BlockPos) (world.BlockPos, bool) {
	var best world.BlockPos
	bestDist := math.MaxFloat64
	found := false

	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			for dz := -2; dz <= 2; dz++ {
				candidate := world.BlockPos{X: target.X + dx, Y: target.Y + dy, Z: target.Z + dz}
				if !IsWalkable(candidate, p.blocks) {
					continue
				}
				d := candidate.Center().DistanceSquared(from.Center())
				if !found || d < bestDist {
					best = candidate
					bestDist = d
					found = true
				}
			}
		}
	}
	return best, found
}

func (p planner) neighbors(pos world.BlockPos) []world.BlockPos {
	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	out := make([]world.BlockPos, 0, 4)

	for _, d := range dirs {
		nx := pos.X + d[0]
		nz := pos.Z + d[1]

		flat := world.BlockPos{X: nx, Y: pos.Y, Z: nz}
		if IsWalkable(flat, p.blocks) {
			out = append(out, flat)
			continue
		}

		if p.movements.CanJumpUp {
			up := world.BlockPos{X: nx, Y: pos.Y + 1, Z: nz}
			// Jumping needs headroom above the current block.
			if IsWalkable(up, p.blocks) && !p.blocks.IsSolid(pos.X, pos.Y+2, pos.Z) {
				out = append(out, up)
				continue
			}
		}

		for drop := 1; drop <= p.movements.MaxDropDown; drop++ {
			down := world.BlockPos{X: nx, Y: pos.Y - drop, Z: nz}
			if !IsWalkable(down, p.blocks) {
				continue
			}
			if p.columnClear(nx, pos.Y, down.Y, nz) {
				out = append(out, down)
				break
			}
		}
	}

	return out
}

func (p planner) columnClear(x, fromY, toY, z int) bool {
	for y := fromY; y >= toY+1; y-- {
		if p.blocks.IsSolid(x, y, z) {
			return false
		}
	}
	return true
}

func withinRadius(origin, pos world.BlockPos, maxDist int) bool {
	dx := abs(pos.X - origin.X)
	dy := abs(pos.Y - origin.Y)
	dz := abs(pos.Z - origin.Z)
	return max(dx, dy, dz) <= maxDist
}

func reconstructPath(cameFrom map[world.BlockPos]world.BlockPos, start, goal world.BlockPos) []world.BlockPos {
	path := []world.BlockPos{goal}
	for cur := goal; cur != start; {
		prev, ok := cameFrom[cur]
		if !ok {
			return nil
		}
		path = append(path, prev)
		cur = prev
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func heuristic(a, b world.BlockPos) int {
	return (abs(a.X-b.X)+abs(a.Z-b.Z))*costWalk + abs(a.Y-b.Y)*(costDrop-costWalk)
}

func moveCost(a, b world.BlockPos) int {
	switch {
	case b.Y > a.Y:
		return costJumpUp
	case b.Y < a.Y:
		return costDrop
	default:
		return costWalk
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type node struct {
	Pos world.BlockPos
	G   int
	F   int
}

type nodeQueue []node

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].F == q[j].F {
		return q[i].G > q[j].G
	}
	return q[i].F < q[j].F
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(node)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
