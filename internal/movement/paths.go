// Package movement resolves where a player can go and what happens when
// they get there.
package movement

import (
	"container/heap"

	"github.com/lawnchairsociety/gridquest/internal/grid"
)

// StepCost is the movement cost of entering a cell of the given terrain.
func StepCost(t grid.Terrain) int {
	switch t {
	case grid.TerrainIce:
		return 0
	case grid.TerrainWater:
		return 2
	default:
		return 1
	}
}

// Tile is a reachable destination with the cheapest path to it. Path runs
// from the first step to the destination; the origin is not included.
type Tile struct {
	Position grid.Position   `json:"position"`
	Path     []grid.Position `json:"path"`
	Cost     int             `json:"cost"`
}

type pathNode struct {
	pos   grid.Position
	cost  int
	seq   int
	index int
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	node := x.(*pathNode)
	node.index = len(*pq)
	*pq = append(*pq, node)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[:n-1]
	return node
}

// passable reports whether a path may enter p: in bounds, not a wall or
// closed door, not occupied by an avatar.
func passable(g *grid.Grid, p grid.Position) bool {
	cell, ok := g.Cell(p)
	return ok && !cell.IsBlocking() && !cell.IsOccupied
}

// AccessibleTiles runs a cheapest-path search from origin with the given
// movement budget. Equal-cost paths keep the first one discovered, with
// neighbours expanded up, down, left, right. Tiles are returned in the order
// they were settled.
func AccessibleTiles(g *grid.Grid, origin grid.Position, budget int) []Tile {
	if !g.InBounds(origin) || budget < 0 {
		return nil
	}

	best := map[grid.Position]int{origin: 0}
	prev := make(map[grid.Position]grid.Position)
	settled := make(map[grid.Position]bool)
	seq := 0

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{pos: origin})

	var tiles []Tile
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if settled[current.pos] || current.cost != best[current.pos] {
			continue
		}
		settled[current.pos] = true
		if current.pos != origin {
			tiles = append(tiles, Tile{
				Position: current.pos,
				Path:     buildPath(prev, origin, current.pos),
				Cost:     current.cost,
			})
		}

		for _, next := range g.Neighbours(current.pos) {
			if settled[next] || !passable(g, next) {
				continue
			}
			cell, _ := g.Cell(next)
			cost := current.cost + StepCost(cell.Terrain())
			if cost > budget {
				continue
			}
			if known, seen := best[next]; seen && known <= cost {
				continue
			}
			best[next] = cost
			prev[next] = current.pos
			seq++
			heap.Push(open, &pathNode{pos: next, cost: cost, seq: seq})
		}
	}
	return tiles
}

func buildPath(prev map[grid.Position]grid.Position, origin, dest grid.Position) []grid.Position {
	var path []grid.Position
	for at := dest; at != origin; at = prev[at] {
		path = append(path, at)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindTile returns the accessible tile at dest, if any.
func FindTile(tiles []Tile, dest grid.Position) (Tile, bool) {
	for _, t := range tiles {
		if t.Position == dest {
			return t, true
		}
	}
	return Tile{}, false
}

// PathCost sums the step costs of a path.
func PathCost(g *grid.Grid, path []grid.Position) int {
	total := 0
	for _, p := range path {
		if cell, ok := g.Cell(p); ok {
			total += StepCost(cell.Terrain())
		}
	}
	return total
}

// HasLegalAction reports whether a player at origin can still do anything:
// move somewhere, or, with an action left, toggle an adjacent door or engage
// an adjacent avatar.
func HasLegalAction(g *grid.Grid, origin grid.Position, budget, actionsLeft int) bool {
	if len(AccessibleTiles(g, origin, budget)) > 0 {
		return true
	}
	if actionsLeft <= 0 {
		return false
	}
	for _, n := range g.Neighbours(origin) {
		cell, _ := g.Cell(n)
		if cell.IsDoor() && !cell.IsOccupied {
			return true
		}
		if _, ok := cell.Avatar(); ok {
			return true
		}
	}
	return false
}
