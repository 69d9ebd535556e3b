package player

import "github.com/lawnchairsociety/gridquest/internal/grid"

// Statistics tracks one player's activity over a game. Like the rest of the
// player it is guarded by the owning session.
type Statistics struct {
	Combats      int `json:"combats"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	Evasions     int `json:"evasions"`
	LifeLost     int `json:"lifeLost"`
	LifeDealt    int `json:"lifeDealt"`
	ItemsPicked  int `json:"itemsPicked"`
	TilesVisited int `json:"tilesVisited"`

	visited map[grid.Position]bool
}

// RecordCombat increments the combat count.
func (s *Statistics) RecordCombat() {
	s.Combats++
}

// RecordWin increments combat wins.
func (s *Statistics) RecordWin() {
	s.Wins++
}

// RecordLoss increments combat losses.
func (s *Statistics) RecordLoss() {
	s.Losses++
}

// RecordEvasion counts a successful escape.
func (s *Statistics) RecordEvasion() {
	s.Evasions++
}

// RecordDamageDealt adds to total life taken from opponents.
func (s *Statistics) RecordDamageDealt(amount int) {
	s.LifeDealt += amount
}

// RecordDamageTaken adds to total life lost.
func (s *Statistics) RecordDamageTaken(amount int) {
	s.LifeLost += amount
}

// RecordPickup counts an item picked up from the board.
func (s *Statistics) RecordPickup() {
	s.ItemsPicked++
}

// RecordVisit marks a tile as visited. Only distinct tiles count.
func (s *Statistics) RecordVisit(p grid.Position) {
	if s.visited == nil {
		s.visited = make(map[grid.Position]bool)
	}
	if !s.visited[p] {
		s.visited[p] = true
		s.TilesVisited++
	}
}

// VisitedTiles lists the distinct tiles visited, in no particular order.
func (s *Statistics) VisitedTiles() []grid.Position {
	out := make([]grid.Position, 0, len(s.visited))
	for p := range s.visited {
		out = append(out, p)
	}
	return out
}
