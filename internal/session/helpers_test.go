package session_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/gametime"
	"github.com/lawnchairsociety/gridquest/internal/grid"
	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/session"
	"github.com/lawnchairsociety/gridquest/internal/session/mocks"
	"github.com/lawnchairsociety/gridquest/internal/stats"
	"go.uber.org/mock/gomock"
)

const testGame = "arena"

var (
	fast = stats.CreationChoice{Bonus: stats.Speed, Dice: stats.Attack}
	slow = stats.CreationChoice{Bonus: stats.Life, Dice: stats.Attack}
)

type sent struct {
	room    int
	conn    string
	event   string
	payload any
}

// recorder is a Broadcaster that keeps everything it is asked to send.
type recorder struct {
	mu     sync.Mutex
	events []sent
	rooms  map[int]map[string]bool
	closed []int
}

func newRecorder() *recorder {
	return &recorder{rooms: make(map[int]map[string]bool)}
}

func (r *recorder) Join(code int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[code] == nil {
		r.rooms[code] = make(map[string]bool)
	}
	r.rooms[code][connID] = true
}

func (r *recorder) Leave(code int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms[code], connID)
}

func (r *recorder) ToRoom(code int, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{room: code, event: event, payload: payload})
}

func (r *recorder) ToClient(connID string, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{conn: connID, event: event, payload: payload})
}

func (r *recorder) CloseRoom(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, code)
	delete(r.rooms, code)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// names lists event names in send order.
func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

func (r *recorder) count(event string) int {
	return len(r.find(event))
}

func (r *recorder) find(event string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) last(event string) (sent, bool) {
	found := r.find(event)
	if len(found) == 0 {
		return sent{}, false
	}
	return found[len(found)-1], true
}

// toClient returns the events sent directly to connID.
func (r *recorder) toClient(connID, event string) []sent {
	var out []sent
	for _, e := range r.find(event) {
		if e.conn == connID {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	t       *testing.T
	m       *session.Manager
	out     *recorder
	clock   *gametime.ManualClock
	roller  *stats.ScriptedRoller
	results *mocks.MockResultRecorder
	code    int
}

type fixtureOptions struct {
	layout     []string
	placements []grid.ItemPlacement
	mode       session.Mode
	names      session.NameValidator
	cfg        func(*config.GameConfig)
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	g, err := grid.ParseLayout(opts.layout, opts.placements)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	mode := opts.mode
	if mode == "" {
		mode = session.ModeClassic
	}

	games := mocks.NewMockGameStore(ctrl)
	games.EXPECT().GetGame(gomock.Any(), testGame).
		Return(&session.Game{ID: testGame, Name: "Arena", Mode: mode, Grid: g}, nil).AnyTimes()
	games.EXPECT().GetGame(gomock.Any(), gomock.Not(testGame)).
		DoAndReturn(func(_ any, id string) (*session.Game, error) {
			return nil, fmt.Errorf("game %q: %w", id, session.ErrNotFound)
		}).AnyTimes()

	cfg := config.DefaultGameConfig()
	if opts.cfg != nil {
		opts.cfg(&cfg)
	}

	f := &fixture{
		t:       t,
		out:     newRecorder(),
		clock:   gametime.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		roller:  &stats.ScriptedRoller{},
		results: mocks.NewMockResultRecorder(ctrl),
	}
	f.m = session.NewManager(cfg, session.Deps{
		Broadcaster: f.out,
		Games:       games,
		Results:     f.results,
		Names:       opts.names,
		Clock:       f.clock,
		Roller:      f.roller,
	})
	return f
}

func (f *fixture) create(organizer string, maxPlayers int) int {
	f.t.Helper()
	code, err := f.m.CreateSession(f.t.Context(), organizer, maxPlayers, testGame, "")
	if err != nil {
		f.t.Fatalf("CreateSession: %v", err)
	}
	f.code = code
	return code
}

func (f *fixture) join(conn string) {
	f.t.Helper()
	if err := f.m.JoinSession(f.code, conn); err != nil {
		f.t.Fatalf("JoinSession(%s): %v", conn, err)
	}
}

func (f *fixture) character(conn, name, avatar string, choice stats.CreationChoice) {
	f.t.Helper()
	err := f.m.CreateCharacter(f.code, conn, session.Character{Name: name, Avatar: avatar, Choice: choice})
	if err != nil {
		f.t.Fatalf("CreateCharacter(%s): %v", conn, err)
	}
}

// startGame seats the given players (the first is the organizer) in a
// session sized for them and starts play.
func (f *fixture) startGame(choices ...stats.CreationChoice) {
	f.t.Helper()
	f.create("p0", len(choices))
	for i, choice := range choices {
		conn := fmt.Sprintf("p%d", i)
		if i > 0 {
			f.join(conn)
		}
		f.character(conn, fmt.Sprintf("Player%d", i), fmt.Sprintf("avatar%d", i), choice)
	}
	if err := f.m.StartGame(f.code, "p0"); err != nil {
		f.t.Fatalf("StartGame: %v", err)
	}
}

func (f *fixture) inspect(fn func(s *session.Session)) {
	f.t.Helper()
	if err := f.m.Inspect(f.code, fn); err != nil {
		f.t.Fatalf("Inspect: %v", err)
	}
}

func (f *fixture) current() string {
	var id string
	f.inspect(func(s *session.Session) { id = s.Turn.CurrentID })
	return id
}

// player returns a snapshot of id taken under the session lock.
func (f *fixture) player(id string) *player.Player {
	var out player.Player
	f.inspect(func(s *session.Session) {
		p, ok := s.Player(id)
		if !ok {
			f.t.Fatalf("no player %s", id)
		}
		out = *p
	})
	return &out
}

func (f *fixture) mutate(id string, fn func(p *player.Player)) {
	f.inspect(func(s *session.Session) {
		p, ok := s.Player(id)
		if !ok {
			f.t.Fatalf("no player %s", id)
		}
		fn(p)
	})
}

// other returns the id of the two-player game's opponent of id.
func other(id string) string {
	if id == "p0" {
		return "p1"
	}
	return "p0"
}

func pos(r, c int) grid.Position { return grid.Position{Row: r, Col: c} }
