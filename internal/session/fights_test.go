package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/session"
	"go.uber.org/mock/gomock"
)

// Spawns at 0,0 and 0,1: p0 lands on 0,1 and p1 on 0,0, side by side.
var adjacent = fixtureOptions{layout: []string{"SS.."}}

func startFight(t *testing.T, f *fixture) {
	t.Helper()
	f.startGame(slow, slow)
	f.out.reset()
	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatalf("StartCombat: %v", err)
	}
}

func TestStartCombat(t *testing.T) {
	f := newFixture(t, adjacent)
	startFight(t, f)

	for _, tt := range []struct {
		conn     string
		opponent string
		first    bool
	}{{"p0", "p1", true}, {"p1", "p0", false}} {
		got := f.out.toClient(tt.conn, session.EventCombatStarted)
		if len(got) != 1 {
			t.Fatalf("combatStarted to %s sent %d times", tt.conn, len(got))
		}
		payload := got[0].payload.(session.CombatStartedPayload)
		if payload.Opponent.ID != tt.opponent || payload.StartsFirst != tt.first {
			t.Errorf("combatStarted to %s = %s/%v", tt.conn, payload.Opponent.ID, payload.StartsFirst)
		}
	}
	ev, _ := f.out.last(session.EventCombatTurnStarted)
	if turn := ev.payload.(session.CombatTurnPayload); turn.PlayerID != "p0" || turn.TimeLeft != 5 {
		t.Errorf("combatTurnStarted = %+v", turn)
	}
	f.inspect(func(s *session.Session) {
		if s.Combat == nil || s.Turn.ActionsLeft != 0 {
			t.Errorf("combat = %v, actions left = %d", s.Combat, s.Turn.ActionsLeft)
		}
	})

	if err := f.m.MovePlayer(f.code, "p0", pos(0, 2)); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("moving during combat err = %v", err)
	}
}

func TestStartCombatRequiresAdjacency(t *testing.T) {
	f := newFixture(t, twoStarts)
	f.startGame(slow, slow)

	if err := f.m.StartCombat(f.code, "p0", "avatar1"); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("distant target err = %v", err)
	}
	if err := f.m.StartCombat(f.code, "p0", "avatar0"); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("self target err = %v", err)
	}
	if err := f.m.StartCombat(f.code, "p1", "avatar0"); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("out of turn err = %v", err)
	}
}

func TestCombatTurnShorterWithoutEvasions(t *testing.T) {
	f := newFixture(t, adjacent)
	f.startGame(slow, slow)
	f.mutate("p0", func(p *player.Player) { p.Attributes.Evasion.CurrentValue = 0 })

	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatal(err)
	}
	ev, _ := f.out.last(session.EventCombatTurnStarted)
	if left := ev.payload.(session.CombatTurnPayload).TimeLeft; left != 3 {
		t.Errorf("time left = %d, want 3", left)
	}
}

func TestCombatTimeoutAttacksOnce(t *testing.T) {
	f := newFixture(t, adjacent)
	startFight(t, f)

	f.clock.Advance(4 * time.Second)
	if n := f.out.count(session.EventAttackResult); n != 0 {
		t.Fatalf("attacked before the timeout: %d", n)
	}
	f.clock.Advance(time.Second)
	if n := f.out.count(session.EventAttackResult); n != 1 {
		t.Errorf("attackResult sent %d times, want 1", n)
	}
	if n := f.out.count(session.EventCombatTurnEnded); n != 1 {
		t.Errorf("combatTurnEnded sent %d times, want 1", n)
	}
	if n := f.out.count(session.EventCombatTimeLeft); n != 5 {
		t.Errorf("combatTimeLeft sent %d times, want 5", n)
	}
	ev, _ := f.out.last(session.EventCombatTurnStarted)
	if ev.payload.(session.CombatTurnPayload).PlayerID != "p1" {
		t.Errorf("next sub-turn = %+v", ev.payload)
	}
	res, _ := f.out.last(session.EventAttackResult)
	if res.payload.(session.AttackResultPayload).Success {
		t.Error("equal totals must not hit")
	}
}

func TestCombatActionsAreExclusive(t *testing.T) {
	f := newFixture(t, adjacent)
	startFight(t, f)

	if err := f.m.Attack(f.code, "p1"); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("out of sub-turn attack err = %v", err)
	}
	if err := f.m.Attack(f.code, "p0"); err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if err := f.m.Attack(f.code, "p0"); !errors.Is(err, session.ErrInvalidAction) {
		t.Errorf("second attack err = %v", err)
	}
	if n := f.out.count(session.EventAttackResult); n != 1 {
		t.Errorf("attackResult sent %d times, want 1", n)
	}
}

func TestCombatDefeatRespawnsLoser(t *testing.T) {
	f := newFixture(t, adjacent)
	f.startGame(slow, slow)
	f.m.ToggleDebugMode(f.code, "p0")
	f.mutate("p1", func(p *player.Player) { p.Attributes.Life.CurrentValue = 1 })
	f.out.reset()

	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatal(err)
	}
	if err := f.m.Attack(f.code, "p0"); err != nil {
		t.Fatal(err)
	}

	res, _ := f.out.last(session.EventAttackResult)
	if hit := res.payload.(session.AttackResultPayload); !hit.Success || hit.AttackRoll != 6 || hit.DefenceRoll != 1 {
		t.Errorf("debug attack = %+v", hit)
	}
	if len(f.out.toClient("p1", session.EventDefeated)) != 1 || len(f.out.toClient("p0", session.EventOpponentDefeated)) != 1 {
		t.Error("defeat notices missing")
	}
	ended, _ := f.out.last(session.EventCombatEnded)
	if ended.payload.(session.CombatEndedPayload).Winner != "p0" {
		t.Errorf("combatEnded = %+v", ended.payload)
	}

	loser := f.player("p1")
	if loser.Position != loser.StartPosition {
		t.Errorf("loser at %v, want spawn %v", loser.Position, loser.StartPosition)
	}
	if loser.Attributes.Life.CurrentValue != loser.Attributes.Life.BaseValue {
		t.Error("loser life not restored")
	}
	if f.player("p0").Stats.Wins != 1 || loser.Stats.Losses != 1 {
		t.Error("win and loss not recorded")
	}
	if f.current() != "p0" {
		t.Errorf("winner's turn should resume, current = %s", f.current())
	}
	f.inspect(func(s *session.Session) {
		if s.Combat != nil || s.Phase != session.PhasePlaying {
			t.Errorf("combat = %v phase = %s", s.Combat, s.Phase)
		}
	})
}

func TestTurnOwnerLosingEndsTurn(t *testing.T) {
	f := newFixture(t, adjacent)
	f.startGame(slow, slow)
	f.m.ToggleDebugMode(f.code, "p0")
	f.mutate("p1", func(p *player.Player) { p.Attributes.Speed.BaseValue = 10 })
	f.mutate("p0", func(p *player.Player) { p.Attributes.Life.CurrentValue = 1 })

	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatal(err)
	}
	if got := f.out.toClient("p1", session.EventCombatStarted); !got[0].payload.(session.CombatStartedPayload).StartsFirst {
		t.Fatal("faster defender should strike first")
	}
	if err := f.m.Attack(f.code, "p1"); err != nil {
		t.Fatal(err)
	}
	if f.current() != "p1" {
		t.Errorf("current = %s, want p1", f.current())
	}
}

func TestClassicVictory(t *testing.T) {
	f := newFixture(t, adjacent)
	f.results.EXPECT().RecordResult(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.startGame(slow, slow)
	f.m.ToggleDebugMode(f.code, "p0")
	f.mutate("p0", func(p *player.Player) { p.Stats.Wins = 2 })
	f.mutate("p1", func(p *player.Player) { p.Attributes.Life.CurrentValue = 1 })

	f.m.StartCombat(f.code, "p0", "avatar1")
	f.m.Attack(f.code, "p0")

	ev, ok := f.out.last(session.EventGameEnded)
	if !ok {
		t.Fatal("no gameEnded")
	}
	if got := ev.payload.(session.GameEndedPayload); got.Winner != "p0" || got.WinnerName != "Player0" {
		t.Errorf("gameEnded = %+v", got)
	}
	f.inspect(func(s *session.Session) {
		if s.Phase != session.PhaseEnded {
			t.Errorf("phase = %s", s.Phase)
		}
	})
	f.clock.Advance(time.Minute)
	if n := f.out.count(session.EventTimeLeft); n != 0 {
		t.Errorf("clock ticked after the game ended: %d", n)
	}
}

func TestCTFWinsDoNotEndGame(t *testing.T) {
	opts := adjacent
	opts.mode = session.ModeCTF
	f := newFixture(t, opts)
	f.startGame(slow, slow)
	f.m.ToggleDebugMode(f.code, "p0")
	f.mutate("p0", func(p *player.Player) { p.Stats.Wins = 5 })
	f.mutate("p1", func(p *player.Player) { p.Attributes.Life.CurrentValue = 1 })

	f.m.StartCombat(f.code, "p0", "avatar1")
	f.m.Attack(f.code, "p0")

	if f.out.count(session.EventGameEnded) != 0 {
		t.Error("fights never decide a capture the flag game")
	}
}

func TestEvasionEndsCombat(t *testing.T) {
	f := newFixture(t, adjacent)
	startFight(t, f)
	f.roller.QueueChances(true)

	if err := f.m.Evade(f.code, "p0"); err != nil {
		t.Fatalf("Evade: %v", err)
	}
	res, _ := f.out.last(session.EventEvasionResult)
	if !res.payload.(session.EvasionResultPayload).Success {
		t.Error("evasion should succeed")
	}
	if len(f.out.toClient("p0", session.EventEvasionSuccess)) != 1 || len(f.out.toClient("p1", session.EventOpponentEvaded)) != 1 {
		t.Error("evasion notices missing")
	}
	ended, _ := f.out.last(session.EventCombatEnded)
	if ended.payload.(session.CombatEndedPayload).Winner != "" {
		t.Errorf("evasion has no winner, got %+v", ended.payload)
	}
	if got := f.player("p0").EvasionsLeft(); got != 2 {
		t.Errorf("evasions after combat = %d, want 2", got)
	}
	if f.current() != "p0" {
		t.Errorf("current = %s", f.current())
	}
	tl, _ := f.out.last(session.EventTimeLeft)
	if tl.payload.(session.TimeLeftPayload).TimeLeft != 30 {
		t.Errorf("resumed time left = %+v", tl.payload)
	}
}

func TestCombatResumesRemainingTurnTime(t *testing.T) {
	f := newFixture(t, adjacent)
	f.startGame(slow, slow)
	f.clock.Advance(10 * time.Second)

	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatalf("StartCombat: %v", err)
	}
	// The main clock is frozen while the fight runs.
	f.clock.Advance(2 * time.Second)
	f.out.reset()

	f.roller.QueueChances(true)
	if err := f.m.Evade(f.code, "p0"); err != nil {
		t.Fatalf("Evade: %v", err)
	}
	tl, ok := f.out.last(session.EventTimeLeft)
	if !ok {
		t.Fatal("no timeLeft after combat")
	}
	if got := tl.payload.(session.TimeLeftPayload).TimeLeft; got != 20 {
		t.Errorf("resumed time left = %d, want 20", got)
	}
	if n := f.out.count(session.EventTurnStarted); n != 0 {
		t.Errorf("turn restarted %d times", n)
	}

	f.clock.Advance(time.Second)
	tl, _ = f.out.last(session.EventTimeLeft)
	if got := tl.payload.(session.TimeLeftPayload).TimeLeft; got != 19 {
		t.Errorf("time left after a tick = %d, want 19", got)
	}
}

func TestFailedEvasionPassesSubTurn(t *testing.T) {
	f := newFixture(t, adjacent)
	startFight(t, f)

	if err := f.m.Evade(f.code, "p0"); err != nil {
		t.Fatal(err)
	}
	if got := f.player("p0").EvasionsLeft(); got != 1 {
		t.Errorf("evasions left = %d, want 1", got)
	}
	ev, _ := f.out.last(session.EventCombatTurnStarted)
	if ev.payload.(session.CombatTurnPayload).PlayerID != "p1" {
		t.Errorf("sub-turn = %+v", ev.payload)
	}
}

func TestFighterLeavingAbortsCombat(t *testing.T) {
	f := newFixture(t, fixtureOptions{layout: []string{"SSS."}})
	f.startGame(slow, slow, slow)
	if err := f.m.StartCombat(f.code, "p0", "avatar1"); err != nil {
		t.Fatal(err)
	}
	f.out.reset()

	f.m.LeaveSession(f.code, "p1")
	if f.out.count(session.EventCombatEnded) != 1 {
		t.Error("combat should end when a fighter leaves")
	}
	f.inspect(func(s *session.Session) {
		if s.Combat != nil || s.Turn.CurrentID != "p0" {
			t.Errorf("combat = %v, current = %s", s.Combat, s.Turn.CurrentID)
		}
	})
	f.clock.Advance(time.Second)
	if n := f.out.count(session.EventTimeLeft); n < 1 {
		t.Error("p0's turn clock should resume")
	}
}
