package combat

import (
	"errors"
	"testing"

	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/stats"
	"pgregory.net/rapid"
)

func newCombatant(t interface{ Fatal(...any) }, id string, choice stats.CreationChoice) *player.Player {
	attrs, err := stats.NewAttributes(choice)
	if err != nil {
		t.Fatal(err)
	}
	return player.New(id, id, id, attrs)
}

var (
	lifeAttack   = stats.CreationChoice{Bonus: stats.Life, Dice: stats.Attack}
	speedDefence = stats.CreationChoice{Bonus: stats.Speed, Dice: stats.Defence}
)

func TestInitiative(t *testing.T) {
	a := newCombatant(t, "a", lifeAttack)
	b := newCombatant(t, "b", lifeAttack)
	a.Attributes.Speed.BaseValue = 10
	b.Attributes.Speed.BaseValue = 6

	tests := []struct {
		name              string
		initiator, target *player.Player
		wantFirst         string
	}{
		{"faster initiator", a, b, "a"},
		{"faster opponent", b, a, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := Initiative(tt.initiator, tt.target)
			if first.ID != tt.wantFirst || second == first {
				t.Errorf("Initiative = %s,%s, want %s first", first.ID, second.ID, tt.wantFirst)
			}
		})
	}

	b.Attributes.Speed.BaseValue = 10
	if first, _ := Initiative(b, a); first != b {
		t.Error("tie should favour the initiator")
	}
}

func TestAttackSuccessAppliesDamage(t *testing.T) {
	atk := newCombatant(t, "a", lifeAttack)
	def := newCombatant(t, "b", lifeAttack)
	roller := (&stats.ScriptedRoller{}).QueueRolls(5, 2)
	e := NewEngine(roller, 0.4, 1)

	res := e.Attack(atk, def, false)
	want := AttackResult{AttackBase: 4, AttackRoll: 5, DefenceBase: 4, DefenceRoll: 2, Success: true}
	if res != want {
		t.Errorf("Attack = %+v, want %+v", res, want)
	}
	if def.Attributes.Life.CurrentValue != 5 {
		t.Errorf("defender life = %d, want 5", def.Attributes.Life.CurrentValue)
	}
	if atk.Stats.LifeDealt != 1 || def.Stats.LifeLost != 1 {
		t.Errorf("stats dealt=%d lost=%d", atk.Stats.LifeDealt, def.Stats.LifeLost)
	}
}

func TestAttackTieFails(t *testing.T) {
	atk := newCombatant(t, "a", lifeAttack)
	def := newCombatant(t, "b", lifeAttack)
	roller := (&stats.ScriptedRoller{}).QueueRolls(3, 3)

	res := NewEngine(roller, 0.4, 1).Attack(atk, def, false)
	if res.Success {
		t.Error("equal totals must not succeed")
	}
	if def.Attributes.Life.CurrentValue != 6 {
		t.Error("failed attack dealt damage")
	}
}

func TestAttackDebugRolls(t *testing.T) {
	atk := newCombatant(t, "a", lifeAttack)
	def := newCombatant(t, "b", speedDefence)
	roller := &stats.ScriptedRoller{}

	res := NewEngine(roller, 0.4, 1).Attack(atk, def, true)
	if res.AttackRoll != 6 || res.DefenceRoll != 1 {
		t.Errorf("debug rolls = %d/%d, want 6/1", res.AttackRoll, res.DefenceRoll)
	}
	if roller.RollCalls != 0 {
		t.Error("debug attack should not touch the roller")
	}
}

func TestAttackUnknownDieRollsZero(t *testing.T) {
	atk := newCombatant(t, "a", lifeAttack)
	def := newCombatant(t, "b", lifeAttack)
	atk.Attributes.Attack.Dice = "d20"

	res := NewEngine(stats.NewRandRoller(1), 0.4, 1).Attack(atk, def, false)
	if res.AttackRoll != 0 {
		t.Errorf("unknown die rolled %d", res.AttackRoll)
	}
}

func TestAttackSucceedsIffTotalsCompare(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		atk := newCombatant(t, "a", lifeAttack)
		def := newCombatant(t, "b", lifeAttack)
		atk.Attributes.Attack.CurrentValue = rapid.IntRange(0, 8).Draw(t, "attack")
		def.Attributes.Defence.CurrentValue = rapid.IntRange(0, 8).Draw(t, "defence")
		ar := rapid.IntRange(1, 6).Draw(t, "attackRoll")
		dr := rapid.IntRange(1, 4).Draw(t, "defenceRoll")
		lifeBefore := def.Attributes.Life.CurrentValue

		res := NewEngine((&stats.ScriptedRoller{}).QueueRolls(ar, dr), 0.4, 1).Attack(atk, def, false)

		want := res.AttackBase+ar > res.DefenceBase+dr
		if res.Success != want {
			t.Fatalf("Success = %v for %+v", res.Success, res)
		}
		lost := lifeBefore - def.Attributes.Life.CurrentValue
		if (lost == 1) != want {
			t.Fatalf("life lost %d with success %v", lost, want)
		}
	})
}

func TestEvade(t *testing.T) {
	p := newCombatant(t, "a", lifeAttack)
	roller := (&stats.ScriptedRoller{}).QueueChances(false, true)
	e := NewEngine(roller, 0.4, 1)

	ok, err := e.Evade(p)
	if err != nil || ok {
		t.Fatalf("first Evade = %v, %v", ok, err)
	}
	ok, err = e.Evade(p)
	if err != nil || !ok {
		t.Fatalf("second Evade = %v, %v", ok, err)
	}
	if p.EvasionsLeft() != 0 || p.Stats.Evasions != 1 {
		t.Errorf("evasions left %d, recorded %d", p.EvasionsLeft(), p.Stats.Evasions)
	}

	roller.QueueChances(true)
	if ok, err := e.Evade(p); !errors.Is(err, ErrNoEvasions) || ok {
		t.Errorf("Evade at zero = %v, %v", ok, err)
	}
}

func TestIsDefeated(t *testing.T) {
	p := newCombatant(t, "a", lifeAttack)
	if IsDefeated(p) {
		t.Error("fresh player defeated")
	}
	p.Attributes.Life.CurrentValue = 0
	if !IsDefeated(p) {
		t.Error("zero life not defeated")
	}
}
