// Package combat resolves one-on-one fights: who strikes first, attack
// rolls and evasion attempts. Sub-turn timing lives with the session.
package combat

import (
	"errors"

	"github.com/lawnchairsociety/gridquest/internal/player"
	"github.com/lawnchairsociety/gridquest/internal/stats"
)

// ErrNoEvasions is returned when a combatant has no evasion attempts left.
var ErrNoEvasions = errors.New("combat: no evasion attempts left")

// AttackResult is broadcast as attackResult.
type AttackResult struct {
	AttackBase  int  `json:"attackBase"`
	AttackRoll  int  `json:"attackRoll"`
	DefenceBase int  `json:"defenceBase"`
	DefenceRoll int  `json:"defenceRoll"`
	Success     bool `json:"success"`
}

// Engine applies the combat rules with a configurable roller.
type Engine struct {
	Roller             stats.Roller
	EvasionProbability float64
	Damage             int
}

// NewEngine creates a combat engine
func NewEngine(roller stats.Roller, evasionProbability float64, damage int) *Engine {
	return &Engine{Roller: roller, EvasionProbability: evasionProbability, Damage: damage}
}

// Initiative orders two combatants: the higher base speed acts first and a
// tie goes to the initiator.
func Initiative(initiator, opponent *player.Player) (first, second *player.Player) {
	if opponent.Attributes.Speed.BaseValue > initiator.Attributes.Speed.BaseValue {
		return opponent, initiator
	}
	return initiator, opponent
}

// Attack rolls attacker against defender and applies damage on success. In
// debug mode the attacker rolls the die maximum and the defender rolls 1.
func (e *Engine) Attack(attacker, defender *player.Player, debug bool) AttackResult {
	atk := attacker.Attributes.Attack
	def := defender.Attributes.Defence

	res := AttackResult{
		AttackBase:  atk.CurrentValue,
		DefenceBase: def.CurrentValue,
	}
	if debug {
		res.AttackRoll = atk.Dice.Sides()
		res.DefenceRoll = min(1, def.Dice.Sides())
	} else {
		res.AttackRoll = e.Roller.Roll(atk.Dice)
		res.DefenceRoll = e.Roller.Roll(def.Dice)
	}
	res.Success = res.AttackBase+res.AttackRoll > res.DefenceBase+res.DefenceRoll

	if res.Success {
		dealt := min(e.Damage, defender.Attributes.Life.CurrentValue)
		defender.Attributes.Life.CurrentValue -= dealt
		attacker.Stats.RecordDamageDealt(dealt)
		defender.Stats.RecordDamageTaken(dealt)
	}
	return res
}

// IsDefeated reports whether p has no life left.
func IsDefeated(p *player.Player) bool {
	return p.Attributes.Life.CurrentValue <= 0
}

// Evade spends one evasion attempt, whatever the outcome.
func (e *Engine) Evade(p *player.Player) (bool, error) {
	if p.EvasionsLeft() <= 0 {
		return false, ErrNoEvasions
	}
	p.Attributes.Evasion.CurrentValue--
	ok := e.Roller.Chance(e.EvasionProbability)
	if ok {
		p.Stats.RecordEvasion()
	}
	return ok, nil
}
