// Package stats holds the numeric model of a character: dice, attributes and
// the reversible modifiers items apply to them.
package stats

import "fmt"

// AttributeName identifies one of the fixed character attributes.
type AttributeName string

const (
	Life    AttributeName = "life"
	Speed   AttributeName = "speed"
	Attack  AttributeName = "attack"
	Defence AttributeName = "defence"
	Evasion AttributeName = "nbEvasion"
)

// Character creation constants.
const (
	BaseAttributeValue = 4
	CreationBonus      = 2
	BaseEvasions       = 2
)

// Attribute is a base/current pair. CurrentValue is the live value; BaseValue
// is what the attribute resets to.
type Attribute struct {
	Name         AttributeName `json:"name"`
	BaseValue    int           `json:"baseValue"`
	CurrentValue int           `json:"currentValue"`
	Dice         Die           `json:"dice,omitempty"`
}

// Reset restores the current value to the base value.
func (a *Attribute) Reset() {
	a.CurrentValue = a.BaseValue
}

// Attributes is the fixed attribute set every player carries.
type Attributes struct {
	Life    Attribute `json:"life"`
	Speed   Attribute `json:"speed"`
	Attack  Attribute `json:"attack"`
	Defence Attribute `json:"defence"`
	Evasion Attribute `json:"nbEvasion"`
}

// CreationChoice is what a player picks on the character sheet: which of
// life/speed gets the +2 bonus and which of attack/defence rolls the d6.
type CreationChoice struct {
	Bonus AttributeName `json:"bonus"`
	Dice  AttributeName `json:"dice"`
}

// Validate checks the choice against the allowed options.
func (c CreationChoice) Validate() error {
	if c.Bonus != Life && c.Bonus != Speed {
		return fmt.Errorf("bonus must go to %s or %s, got %q", Life, Speed, c.Bonus)
	}
	if c.Dice != Attack && c.Dice != Defence {
		return fmt.Errorf("d6 must go to %s or %s, got %q", Attack, Defence, c.Dice)
	}
	return nil
}

func newAttribute(name AttributeName, value int, die Die) Attribute {
	return Attribute{Name: name, BaseValue: value, CurrentValue: value, Dice: die}
}

// NewAttributes builds a fresh attribute set from a creation choice.
func NewAttributes(choice CreationChoice) (Attributes, error) {
	if err := choice.Validate(); err != nil {
		return Attributes{}, err
	}

	life, speed := BaseAttributeValue, BaseAttributeValue
	if choice.Bonus == Life {
		life += CreationBonus
	} else {
		speed += CreationBonus
	}

	attackDie, defenceDie := D4, D6
	if choice.Dice == Attack {
		attackDie, defenceDie = D6, D4
	}

	return Attributes{
		Life:    newAttribute(Life, life, ""),
		Speed:   newAttribute(Speed, speed, ""),
		Attack:  newAttribute(Attack, BaseAttributeValue, attackDie),
		Defence: newAttribute(Defence, BaseAttributeValue, defenceDie),
		Evasion: newAttribute(Evasion, BaseEvasions, ""),
	}, nil
}

// Get returns the attribute with the given name, or nil if unknown.
func (a *Attributes) Get(name AttributeName) *Attribute {
	switch name {
	case Life:
		return &a.Life
	case Speed:
		return &a.Speed
	case Attack:
		return &a.Attack
	case Defence:
		return &a.Defence
	case Evasion:
		return &a.Evasion
	default:
		return nil
	}
}

// Modifier shifts an attribute. Base and Current are applied independently
// so an item can raise a maximum, a live value, or both.
type Modifier struct {
	Attribute AttributeName `json:"attribute" yaml:"attribute"`
	Base      int           `json:"base" yaml:"base"`
	Current   int           `json:"current" yaml:"current"`
}

// Apply adds the modifiers, clamping values at zero, and returns the deltas
// that were actually applied. Passing that result to Revert restores the
// exact previous values even when clamping kicked in.
func (a *Attributes) Apply(mods []Modifier) []Modifier {
	applied := make([]Modifier, 0, len(mods))
	for _, m := range mods {
		attr := a.Get(m.Attribute)
		if attr == nil {
			continue
		}
		base := clampedDelta(attr.BaseValue, m.Base)
		current := clampedDelta(attr.CurrentValue, m.Current)
		attr.BaseValue += base
		attr.CurrentValue += current
		applied = append(applied, Modifier{Attribute: m.Attribute, Base: base, Current: current})
	}
	return applied
}

// Revert undoes deltas previously returned by Apply, in reverse order.
func (a *Attributes) Revert(applied []Modifier) {
	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		attr := a.Get(m.Attribute)
		if attr == nil {
			continue
		}
		attr.BaseValue -= m.Base
		attr.CurrentValue -= m.Current
		if attr.BaseValue < 0 {
			attr.BaseValue = 0
		}
		if attr.CurrentValue < 0 {
			attr.CurrentValue = 0
		}
	}
}

// clampedDelta returns the part of delta that keeps value non-negative.
func clampedDelta(value, delta int) int {
	if value+delta < 0 {
		return -value
	}
	return delta
}

// ResetCombat restores the attributes combat consumes.
func (a *Attributes) ResetCombat() {
	a.Life.Reset()
	a.Evasion.Reset()
}
