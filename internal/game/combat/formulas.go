// Package combat implements the turn-based hunt encounter engine and the
// damage formulas shared with duels and boss fights.
package combat

import (
	"magic-rpg-bot/internal/game"
)

// Magic costs and the flee escape chance.
const (
	SpellManaCost = 20
	FleeChance    = 0.7
	FleeEnergyTax = 5
)

// PhysicalDamage rolls a basic attack: the attacker's damage stat minus a
// small random falloff, never less than 1.
func PhysicalDamage(damage int, rng *game.Rand) int {
	dealt := damage - rng.Between(0, 5)
	if dealt < 1 {
		dealt = 1
	}
	return dealt
}

// SpellDamage rolls a spell hit scaling with intellect.
func SpellDamage(intellect int, rng *game.Rand) int {
	dealt := intellect + rng.Between(5, 15)
	if dealt < 1 {
		dealt = 1
	}
	return dealt
}

// MonsterStrike rolls a monster's retaliation against a defender. The
// defense divisor is 3 after a physical attack and 4 after a spell, spells
// leaving the caster slightly more exposed.
func MonsterStrike(monsterDamage, defense, defenseDiv int, rng *game.Rand) int {
	taken := monsterDamage - rng.Between(0, defense/defenseDiv)
	if taken < 1 {
		taken = 1
	}
	return taken
}

// BlockedStrike rolls the damage taken through a raised guard: half the
// monster's damage minus a small roll, never less than 1.
func BlockedStrike(monsterDamage int, rng *game.Rand) int {
	taken := monsterDamage/2 - rng.Between(0, 3)
	if taken < 1 {
		taken = 1
	}
	return taken
}

// FleeStrike rolls the parting hit taken on a failed escape.
func FleeStrike(monsterDamage int, rng *game.Rand) int {
	return monsterDamage + rng.Between(0, 5)
}

// DuelStrike rolls one duelist's attack against another. Mitigation is a
// random slice of half the defender's defense, so an unmitigated hit stays
// possible at any defense value.
func DuelStrike(damage, defenderDefense int, rng *game.Rand) int {
	dealt := damage - rng.Between(0, defenderDefense/2)
	if dealt < 1 {
		dealt = 1
	}
	return dealt
}

// DuelSpell rolls one duelist's spell against another, mitigated the same
// way as DuelStrike.
func DuelSpell(intellect, defenderDefense int, rng *game.Rand) int {
	dealt := intellect + rng.Between(5, 15) - rng.Between(0, defenderDefense/2)
	if dealt < 1 {
		dealt = 1
	}
	return dealt
}
