// Package item holds the hunt drop catalog.
package item

import (
	"magic-rpg-bot/internal/game"
)

// Item types and rarities.
const (
	TypeWeapon = "weapon"
	TypeArmor  = "armor"
	TypePotion = "potion"

	RarityCommon   = "common"
	RarityUncommon = "uncommon"
)

// HealPotionAmount is how much health a consumed potion restores.
const HealPotionAmount = 50

// HealthPotionName matches the catalog entry consumable via UsePotion.
const HealthPotionName = "🧪 Health Potion"

// ScaleThreshold is the monster level above which drops scale up.
const ScaleThreshold = 5

// Item is a dropped piece of loot. Damage and Defense carry any
// monster-level scaling applied at drop time.
type Item struct {
	Name      string
	Type      string
	Rarity    string
	Damage    int
	Defense   int
	Intellect int
	Agility   int
}

// Catalog is the flat drop table. Every entry drops with equal weight.
var Catalog = []Item{
	{Name: "⚔️ Rusty Sword", Type: TypeWeapon, Rarity: RarityCommon, Damage: 5},
	{Name: "🛡️ Leather Armor", Type: TypeArmor, Rarity: RarityCommon, Defense: 3},
	{Name: HealthPotionName, Type: TypePotion, Rarity: RarityCommon},
	{Name: "🔮 Apprentice Staff", Type: TypeWeapon, Rarity: RarityUncommon, Damage: 8, Intellect: 2},
	{Name: "🏹 Hunting Bow", Type: TypeWeapon, Rarity: RarityUncommon, Damage: 7, Agility: 3},
}

// Roll picks a drop and scales its combat stats by the monster's level.
func Roll(monsterLevel int, rng *game.Rand) Item {
	item := Catalog[rng.Intn(len(Catalog))]
	if monsterLevel > ScaleThreshold {
		switch item.Type {
		case TypeWeapon:
			item.Damage += monsterLevel / 3
		case TypeArmor:
			item.Defense += monsterLevel / 4
		}
	}
	return item
}
