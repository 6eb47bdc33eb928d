package combat

import (
	"magic-rpg-bot/internal/game"
	"magic-rpg-bot/internal/model"
)

// Monsters is the hunt encounter catalog, weakest first.
var Monsters = []model.Monster{
	{Key: "goblin", Name: "👺 Goblin", Level: 1, Health: 50, Damage: 5, GoldMin: 10, GoldMax: 25},
	{Key: "wolf", Name: "🐺 Wolf", Level: 3, Health: 70, Damage: 8, GoldMin: 15, GoldMax: 35},
	{Key: "skeleton", Name: "💀 Skeleton", Level: 5, Health: 90, Damage: 12, GoldMin: 20, GoldMax: 50},
	{Key: "orc", Name: "👹 Orc", Level: 10, Health: 150, Damage: 18, GoldMin: 30, GoldMax: 80},
}

// PickMonster chooses a random monster at or below the player's level.
// Level 1 characters always face the goblin.
func PickMonster(playerLevel int, rng *game.Rand) model.Monster {
	eligible := 0
	for _, m := range Monsters {
		if m.Level <= playerLevel {
			eligible++
		}
	}
	if eligible == 0 {
		return Monsters[0]
	}
	return Monsters[rng.Intn(eligible)]
}
