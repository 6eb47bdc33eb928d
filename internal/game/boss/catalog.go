package boss

import (
	"time"

	"magic-rpg-bot/internal/model"
)

// Bosses is the weekly rotation, one template per weekday. Templates are
// immutable; the contested state lives in boss_status rows.
var Bosses = map[time.Weekday]model.BossTemplate{
	time.Monday:    {Name: "🧙‍♂️ Archmage Veylon", Type: "mage", Health: 5000, Damage: 50, GoldReward: 1000, SapphireChance: 10, SpawnDay: time.Monday},
	time.Tuesday:   {Name: "⚔️ Warlord Krag", Type: "warrior", Health: 6000, Damage: 60, GoldReward: 1200, SapphireChance: 15, SpawnDay: time.Tuesday},
	time.Wednesday: {Name: "🏹 Shadow Archer", Type: "archer", Health: 4500, Damage: 65, GoldReward: 900, SapphireChance: 12, SpawnDay: time.Wednesday},
	time.Thursday:  {Name: "🙏 High Priest", Type: "priest", Health: 4000, Damage: 45, GoldReward: 800, SapphireChance: 8, SpawnDay: time.Thursday},
	time.Friday:    {Name: "🔮 Necromancer Zarax", Type: "dark_mage", Health: 5500, Damage: 70, GoldReward: 1100, SapphireChance: 20, SpawnDay: time.Friday},
	time.Saturday:  {Name: "🐲 Ancient Dragon", Type: "dragon", Health: 8000, Damage: 80, GoldReward: 2000, SapphireChance: 25, SpawnDay: time.Saturday},
	time.Sunday:    {Name: "🌟 Wandering Boss", Type: "random", Health: 3000, Damage: 40, GoldReward: 700, SapphireChance: 5, SpawnDay: time.Sunday},
}

// TemplateFor returns the boss on rotation for the given date.
func TemplateFor(date time.Time) model.BossTemplate {
	return Bosses[date.Weekday()]
}
