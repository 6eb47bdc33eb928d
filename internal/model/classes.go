package model

// Classes is the character archetype catalog. Stat blocks are fixed at
// creation; later growth comes from upgrade points.
var Classes = map[string]Class{
	"mage": {
		Key:       "mage",
		Name:      "🧙‍♂️ Mage",
		Health:    80,
		Mana:      150,
		Damage:    10,
		Defense:   5,
		Intellect: 20,
		Agility:   8,
	},
	"warrior": {
		Key:       "warrior",
		Name:      "⚔️ Warrior",
		Health:    150,
		Mana:      50,
		Damage:    18,
		Defense:   15,
		Intellect: 5,
		Agility:   6,
	},
	"archer": {
		Key:       "archer",
		Name:      "🏹 Archer",
		Health:    100,
		Mana:      80,
		Damage:    15,
		Defense:   8,
		Intellect: 10,
		Agility:   18,
	},
	"priest": {
		Key:       "priest",
		Name:      "🙏 Priest",
		Health:    120,
		Mana:      120,
		Damage:    12,
		Defense:   10,
		Intellect: 15,
		Agility:   10,
	},
	"dark_mage": {
		Key:       "dark_mage",
		Name:      "🔮 Dark Mage",
		Health:    70,
		Mana:      160,
		Damage:    14,
		Defense:   4,
		Intellect: 22,
		Agility:   9,
	},
}
