package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"magic-rpg-bot/internal/game"
)

func TestCatalogShape(t *testing.T) {
	assert.Len(t, Catalog, 5)
	for _, it := range Catalog {
		assert.NotEmpty(t, it.Name)
		assert.Contains(t, []string{TypeWeapon, TypeArmor, TypePotion}, it.Type)
		assert.Contains(t, []string{RarityCommon, RarityUncommon}, it.Rarity)
	}
}

func TestRollScalesAboveThreshold(t *testing.T) {
	rng := game.NewRand(1)
	for i := 0; i < 200; i++ {
		dropped := Roll(9, rng)
		var base Item
		for _, it := range Catalog {
			if it.Name == dropped.Name {
				base = it
			}
		}
		switch dropped.Type {
		case TypeWeapon:
			assert.Equal(t, base.Damage+3, dropped.Damage) // 9/3
		case TypeArmor:
			assert.Equal(t, base.Defense+2, dropped.Defense) // 9/4
		case TypePotion:
			assert.Equal(t, base, dropped)
		}
	}
}

func TestRollNoScalingAtOrBelowThreshold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, ScaleThreshold).Draw(t, "level")
		rng := game.NewRand(rapid.Int64().Draw(t, "seed"))
		dropped := Roll(level, rng)
		assert.Contains(t, Catalog, dropped)
	})
}

func TestRollNeverMutatesCatalog(t *testing.T) {
	rng := game.NewRand(42)
	for i := 0; i < 100; i++ {
		Roll(30, rng)
	}
	assert.Equal(t, 5, Catalog[0].Damage)
	assert.Equal(t, 3, Catalog[1].Defense)
}
