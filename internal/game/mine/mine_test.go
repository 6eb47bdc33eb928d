package mine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestUpgradeCost(t *testing.T) {
	assert.Equal(t, int64(2000), UpgradeCost(1))
	assert.Equal(t, int64(8000), UpgradeCost(4))
}

func TestGuardUpgradeCost(t *testing.T) {
	assert.Equal(t, int64(1500), GuardUpgradeCost(0))
	assert.Equal(t, int64(15000), GuardUpgradeCost(9))
}

func TestRaidSuccessChance(t *testing.T) {
	tests := []struct {
		guard  int
		chance int
	}{
		{0, 70},
		{3, 40},
		{6, 10},
		{10, 10}, // floored, never zero
	}
	for _, tt := range tests {
		assert.Equal(t, tt.chance, RaidSuccessChance(tt.guard), "guard %d", tt.guard)
	}
}

func TestStealAmount(t *testing.T) {
	assert.Equal(t, int64(100), StealAmount(300))
	assert.Equal(t, int64(500), StealAmount(3000)) // capped
	assert.Equal(t, int64(0), StealAmount(2))
}

func TestRaidChanceBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		guard := rapid.IntRange(0, MaxGuardLevel).Draw(t, "guard")
		chance := RaidSuccessChance(guard)
		assert.GreaterOrEqual(t, chance, RaidMinChance)
		assert.LessOrEqual(t, chance, RaidBaseChance)
	})
}

func TestStealNeverExceedsStorageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		storage := rapid.Int64Range(0, 100000).Draw(t, "storage")
		stolen := StealAmount(storage)
		assert.LessOrEqual(t, stolen, storage)
		assert.LessOrEqual(t, stolen, int64(RaidMaxSteal))
		assert.GreaterOrEqual(t, stolen, int64(0))
	})
}
