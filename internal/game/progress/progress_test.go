package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRewardFor(t *testing.T) {
	tests := []struct {
		level     int
		gold      int64
		sapphires int64
	}{
		{2, 100, 0},
		{5, 250, 1},
		{10, 500, 1},
		{11, 550, 0},
	}
	for _, tt := range tests {
		r := RewardFor(tt.level)
		assert.Equal(t, tt.gold, r.Gold, "level %d", tt.level)
		assert.Equal(t, tt.sapphires, r.Sapphires, "level %d", tt.level)
		assert.Equal(t, PointsPerLevel, r.Points)
	}
}

func TestRewardForProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(2, 100).Draw(t, "level")
		r := RewardFor(level)
		assert.Equal(t, int64(level*GoldPerLevel), r.Gold)
		if level%SapphireEvery == 0 {
			assert.Equal(t, int64(1), r.Sapphires)
		} else {
			assert.Zero(t, r.Sapphires)
		}
	})
}
