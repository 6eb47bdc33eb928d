// Package rating implements Elo-style competitive rating math.
package rating

import "math"

// KFactor scales how many points change hands per duel.
const KFactor = 32

// Delta returns the points transferred from loser to winner. The winner's
// expected score against the loser sets the size: beating a stronger
// opponent pays more, beating a weaker one pays less. The result is always
// in [0, KFactor].
func Delta(winnerRating, loserRating int) int {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	return int(math.Round(KFactor * (1.0 - expected)))
}
