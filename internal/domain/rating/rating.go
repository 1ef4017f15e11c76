// Package rating implements the Elo-style pairwise rating model.
//
// All functions are pure. Ratings are not clamped and may drift negative
// or arbitrarily high.
package rating

import (
	"math"

	model "github.com/okian/brewrank/internal/domain/model"
)

// K is the fixed update factor.
const K = 32

// Expected returns the expected score of a player rated a against one rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Round rounds half up: 1.5 -> 2, -1.5 -> -1.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Update applies one resolved comparison between a and b and returns the
// new ratings. aWon reports whether a won.
func Update(a, b int, aWon bool) (int, int) {
	ea := Expected(a, b)
	eb := 1 - ea

	sa, sb := 0.0, 1.0
	if aWon {
		sa, sb = 1, 0
	}

	return Round(float64(a) + K*(sa-ea)), Round(float64(b) + K*(sb-eb))
}

// Merge pulls an existing rating halfway back toward the default baseline.
// It is applied when a beer is re-added to a list it already belongs to.
func Merge(existing int) int {
	return Round(float64(existing+model.DefaultRating) / 2)
}
