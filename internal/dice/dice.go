// Package dice implements the dice-rolling primitive behind the beacon.
package dice

import (
	"errors"
	"math/rand/v2"
)

// ErrInvalidSpec indicates a roll was requested with a non-positive die
// count or side count. This is a programming error in the caller, not a
// condition to retry.
var ErrInvalidSpec = errors.New("dice must have positive sides and count")

// RollSum returns the sum of n independent uniform draws from [1, sides].
// RollSum(1, sides) is a single exact draw.
func RollSum(n, sides int) (int, error) {
	if n < 1 || sides < 1 {
		return 0, ErrInvalidSpec
	}

	total := 0
	for i := 0; i < n; i++ {
		total += rand.IntN(sides) + 1
	}
	return total, nil
}

// Roller abstracts the random draws so decision logic can be exercised
// with scripted rolls in tests.
type Roller interface {
	RollSum(n, sides int) (int, error)
}

// RandomRoller rolls with the process-wide RNG.
type RandomRoller struct{}

func (RandomRoller) RollSum(n, sides int) (int, error) {
	return RollSum(n, sides)
}
