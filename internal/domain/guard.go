package domain

import (
	"fmt"
	"math"

	"github.com/punchamoorthee/fundledger/internal/apperr"
)

// CheckedAdd returns a+b for non-negative operands, failing instead of wrapping.
func CheckedAdd(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, apperr.Wrap(ErrUnderflow, fmt.Errorf("negative operand in %d + %d", a, b))
	}
	if a > math.MaxInt64-b {
		return 0, apperr.Wrap(ErrOverflow, fmt.Errorf("%d + %d", a, b))
	}
	return a + b, nil
}

// CheckedSub returns a-b for non-negative operands, failing if the result
// would drop below zero.
func CheckedSub(a, b int64) (int64, error) {
	if a < 0 || b < 0 || b > a {
		return 0, apperr.Wrap(ErrUnderflow, fmt.Errorf("%d - %d", a, b))
	}
	return a - b, nil
}

// ValidateGoal enforces that goal is reachable by a whole number of
// donations of size unit.
func ValidateGoal(goal, unit int64) error {
	if unit <= 0 || goal <= 0 {
		return ErrInvalidGoalAmount
	}
	if goal%unit != 0 {
		return ErrInvalidGoalAmount
	}
	return nil
}
