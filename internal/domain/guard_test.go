package domain

import (
	"errors"
	"math"
	"testing"
)

func TestCheckedAdd(t *testing.T) {
	if got, err := CheckedAdd(2, 3); err != nil || got != 5 {
		t.Fatalf("expected 5, got %d, %v", got, err)
	}
	if _, err := CheckedAdd(math.MaxInt64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := CheckedAdd(-1, 1); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected negative operand to be rejected, got %v", err)
	}
}

func TestCheckedSub(t *testing.T) {
	if got, err := CheckedSub(5, 5); err != nil || got != 0 {
		t.Fatalf("expected 0, got %d, %v", got, err)
	}
	if _, err := CheckedSub(4, 5); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestValidateGoal(t *testing.T) {
	if err := ValidateGoal(500_000, 100_000); err != nil {
		t.Fatalf("expected valid goal, got %v", err)
	}
	for _, tc := range [][2]int64{{500_000, 0}, {500_000, 300_000}, {0, 100_000}, {-100, 100}} {
		if err := ValidateGoal(tc[0], tc[1]); !errors.Is(err, ErrInvalidGoalAmount) {
			t.Fatalf("goal %d unit %d: expected invalid goal, got %v", tc[0], tc[1], err)
		}
	}
}
