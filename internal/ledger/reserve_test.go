package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/punchamoorthee/fundledger/internal/domain"
)

func TestMinimumBalance(t *testing.T) {
	got, err := DefaultReservePolicy().MinimumBalance(domain.CampaignStorageSize)
	if err != nil {
		t.Fatalf("minimum balance: %v", err)
	}
	// (128 + 708) * 3480 * 2
	if got != 5_818_560 {
		t.Fatalf("expected 5818560, got %d", got)
	}

	zero, err := ReservePolicy{}.MinimumBalance(domain.CampaignStorageSize)
	if err != nil || zero != 0 {
		t.Fatalf("expected zero-rate policy to reserve nothing, got %d, %v", zero, err)
	}
}

func TestMinimumBalanceOverflow(t *testing.T) {
	p := ReservePolicy{PerByteYear: math.MaxInt64 / 2, ExemptionYears: 2}
	if _, err := p.MinimumBalance(10); !errors.Is(err, domain.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := p.MinimumBalance(-1); err == nil {
		t.Fatal("expected negative length to fail")
	}
}

func TestWithdrawable(t *testing.T) {
	tests := []struct {
		balance, reserve, want int64
	}{
		{1_000_000, 0, 1_000_000},
		{6_818_560, 5_818_560, 1_000_000},
		{5_818_560, 5_818_560, 0},
		{100, 5_818_560, 0},
	}
	for _, tt := range tests {
		if got := Withdrawable(tt.balance, tt.reserve); got != tt.want {
			t.Fatalf("Withdrawable(%d, %d) = %d, want %d", tt.balance, tt.reserve, got, tt.want)
		}
	}
}
