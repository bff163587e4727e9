// Package ledger holds the balance policies the custody engine consults
// before moving value out of a storage entity.
package ledger

import (
	"fmt"

	"github.com/punchamoorthee/fundledger/internal/domain"
)

// StorageOverhead is the per-entity metadata size charged on top of its data.
const StorageOverhead = 128

// ReservePolicy computes the minimum balance a storage entity must retain.
// Funds below that floor are never withdrawable.
type ReservePolicy struct {
	PerByteYear    int64
	ExemptionYears int64
}

// DefaultReservePolicy mirrors rent-exempt pricing: 3480 units per byte-year,
// held for two years.
func DefaultReservePolicy() ReservePolicy {
	return ReservePolicy{PerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance returns the reserve for an entity storing dataLen bytes.
func (p ReservePolicy) MinimumBalance(dataLen int) (int64, error) {
	if dataLen < 0 || p.PerByteYear < 0 || p.ExemptionYears < 0 {
		return 0, fmt.Errorf("invalid reserve inputs: len=%d rate=%d years=%d", dataLen, p.PerByteYear, p.ExemptionYears)
	}
	size, err := domain.CheckedAdd(int64(dataLen), StorageOverhead)
	if err != nil {
		return 0, err
	}
	perYear, err := checkedMul(size, p.PerByteYear)
	if err != nil {
		return 0, err
	}
	return checkedMul(perYear, p.ExemptionYears)
}

// Withdrawable returns the part of balance above reserve.
func Withdrawable(balance, reserve int64) int64 {
	if balance <= reserve {
		return 0
	}
	return balance - reserve
}

func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if c/b != a {
		return 0, domain.ErrOverflow
	}
	return c, nil
}
