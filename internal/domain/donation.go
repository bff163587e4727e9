package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// DonationKey is the content-addressed identity of a (donor, campaign) pair.
type DonationKey string

// NewDonationKey derives the single record key a donor may hold for a campaign.
func NewDonationKey(donor AccountID, campaign uuid.UUID) DonationKey {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(donor))

	h := sha256.New()
	h.Write([]byte("donation"))
	h.Write(buf[:])
	h.Write(campaign[:])
	return DonationKey(hex.EncodeToString(h.Sum(nil)))
}

// DonationState is one of DonationEmpty, DonationHeld or DonationRefunded.
type DonationState interface {
	Name() string
	isDonationState()
}

// DonationEmpty is a record that has never received a contribution.
type DonationEmpty struct{}

// DonationHeld is a contribution sitting in campaign custody.
type DonationHeld struct{ Amount int64 }

// DonationRefunded is a contribution that has been returned to the donor.
// A refunded record cannot be donated into again.
type DonationRefunded struct{ Amount int64 }

func (DonationEmpty) Name() string    { return "empty" }
func (DonationHeld) Name() string     { return "held" }
func (DonationRefunded) Name() string { return "refunded" }

func (DonationEmpty) isDonationState()    {}
func (DonationHeld) isDonationState()     {}
func (DonationRefunded) isDonationState() {}

// ParseDonationState rebuilds a state from its stored name and amount.
func ParseDonationState(name string, amount int64) (DonationState, error) {
	switch name {
	case "empty":
		return DonationEmpty{}, nil
	case "held":
		if amount <= 0 {
			return nil, fmt.Errorf("held donation with amount %d", amount)
		}
		return DonationHeld{Amount: amount}, nil
	case "refunded":
		return DonationRefunded{Amount: amount}, nil
	default:
		return nil, fmt.Errorf("unknown donation state %q", name)
	}
}

// DonationRecord tracks one donor's stake in one campaign.
type DonationRecord struct {
	Key        DonationKey
	CampaignID uuid.UUID
	Donor      AccountID
	State      DonationState
}

// NewDonationRecord returns an empty record for donor in campaign.
func NewDonationRecord(donor AccountID, campaign uuid.UUID) *DonationRecord {
	return &DonationRecord{
		Key:        NewDonationKey(donor, campaign),
		CampaignID: campaign,
		Donor:      donor,
		State:      DonationEmpty{},
	}
}

// Amount is the value currently held in custody for this donor.
func (r *DonationRecord) Amount() int64 {
	if held, ok := r.State.(DonationHeld); ok {
		return held.Amount
	}
	return 0
}

// CanHold reports whether the record can still take a contribution.
func (r *DonationRecord) CanHold() error {
	switch r.State.(type) {
	case DonationEmpty:
		return nil
	case DonationHeld, DonationRefunded:
		return ErrAlreadyDonated
	default:
		return fmt.Errorf("donation %s: unexpected state %T", r.Key, r.State)
	}
}

// Release marks a held contribution refunded and returns its amount. The
// record is settled before any value moves, so a retried refund finds
// nothing to release.
func (r *DonationRecord) Release() (int64, error) {
	switch s := r.State.(type) {
	case DonationHeld:
		r.State = DonationRefunded{Amount: s.Amount}
		return s.Amount, nil
	case DonationEmpty, DonationRefunded:
		return 0, ErrNoFundsAvailable
	default:
		return 0, fmt.Errorf("donation %s: unexpected state %T", r.Key, r.State)
	}
}

// MarshalState returns the storage columns for the record's state.
func (r *DonationRecord) MarshalState() (name string, amount int64) {
	switch s := r.State.(type) {
	case DonationHeld:
		return s.Name(), s.Amount
	case DonationRefunded:
		return s.Name(), s.Amount
	default:
		return DonationEmpty{}.Name(), 0
	}
}
