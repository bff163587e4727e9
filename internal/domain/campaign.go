package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxDescriptionLength is the maximum description size in bytes.
	MaxDescriptionLength = 500
	// MinWithdrawAmount is the smallest payout a withdrawal may move.
	MinWithdrawAmount int64 = 100_000
	// CampaignStorageSize is the persisted size of a campaign, used to size its reserve.
	CampaignStorageSize = 8 + 700
)

// AccountID identifies a ledger account. Creators, beneficiaries, donors and
// campaign custody are all accounts.
type AccountID int64

// Status is the campaign lifecycle state.
type Status string

const (
	StatusActive Status = "active"
	StatusFunded Status = "funded"
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFunded || s == StatusFailed
}

// ParseStatus maps a stored label back to a Status.
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusActive, StatusFunded, StatusFailed:
		return Status(v), nil
	default:
		return "", fmt.Errorf("unknown campaign status %q", v)
	}
}

// Campaign is one fundraising effort and the custody account backing it.
type Campaign struct {
	ID             uuid.UUID `json:"id"`
	Creator        AccountID `json:"creator"`
	Beneficiary    AccountID `json:"beneficiary"`
	CustodyAccount AccountID `json:"custody_account"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Goal           int64     `json:"goal"`
	DonationUnit   int64     `json:"donation_unit"`
	Raised         int64     `json:"raised"`
	Reserve        int64     `json:"reserve"`
	EndDate        time.Time `json:"end_date"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateCampaignInput is everything a creator supplies.
type CreateCampaignInput struct {
	Beneficiary  AccountID
	Title        string
	Description  string
	Goal         int64
	DonationUnit int64
	EndDate      time.Time
}

// Validate checks creation invariants without building a campaign.
func (in CreateCampaignInput) Validate() error {
	if len(in.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := ValidateGoal(in.Goal, in.DonationUnit); err != nil {
		return err
	}
	if in.EndDate.IsZero() {
		return ErrInvalidEndDate
	}
	return nil
}

// NewCampaign validates input and returns an Active campaign with nothing raised.
func NewCampaign(creator AccountID, input CreateCampaignInput, now func() time.Time, newID func() uuid.UUID) (*Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.New
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &Campaign{
		ID:           newID(),
		Creator:      creator,
		Beneficiary:  input.Beneficiary,
		Title:        input.Title,
		Description:  input.Description,
		Goal:         input.Goal,
		DonationUnit: input.DonationUnit,
		EndDate:      input.EndDate.UTC(),
		Status:       StatusActive,
		CreatedAt:    now().UTC(),
	}, nil
}

// AcceptDonation adds amount to Raised and reports whether this donation
// moved the campaign to Funded. The campaign is not modified on error.
func (c *Campaign) AcceptDonation(amount int64, now time.Time) (funded bool, err error) {
	if !now.Before(c.EndDate) {
		return false, ErrCampaignEnded
	}
	if amount != c.DonationUnit {
		return false, ErrInvalidDonationAmount
	}
	if c.Status != StatusActive {
		return false, ErrCampaignNotActive
	}
	raised, err := CheckedAdd(c.Raised, amount)
	if err != nil {
		return false, err
	}
	c.Raised = raised
	if c.Raised >= c.Goal {
		c.Status = StatusFunded
		return true, nil
	}
	return false, nil
}

// ReceiveDonation applies one contribution to the campaign and to the donor's
// record. Only the deadline and the amount are checked before the record, so
// a repeat donor gets ErrAlreadyDonated even once the campaign has filled.
// Neither c nor r changes on error.
func (c *Campaign) ReceiveDonation(r *DonationRecord, amount int64, now time.Time) (funded bool, err error) {
	if !now.Before(c.EndDate) {
		return false, ErrCampaignEnded
	}
	if amount != c.DonationUnit {
		return false, ErrInvalidDonationAmount
	}
	if err := r.CanHold(); err != nil {
		return false, err
	}
	funded, err = c.AcceptDonation(amount, now)
	if err != nil {
		return false, err
	}
	r.State = DonationHeld{Amount: amount}
	return funded, nil
}

// ResolveAtDeadline closes an Active campaign whose end date has passed.
func (c *Campaign) ResolveAtDeadline(now time.Time) (Status, error) {
	if now.Before(c.EndDate) {
		return c.Status, ErrCampaignNotEnded
	}
	if c.Status != StatusActive {
		return c.Status, ErrCampaignAlreadyResolved
	}
	if c.Raised >= c.Goal {
		c.Status = StatusFunded
	} else {
		c.Status = StatusFailed
	}
	return c.Status, nil
}

// StatusView is the read-only summary of a campaign.
type StatusView struct {
	Title  string `json:"title"`
	Goal   int64  `json:"goal"`
	Raised int64  `json:"raised"`
	Status Status `json:"status"`
}

func (c *Campaign) View() StatusView {
	return StatusView{Title: c.Title, Goal: c.Goal, Raised: c.Raised, Status: c.Status}
}
