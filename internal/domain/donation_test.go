package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestDonationKeyIsDeterministic(t *testing.T) {
	campaign := uuid.MustParse("0b3c6f0e-8d7f-4a7e-a1a2-3e9f5b8c1d20")
	other := uuid.MustParse("9a1d2c3b-4e5f-4a6b-8c7d-0e1f2a3b4c5d")

	if NewDonationKey(7, campaign) != NewDonationKey(7, campaign) {
		t.Fatal("expected equal keys for the same pair")
	}
	if NewDonationKey(7, campaign) == NewDonationKey(8, campaign) {
		t.Fatal("expected different donors to get different keys")
	}
	if NewDonationKey(7, campaign) == NewDonationKey(7, other) {
		t.Fatal("expected different campaigns to get different keys")
	}
}

func TestDonationRecordLifecycle(t *testing.T) {
	c, _ := NewCampaign(1, validInput(), fixedNow, fixedID)
	r := NewDonationRecord(7, c.ID)
	if r.Amount() != 0 {
		t.Fatalf("expected empty record, got %d", r.Amount())
	}

	if _, err := c.ReceiveDonation(r, 50_000, testNow); !errors.Is(err, ErrInvalidDonationAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if r.Amount() != 0 || c.Raised != 0 {
		t.Fatalf("rejected donation changed state: record %d raised %d", r.Amount(), c.Raised)
	}
	if _, err := c.ReceiveDonation(r, 100_000, testNow); err != nil {
		t.Fatalf("donate: %v", err)
	}
	if r.Amount() != 100_000 || c.Raised != 100_000 {
		t.Fatalf("expected held 100000, got record %d raised %d", r.Amount(), c.Raised)
	}
	if _, err := c.ReceiveDonation(r, 100_000, testNow); !errors.Is(err, ErrAlreadyDonated) {
		t.Fatalf("expected already donated, got %v", err)
	}

	amount, err := r.Release()
	if err != nil || amount != 100_000 {
		t.Fatalf("release: %d, %v", amount, err)
	}
	if r.Amount() != 0 {
		t.Fatalf("expected zero after release, got %d", r.Amount())
	}
	if _, err := r.Release(); !errors.Is(err, ErrNoFundsAvailable) {
		t.Fatalf("expected second release to fail, got %v", err)
	}
	if err := r.CanHold(); !errors.Is(err, ErrAlreadyDonated) {
		t.Fatalf("expected refunded record to be single-use, got %v", err)
	}
}

func TestReleaseEmptyRecord(t *testing.T) {
	r := NewDonationRecord(9, testID)
	if _, err := r.Release(); !errors.Is(err, ErrNoFundsAvailable) {
		t.Fatalf("expected no funds, got %v", err)
	}
}

func TestDonationStateRoundTrip(t *testing.T) {
	r := NewDonationRecord(7, testID)
	r.State = DonationHeld{Amount: 100_000}

	name, amount := r.MarshalState()
	state, err := ParseDonationState(name, amount)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if held, ok := state.(DonationHeld); !ok || held.Amount != 100_000 {
		t.Fatalf("expected held 100000, got %#v", state)
	}

	if _, err := ParseDonationState("held", 0); err == nil {
		t.Fatal("expected held with zero amount to be rejected")
	}
	if _, err := ParseDonationState("pending", 0); err == nil {
		t.Fatal("expected unknown state to be rejected")
	}
}
