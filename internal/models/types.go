package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
)

// CreateAccountRequest is the payload for POST /accounts.
type CreateAccountRequest struct {
	InitialBalance int64 `json:"initial_balance"`
}

// CreateCampaignRequest is the payload for POST /campaigns. The creator is
// the authenticated caller.
type CreateCampaignRequest struct {
	Beneficiary  domain.AccountID `json:"beneficiary"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Goal         int64            `json:"goal"`
	DonationUnit int64            `json:"donation_unit"`
	EndDate      time.Time        `json:"end_date"`
}

func (r CreateCampaignRequest) Input() domain.CreateCampaignInput {
	return domain.CreateCampaignInput{
		Beneficiary:  r.Beneficiary,
		Title:        r.Title,
		Description:  r.Description,
		Goal:         r.Goal,
		DonationUnit: r.DonationUnit,
		EndDate:      r.EndDate,
	}
}

// DonateRequest is the payload for POST /campaigns/{id}/donate.
type DonateRequest struct {
	Amount int64 `json:"amount"`
}

// Donation is the public shape of a donation record.
type Donation struct {
	Key        domain.DonationKey `json:"key"`
	CampaignID uuid.UUID          `json:"campaign_id"`
	Donor      domain.AccountID   `json:"donor"`
	State      string             `json:"state"`
	Amount     int64              `json:"amount"`
}

func NewDonation(r *domain.DonationRecord) Donation {
	state, amount := r.MarshalState()
	return Donation{
		Key:        r.Key,
		CampaignID: r.CampaignID,
		Donor:      r.Donor,
		State:      state,
		Amount:     amount,
	}
}

// CampaignResponse is returned by create.
type CampaignResponse struct {
	Campaign domain.Campaign  `json:"campaign"`
	Reserve  *domain.Transfer `json:"reserve_transfer,omitempty"`
}

// DonationResponse is returned by open-record.
type DonationResponse struct {
	Donation Donation `json:"donation"`
}

// DonateResponse is returned by donate.
type DonateResponse struct {
	Campaign domain.StatusView `json:"campaign"`
	Donation Donation          `json:"donation"`
	Transfer domain.Transfer   `json:"transfer"`
	Funded   bool              `json:"funded"`
}

// ResolveResponse is returned by resolve.
type ResolveResponse struct {
	Campaign domain.StatusView `json:"campaign"`
}

// SettlementResponse is returned by withdraw and refund.
type SettlementResponse struct {
	Campaign domain.StatusView `json:"campaign"`
	Amount   int64             `json:"amount"`
	Transfer domain.Transfer   `json:"transfer"`
	Donation *Donation         `json:"donation,omitempty"`
}

// CampaignListResponse is returned by GET /campaigns.
type CampaignListResponse struct {
	Campaigns []domain.Campaign `json:"campaigns"`
}

// EventsResponse is returned by GET /campaigns/{id}/events.
type EventsResponse struct {
	Events []domain.Event `json:"events"`
}
