package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a campaign notification.
type EventKind string

const (
	EventCampaignCreated  EventKind = "campaign.created"
	EventDonationReceived EventKind = "donation.received"
	EventCampaignFunded   EventKind = "campaign.funded"
	EventCampaignFailed   EventKind = "campaign.failed"
	EventRefundProcessed  EventKind = "refund.processed"
	EventFundsWithdrawn   EventKind = "funds.withdrawn"
)

// EventPayload is the kind-specific body of an Event.
type EventPayload interface {
	Kind() EventKind
}

type CampaignCreated struct {
	Campaign uuid.UUID `json:"campaign"`
	Title    string    `json:"title"`
	Goal     int64     `json:"goal"`
}

type DonationReceived struct {
	Campaign uuid.UUID `json:"campaign"`
	Donor    AccountID `json:"donor"`
	Amount   int64     `json:"amount"`
}

type CampaignFunded struct {
	Campaign uuid.UUID `json:"campaign"`
	Raised   int64     `json:"raised"`
}

type CampaignFailed struct {
	Campaign uuid.UUID `json:"campaign"`
	Raised   int64     `json:"raised"`
}

type RefundProcessed struct {
	Campaign uuid.UUID `json:"campaign"`
	Donor    AccountID `json:"donor"`
	Amount   int64     `json:"amount"`
}

type FundsWithdrawn struct {
	Campaign    uuid.UUID `json:"campaign"`
	Beneficiary AccountID `json:"beneficiary"`
	Amount      int64     `json:"amount"`
}

func (CampaignCreated) Kind() EventKind  { return EventCampaignCreated }
func (DonationReceived) Kind() EventKind { return EventDonationReceived }
func (CampaignFunded) Kind() EventKind   { return EventCampaignFunded }
func (CampaignFailed) Kind() EventKind   { return EventCampaignFailed }
func (RefundProcessed) Kind() EventKind  { return EventRefundProcessed }
func (FundsWithdrawn) Kind() EventKind   { return EventFundsWithdrawn }

// Event is a committed notification. Seq is assigned by the store and is
// strictly increasing in emission order.
type Event struct {
	Seq        int64        `json:"seq"`
	CampaignID uuid.UUID    `json:"campaign_id"`
	Kind       EventKind    `json:"kind"`
	Payload    EventPayload `json:"payload"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewEvent wraps payload for campaign at time at.
func NewEvent(campaign uuid.UUID, at time.Time, payload EventPayload) Event {
	return Event{
		CampaignID: campaign,
		Kind:       payload.Kind(),
		Payload:    payload,
		OccurredAt: at.UTC(),
	}
}

// UnmarshalJSON restores the typed payload named by kind.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq        int64           `json:"seq"`
		CampaignID uuid.UUID       `json:"campaign_id"`
		Kind       EventKind       `json:"kind"`
		Payload    json.RawMessage `json:"payload"`
		OccurredAt time.Time       `json:"occurred_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	*e = Event{
		Seq:        raw.Seq,
		CampaignID: raw.CampaignID,
		Kind:       raw.Kind,
		Payload:    payload,
		OccurredAt: raw.OccurredAt,
	}
	return nil
}

// DecodePayload rebuilds a typed payload from its stored JSON.
func DecodePayload(kind EventKind, raw []byte) (EventPayload, error) {
	var p EventPayload
	switch kind {
	case EventCampaignCreated:
		p = &CampaignCreated{}
	case EventDonationReceived:
		p = &DonationReceived{}
	case EventCampaignFunded:
		p = &CampaignFunded{}
	case EventCampaignFailed:
		p = &CampaignFailed{}
	case EventRefundProcessed:
		p = &RefundProcessed{}
	case EventFundsWithdrawn:
		p = &FundsWithdrawn{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return derefPayload(p), nil
}

func derefPayload(p EventPayload) EventPayload {
	switch v := p.(type) {
	case *CampaignCreated:
		return *v
	case *DonationReceived:
		return *v
	case *CampaignFunded:
		return *v
	case *CampaignFailed:
		return *v
	case *RefundProcessed:
		return *v
	case *FundsWithdrawn:
		return *v
	}
	return p
}
