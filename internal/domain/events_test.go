package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventJSONKeepsTypedPayload(t *testing.T) {
	id := uuid.New()
	ev := NewEvent(id, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), RefundProcessed{Campaign: id, Donor: 7, Amount: 100_000})
	ev.Seq = 12

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var got Event
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p, ok := got.Payload.(RefundProcessed)
	if !ok {
		t.Fatalf("expected RefundProcessed payload, got %T", got.Payload)
	}
	if p.Donor != 7 || p.Amount != 100_000 || got.Seq != 12 || got.Kind != EventRefundProcessed {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestDecodePayloadUnknownKind(t *testing.T) {
	if _, err := DecodePayload("campaign.paused", []byte(`{}`)); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
