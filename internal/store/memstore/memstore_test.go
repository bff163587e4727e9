package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/store"
)

func TestTransferMovesBalances(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	from, _ := s.CreateAccount(ctx, 500)
	to, _ := s.CreateAccount(ctx, 0)

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		resp, err := tx.Transfer(ctx, domain.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 200})
		if err != nil {
			return err
		}
		if resp.Transfer.Kind != domain.TransferDirect {
			t.Errorf("expected default kind direct, got %s", resp.Transfer.Kind)
		}
		if resp.Entries[0].Delta+resp.Entries[1].Delta != 0 {
			t.Errorf("expected legs to balance, got %+v", resp.Entries)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}

	a, _ := s.GetAccount(ctx, from)
	b, _ := s.GetAccount(ctx, to)
	if a.Balance != 300 || b.Balance != 200 {
		t.Fatalf("expected 300/200, got %d/%d", a.Balance, b.Balance)
	}
	entries, _ := s.GetEntries(ctx, to)
	if len(entries) != 1 || entries[0].Delta != 200 {
		t.Fatalf("expected one credit entry, got %+v", entries)
	}
}

func TestTransferRejections(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	from, _ := s.CreateAccount(ctx, 100)
	to, _ := s.CreateAccount(ctx, 0)

	tests := []struct {
		name string
		req  domain.TransferRequest
		want error
	}{
		{"insufficient funds", domain.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 101}, domain.ErrInsufficientFunds},
		{"zero amount", domain.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 0}, domain.ErrInvalidAmount},
		{"self transfer", domain.TransferRequest{FromAccountID: from, ToAccountID: from, Amount: 1}, domain.ErrSelfTransfer},
		{"missing account", domain.TransferRequest{FromAccountID: from, ToAccountID: 99, Amount: 1}, domain.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				_, err := tx.Transfer(ctx, tt.req)
				return err
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFailedUnitOfWorkLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	from, _ := s.CreateAccount(ctx, 100)
	to, _ := s.CreateAccount(ctx, 0)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Transfer(ctx, domain.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 50}); err != nil {
			return err
		}
		if _, err := tx.AppendEvents(ctx, []domain.Event{domain.NewEvent(uuid.New(), time.Now(), domain.CampaignFunded{})}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	a, _ := s.GetAccount(ctx, from)
	if a.Balance != 100 {
		t.Fatalf("expected balance rolled back to 100, got %d", a.Balance)
	}
	if entries, _ := s.GetEntries(ctx, from); len(entries) != 0 {
		t.Fatalf("expected no entries after rollback, got %d", len(entries))
	}
}

func TestInsertDonationIsUniquePerPair(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	campaign := uuid.New()

	insert := func() error {
		return s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertDonation(ctx, domain.NewDonationRecord(7, campaign))
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(); !errors.Is(err, domain.ErrRecordExists) {
		t.Fatalf("expected record exists, got %v", err)
	}
}

func TestIdempotencyKeys(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := tx.ReserveIdempotencyKey(ctx, "k1", "hash-a")
		if err != nil || rec != nil {
			t.Fatalf("expected fresh reservation, got %v, %v", rec, err)
		}
		return tx.CompleteIdempotencyKey(ctx, "k1", 201, []byte(`{"ok":true}`))
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := tx.ReserveIdempotencyKey(ctx, "k1", "hash-a")
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if rec == nil || rec.ResponseStatus != 201 || string(rec.ResponseBody) != `{"ok":true}` {
			t.Fatalf("expected stored response, got %+v", rec)
		}
		if _, err := tx.ReserveIdempotencyKey(ctx, "k1", "hash-b"); !errors.Is(err, store.ErrIdempotencyMismatch) {
			t.Fatalf("expected mismatch, got %v", err)
		}
		return nil
	})
}

func TestListResolvable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := New(func() time.Time { return now })

	mk := func(end time.Time, status domain.Status) uuid.UUID {
		c := domain.Campaign{ID: uuid.New(), EndDate: end, Status: status, Goal: 1, DonationUnit: 1}
		_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.InsertCampaign(ctx, &c) })
		return c.ID
	}
	early := mk(now.Add(-2*time.Hour), domain.StatusActive)
	late := mk(now.Add(-time.Hour), domain.StatusActive)
	mk(now.Add(time.Hour), domain.StatusActive)
	mk(now.Add(-3*time.Hour), domain.StatusFailed)

	ids, err := s.ListResolvable(ctx, now, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != early || ids[1] != late {
		t.Fatalf("expected [early late], got %v", ids)
	}
	if ids, _ := s.ListResolvable(ctx, now, 1); len(ids) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(ids))
	}
}

func TestListCampaignsNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := New(nil)

	mk := func(age time.Duration, status domain.Status) uuid.UUID {
		c := domain.Campaign{ID: uuid.New(), CreatedAt: base.Add(-age), Status: status, Goal: 1, DonationUnit: 1, Reserve: 42}
		_ = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.InsertCampaign(ctx, &c) })
		return c.ID
	}
	oldest := mk(3*time.Hour, domain.StatusFailed)
	middle := mk(2*time.Hour, domain.StatusActive)
	newest := mk(time.Hour, domain.StatusActive)

	all, err := s.ListCampaigns(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != newest || all[1].ID != middle || all[2].ID != oldest {
		t.Fatalf("expected newest first, got %v", all)
	}
	if all[0].Reserve != 42 {
		t.Errorf("expected reserve to round-trip, got %d", all[0].Reserve)
	}

	tests := []struct {
		name          string
		status        domain.Status
		limit, offset int
		want          []uuid.UUID
	}{
		{"status filter", domain.StatusActive, 10, 0, []uuid.UUID{newest, middle}},
		{"limit", "", 1, 0, []uuid.UUID{newest}},
		{"offset", "", 10, 2, []uuid.UUID{oldest}},
		{"offset past end", "", 10, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListCampaigns(ctx, tt.status, tt.limit, tt.offset)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d campaigns, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], got[i].ID)
				}
			}
		})
	}
}
