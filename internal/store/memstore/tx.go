package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/store"
)

type memTx struct {
	st  *state
	now func() time.Time
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) CreateAccount(_ context.Context, kind domain.AccountKind, balance int64) (domain.AccountID, error) {
	if balance < 0 {
		return 0, domain.ErrInvalidAmount
	}
	t.st.nextAccount++
	id := t.st.nextAccount
	t.st.accounts[id] = domain.Account{ID: id, Kind: kind, Balance: balance, CreatedAt: t.now().UTC()}
	return id, nil
}

func (t *memTx) LockAccount(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) Transfer(_ context.Context, req domain.TransferRequest) (*domain.TransferResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Kind == "" {
		req.Kind = domain.TransferDirect
	}
	from, ok := t.st.accounts[req.FromAccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	to, ok := t.st.accounts[req.ToAccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if err := req.CheckAccounts(&from, &to); err != nil {
		return nil, err
	}
	if from.Balance < req.Amount {
		return nil, domain.ErrInsufficientFunds
	}
	credited, err := domain.CheckedAdd(to.Balance, req.Amount)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	t.st.nextTransfer++
	tr := domain.Transfer{
		ID:            t.st.nextTransfer,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Kind:          req.Kind,
		CampaignID:    req.CampaignID,
		Status:        "completed",
		CreatedAt:     now,
	}
	t.st.transfers = append(t.st.transfers, tr)

	legs := []domain.LedgerEntry{
		{TransferID: tr.ID, AccountID: req.FromAccountID, Delta: -req.Amount, CreatedAt: now},
		{TransferID: tr.ID, AccountID: req.ToAccountID, Delta: req.Amount, CreatedAt: now},
	}
	for i := range legs {
		t.st.nextEntry++
		legs[i].ID = t.st.nextEntry
	}
	t.st.entries = append(t.st.entries, legs...)

	from.Balance -= req.Amount
	to.Balance = credited
	t.st.accounts[from.ID] = from
	t.st.accounts[to.ID] = to

	return &domain.TransferResponse{Transfer: tr, Entries: legs}, nil
}

func (t *memTx) InsertCampaign(_ context.Context, c *domain.Campaign) error {
	if _, ok := t.st.campaigns[c.ID]; ok {
		return fmt.Errorf("insert campaign: duplicate id %s", c.ID)
	}
	t.st.campaigns[c.ID] = *c
	return nil
}

func (t *memTx) LockCampaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c, ok := t.st.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return &c, nil
}

func (t *memTx) UpdateCampaign(_ context.Context, c *domain.Campaign) error {
	cur, ok := t.st.campaigns[c.ID]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	cur.Raised = c.Raised
	cur.Status = c.Status
	t.st.campaigns[c.ID] = cur
	return nil
}

func (t *memTx) InsertDonation(_ context.Context, r *domain.DonationRecord) error {
	if _, ok := t.st.donations[r.Key]; ok {
		return domain.ErrRecordExists
	}
	t.st.donations[r.Key] = *r
	return nil
}

func (t *memTx) LockDonation(_ context.Context, key domain.DonationKey) (*domain.DonationRecord, error) {
	r, ok := t.st.donations[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &r, nil
}

func (t *memTx) UpdateDonation(_ context.Context, r *domain.DonationRecord) error {
	if _, ok := t.st.donations[r.Key]; !ok {
		return domain.ErrRecordNotFound
	}
	t.st.donations[r.Key] = *r
	return nil
}

func (t *memTx) AppendEvents(_ context.Context, events []domain.Event) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		t.st.nextSeq++
		ev.Seq = t.st.nextSeq
		t.st.events = append(t.st.events, ev)
		out = append(out, ev)
	}
	return out, nil
}

func (t *memTx) ReserveIdempotencyKey(_ context.Context, key, requestHash string) (*domain.IdempotencyRecord, error) {
	if rec, ok := t.st.idem[key]; ok {
		if rec.RequestHash != requestHash {
			return nil, store.ErrIdempotencyMismatch
		}
		if rec.Status != "completed" {
			return nil, store.ErrIdempotencyConflict
		}
		return &rec, nil
	}
	t.st.idem[key] = domain.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "in_progress"}
	return nil, nil
}

func (t *memTx) CompleteIdempotencyKey(_ context.Context, key string, status int, body []byte) error {
	rec, ok := t.st.idem[key]
	if !ok {
		return fmt.Errorf("idempotency key %q was not reserved", key)
	}
	rec.Status = "completed"
	rec.ResponseStatus = status
	rec.ResponseBody = append([]byte(nil), body...)
	t.st.idem[key] = rec
	return nil
}
