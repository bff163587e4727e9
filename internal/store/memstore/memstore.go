// Package memstore is an in-process store.Store for tests and local runs.
//
// Units of work are serialized by one lock and run against a private copy of
// the state that replaces the live state only when the unit succeeds, so a
// failed operation leaves nothing behind.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/store"
)

type state struct {
	accounts  map[domain.AccountID]domain.Account
	transfers []domain.Transfer
	entries   []domain.LedgerEntry
	campaigns map[uuid.UUID]domain.Campaign
	donations map[domain.DonationKey]domain.DonationRecord
	events    []domain.Event
	idem      map[string]domain.IdempotencyRecord

	nextAccount  domain.AccountID
	nextTransfer int64
	nextEntry    int64
	nextSeq      int64
}

func (s *state) clone() *state {
	c := *s
	c.accounts = maps.Clone(s.accounts)
	c.transfers = slices.Clone(s.transfers)
	c.entries = slices.Clone(s.entries)
	c.campaigns = maps.Clone(s.campaigns)
	c.donations = maps.Clone(s.donations)
	c.events = slices.Clone(s.events)
	c.idem = maps.Clone(s.idem)
	return &c
}

// Store keeps everything in memory.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store. now stamps accounts and entries; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now: now,
		st: &state{
			accounts:  make(map[domain.AccountID]domain.Account),
			campaigns: make(map[uuid.UUID]domain.Campaign),
			donations: make(map[domain.DonationKey]domain.DonationRecord),
			idem:      make(map[string]domain.IdempotencyRecord),
		},
	}
}

func (s *Store) Close() {}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := &memTx{st: s.st.clone(), now: s.now}
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.st = work.st
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return &c, nil
}

func (s *Store) ListCampaigns(_ context.Context, status domain.Status, limit, offset int) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Campaign
	for _, c := range s.st.campaigns {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetDonation(_ context.Context, key domain.DonationKey) (*domain.DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.donations[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &r, nil
}

func (s *Store) ListEvents(_ context.Context, campaignID uuid.UUID, afterSeq int64) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, ev := range s.st.events {
		if ev.CampaignID == campaignID && ev.Seq > afterSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) ListResolvable(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []domain.Campaign
	for _, c := range s.st.campaigns {
		if c.Status == domain.StatusActive && !c.EndDate.After(now) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndDate.Before(due[j].EndDate) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]uuid.UUID, len(due))
	for i, c := range due {
		ids[i] = c.ID
	}
	return ids, nil
}

func (s *Store) CreateAccount(ctx context.Context, balance int64) (domain.AccountID, error) {
	var id domain.AccountID
	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		id, err = tx.CreateAccount(ctx, domain.AccountUser, balance)
		return err
	})
	return id, err
}

func (s *Store) GetAccount(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.st.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

// GetEntries returns an account's ledger entries, newest first.
func (s *Store) GetEntries(_ context.Context, id domain.AccountID) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.st.accounts[id]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	var out []domain.LedgerEntry
	for i := len(s.st.entries) - 1; i >= 0; i-- {
		if s.st.entries[i].AccountID == id {
			out = append(out, s.st.entries[i])
		}
	}
	return out, nil
}
