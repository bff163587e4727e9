package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/apperr"
	"github.com/punchamoorthee/fundledger/internal/domain"
)

var (
	ErrIdempotencyConflict = apperr.New(apperr.KindConflict, "idempotency_in_progress", "request in progress")
	ErrIdempotencyMismatch = apperr.New(apperr.KindValidation, "idempotency_mismatch", "key reuse with mismatched payload")
)

// Store is the persistence boundary. Mutations only happen inside InTx.
type Store interface {
	// InTx runs fn as one atomic unit of work. Every write made through tx
	// is committed if fn returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	// ListCampaigns pages through campaigns newest first. An empty status
	// matches every campaign.
	ListCampaigns(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Campaign, error)
	GetDonation(ctx context.Context, key domain.DonationKey) (*domain.DonationRecord, error)
	ListEvents(ctx context.Context, campaignID uuid.UUID, afterSeq int64) ([]domain.Event, error)
	// ListResolvable returns Active campaigns whose end date is at or before now.
	ListResolvable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// CreateAccount opens a user account holding balance.
	CreateAccount(ctx context.Context, balance int64) (domain.AccountID, error)
	GetAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	GetEntries(ctx context.Context, id domain.AccountID) ([]domain.LedgerEntry, error)

	Close()
}

// Tx is the view of the store inside one unit of work. Lock methods hold the
// row until the unit of work ends, so two units touching the same campaign,
// donation record or account never interleave.
type Tx interface {
	CreateAccount(ctx context.Context, kind domain.AccountKind, balance int64) (domain.AccountID, error)
	// LockAccount locks an account row and returns it.
	LockAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	// Transfer moves value between two accounts, locking both in id order,
	// and records the double-entry legs.
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResponse, error)

	InsertCampaign(ctx context.Context, c *domain.Campaign) error
	LockCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	UpdateCampaign(ctx context.Context, c *domain.Campaign) error

	// InsertDonation fails with domain.ErrRecordExists if the key is taken.
	InsertDonation(ctx context.Context, r *domain.DonationRecord) error
	LockDonation(ctx context.Context, key domain.DonationKey) (*domain.DonationRecord, error)
	UpdateDonation(ctx context.Context, r *domain.DonationRecord) error

	// AppendEvents stores events in order and assigns their Seq.
	AppendEvents(ctx context.Context, events []domain.Event) ([]domain.Event, error)

	// ReserveIdempotencyKey claims key for this unit of work. If the key was
	// already completed with the same request hash, the stored record is
	// returned and the caller must replay it instead of executing.
	ReserveIdempotencyKey(ctx context.Context, key, requestHash string) (*domain.IdempotencyRecord, error)
	CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte) error
}
