package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/punchamoorthee/fundledger/internal/domain"
)

const uniqueViolation = "23505"

type pgTx struct {
	tx pgx.Tx
}

var _ Tx = (*pgTx)(nil)

func (t *pgTx) CreateAccount(ctx context.Context, kind domain.AccountKind, balance int64) (domain.AccountID, error) {
	var id domain.AccountID
	err := t.tx.QueryRow(ctx, "INSERT INTO accounts (kind, balance) VALUES ($1, $2) RETURNING id", string(kind), balance).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

func (t *pgTx) LockAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1 FOR UPDATE", id))
}

// Transfer executes the double-entry transfer with deterministic locking.
func (t *pgTx) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Kind == "" {
		req.Kind = domain.TransferDirect
	}

	// Acquire locks in ID order (deadlock prevention)
	acc1, acc2 := req.FromAccountID, req.ToAccountID
	if acc1 > acc2 {
		acc1, acc2 = acc2, acc1
	}
	first, err := t.LockAccount(ctx, acc1)
	if err != nil {
		return nil, err
	}
	second, err := t.LockAccount(ctx, acc2)
	if err != nil {
		return nil, err
	}

	from, to := first, second
	if req.FromAccountID != acc1 {
		from, to = second, first
	}
	if err := req.CheckAccounts(from, to); err != nil {
		return nil, err
	}
	if from.Balance < req.Amount {
		return nil, domain.ErrInsufficientFunds
	}
	if _, err := domain.CheckedAdd(to.Balance, req.Amount); err != nil {
		return nil, err
	}

	var transferID int64
	var createdAt time.Time
	err = t.tx.QueryRow(ctx,
		"INSERT INTO transfers (from_account_id, to_account_id, amount, kind, campaign_id, status) VALUES ($1, $2, $3, $4, $5, 'completed') RETURNING id, created_at",
		req.FromAccountID, req.ToAccountID, req.Amount, string(req.Kind), req.CampaignID,
	).Scan(&transferID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("transfer insert failed: %w", err)
	}

	// Debit and credit legs
	legs := []domain.LedgerEntry{
		{TransferID: transferID, AccountID: req.FromAccountID, Delta: -req.Amount, CreatedAt: createdAt.UTC()},
		{TransferID: transferID, AccountID: req.ToAccountID, Delta: req.Amount, CreatedAt: createdAt.UTC()},
	}
	rows, err := t.tx.Query(ctx,
		"INSERT INTO ledger_entries (transfer_id, account_id, delta, created_at) VALUES ($1, $2, $3, $6), ($1, $4, $5, $6) RETURNING id",
		transferID, req.FromAccountID, -req.Amount, req.ToAccountID, req.Amount, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger entry failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("ledger entry failed: %w", err)
	}
	for i := range legs {
		if i < len(ids) {
			legs[i].ID = ids[i]
		}
	}

	if _, err = t.tx.Exec(ctx, "UPDATE accounts SET balance = balance - $1 WHERE id = $2", req.Amount, req.FromAccountID); err != nil {
		return nil, fmt.Errorf("debit failed: %w", err)
	}
	if _, err = t.tx.Exec(ctx, "UPDATE accounts SET balance = balance + $1 WHERE id = $2", req.Amount, req.ToAccountID); err != nil {
		return nil, fmt.Errorf("credit failed: %w", err)
	}

	return &domain.TransferResponse{
		Transfer: domain.Transfer{
			ID:            transferID,
			FromAccountID: req.FromAccountID,
			ToAccountID:   req.ToAccountID,
			Amount:        req.Amount,
			Kind:          req.Kind,
			CampaignID:    req.CampaignID,
			Status:        "completed",
			CreatedAt:     createdAt.UTC(),
		},
		Entries: legs,
	}, nil
}

func (t *pgTx) InsertCampaign(ctx context.Context, c *domain.Campaign) error {
	_, err := t.tx.Exec(ctx,
		"INSERT INTO campaigns ("+campaignColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		c.ID, c.Creator, c.Beneficiary, c.CustodyAccount, c.Title, c.Description,
		c.Goal, c.DonationUnit, c.Raised, c.Reserve, c.EndDate, string(c.Status), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (t *pgTx) LockCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return scanCampaign(t.tx.QueryRow(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = $1 FOR UPDATE", id))
}

// UpdateCampaign persists the mutable fields. Everything else is fixed at creation.
func (t *pgTx) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	tag, err := t.tx.Exec(ctx, "UPDATE campaigns SET raised = $1, status = $2 WHERE id = $3",
		c.Raised, string(c.Status), c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func (t *pgTx) InsertDonation(ctx context.Context, r *domain.DonationRecord) error {
	state, amount := r.MarshalState()
	_, err := t.tx.Exec(ctx,
		"INSERT INTO donations (key, campaign_id, donor, state, amount) VALUES ($1, $2, $3, $4, $5)",
		string(r.Key), r.CampaignID, r.Donor, state, amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrRecordExists
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (t *pgTx) LockDonation(ctx context.Context, key domain.DonationKey) (*domain.DonationRecord, error) {
	return scanDonation(t.tx.QueryRow(ctx,
		"SELECT key, campaign_id, donor, state, amount FROM donations WHERE key = $1 FOR UPDATE", string(key)))
}

func (t *pgTx) UpdateDonation(ctx context.Context, r *domain.DonationRecord) error {
	state, amount := r.MarshalState()
	tag, err := t.tx.Exec(ctx, "UPDATE donations SET state = $1, amount = $2 WHERE key = $3", state, amount, string(r.Key))
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (t *pgTx) AppendEvents(ctx context.Context, events []domain.Event) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", ev.Kind, err)
		}
		err = t.tx.QueryRow(ctx,
			"INSERT INTO campaign_events (campaign_id, kind, payload, occurred_at) VALUES ($1, $2, $3, $4) RETURNING seq",
			ev.CampaignID, string(ev.Kind), payload, ev.OccurredAt,
		).Scan(&ev.Seq)
		if err != nil {
			return nil, fmt.Errorf("append event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (t *pgTx) ReserveIdempotencyKey(ctx context.Context, key, requestHash string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	var status *int
	var body []byte
	err := t.tx.QueryRow(ctx,
		"SELECT key, request_hash, status, response_status, response_body FROM idempotency_keys WHERE key = $1",
		key,
	).Scan(&rec.Key, &rec.RequestHash, &rec.Status, &status, &body)
	if err == nil {
		if rec.RequestHash != requestHash {
			return nil, ErrIdempotencyMismatch
		}
		if rec.Status != "completed" || status == nil {
			return nil, ErrIdempotencyConflict
		}
		rec.ResponseStatus = *status
		rec.ResponseBody = body
		return &rec, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("idempotency query failed: %w", err)
	}

	_, err = t.tx.Exec(ctx,
		"INSERT INTO idempotency_keys (key, request_hash, status) VALUES ($1, $2, 'in_progress')",
		key, requestHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrIdempotencyConflict
		}
		return nil, fmt.Errorf("key reservation failed: %w", err)
	}
	return nil, nil
}

func (t *pgTx) CompleteIdempotencyKey(ctx context.Context, key string, status int, body []byte) error {
	_, err := t.tx.Exec(ctx,
		"UPDATE idempotency_keys SET status = 'completed', response_status = $1, response_body = $2 WHERE key = $3",
		status, body, key,
	)
	if err != nil {
		return fmt.Errorf("idempotency update failed: %w", err)
	}
	return nil
}
