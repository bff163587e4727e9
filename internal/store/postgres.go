package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/fundledger/internal/domain"
)

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	Db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{Db: pool}, nil
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

// InTx runs fn in a READ COMMITTED transaction. Isolation between units of
// work comes from the row locks taken by the Lock* methods.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

const accountColumns = "id, kind, balance, created_at"

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var kind string
	if err := row.Scan(&a.ID, &kind, &a.Balance, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Kind = domain.AccountKind(kind)
	return &a, nil
}

const campaignColumns = "id, creator, beneficiary, custody_account, title, description, goal, donation_unit, raised, reserve, end_date, status, created_at"

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	var status string
	err := row.Scan(&c.ID, &c.Creator, &c.Beneficiary, &c.CustodyAccount, &c.Title, &c.Description,
		&c.Goal, &c.DonationUnit, &c.Raised, &c.Reserve, &c.EndDate, &status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	if c.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	c.EndDate = c.EndDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanDonation(row pgx.Row) (*domain.DonationRecord, error) {
	var r domain.DonationRecord
	var state string
	var amount int64
	if err := row.Scan(&r.Key, &r.CampaignID, &r.Donor, &state, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	s, err := domain.ParseDonationState(state, amount)
	if err != nil {
		return nil, err
	}
	r.State = s
	return &r, nil
}

// GetCampaign retrieves a campaign without locking it.
func (s *PostgresStore) GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return scanCampaign(s.Db.QueryRow(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id))
}

// ListCampaigns pages newest first; an empty status lists all.
func (s *PostgresStore) ListCampaigns(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Campaign, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetDonation(ctx context.Context, key domain.DonationKey) (*domain.DonationRecord, error) {
	return scanDonation(s.Db.QueryRow(ctx,
		"SELECT key, campaign_id, donor, state, amount FROM donations WHERE key = $1", string(key)))
}

// ListEvents returns a campaign's events with seq greater than afterSeq.
func (s *PostgresStore) ListEvents(ctx context.Context, campaignID uuid.UUID, afterSeq int64) ([]domain.Event, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT seq, campaign_id, kind, payload, occurred_at FROM campaign_events WHERE campaign_id = $1 AND seq > $2 ORDER BY seq",
		campaignID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var kind string
		var payload []byte
		if err := rows.Scan(&ev.Seq, &ev.CampaignID, &kind, &payload, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		if ev.Payload, err = domain.DecodePayload(ev.Kind, payload); err != nil {
			logger.Warningf("skipping event %d: %v", ev.Seq, err)
			continue
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *PostgresStore) ListResolvable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT id FROM campaigns WHERE status = 'active' AND end_date <= $1 ORDER BY end_date LIMIT $2",
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("query resolvable campaigns: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAccount creates a new account holding balance.
func (s *PostgresStore) CreateAccount(ctx context.Context, balance int64) (domain.AccountID, error) {
	var id domain.AccountID
	err := s.Db.QueryRow(ctx, "INSERT INTO accounts (kind, balance) VALUES ('user', $1) RETURNING id", balance).Scan(&id)
	return id, err
}

// GetAccount retrieves a single account by ID.
func (s *PostgresStore) GetAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	return scanAccount(s.Db.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id))
}

// GetEntries retrieves ledger entries for a specific account.
func (s *PostgresStore) GetEntries(ctx context.Context, accountID domain.AccountID) ([]domain.LedgerEntry, error) {
	var exists bool
	err := s.Db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)", accountID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}

	rows, err := s.Db.Query(ctx,
		"SELECT id, transfer_id, account_id, delta, created_at FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC, id DESC",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.TransferID, &entry.AccountID, &entry.Delta, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
