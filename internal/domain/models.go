package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AccountKind separates user wallets from campaign custody.
type AccountKind string

const (
	AccountUser    AccountKind = "user"
	AccountCustody AccountKind = "custody"
)

// Account is a balance in the ledger.
type Account struct {
	ID        AccountID   `json:"id"`
	Kind      AccountKind `json:"kind"`
	Balance   int64       `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
}

// TransferKind says why value moved.
type TransferKind string

const (
	TransferDirect   TransferKind = "direct"
	TransferReserve  TransferKind = "reserve"
	TransferDonation TransferKind = "donation"
	TransferWithdraw TransferKind = "withdraw"
	TransferRefund   TransferKind = "refund"
)

// TransferRequest is an instruction to move Amount between two accounts.
type TransferRequest struct {
	FromAccountID AccountID    `json:"from_account_id"`
	ToAccountID   AccountID    `json:"to_account_id"`
	Amount        int64        `json:"amount"`
	Kind          TransferKind `json:"kind,omitempty"`
	CampaignID    *uuid.UUID   `json:"campaign_id,omitempty"`
}

// Validate rejects transfers that could never be applied.
func (r TransferRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSelfTransfer
	}
	return nil
}

// CheckAccounts rejects direct transfers that touch campaign custody.
// Custody balances only move through donation and settlement.
func (r TransferRequest) CheckAccounts(from, to *Account) error {
	if r.Kind != TransferDirect {
		return nil
	}
	if from.Kind == AccountCustody || to.Kind == AccountCustody {
		return ErrCustodyAccount
	}
	return nil
}

// Transfer represents the intent to move money.
type Transfer struct {
	ID            int64        `json:"id"`
	FromAccountID AccountID    `json:"from_account_id"`
	ToAccountID   AccountID    `json:"to_account_id"`
	Amount        int64        `json:"amount"`
	Kind          TransferKind `json:"kind"`
	CampaignID    *uuid.UUID   `json:"campaign_id,omitempty"`
	Status        string       `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// LedgerEntry represents one leg of a double-entry transaction.
// The sum of Deltas for a given TransferID must always equal 0.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	TransferID int64     `json:"transfer_id"`
	AccountID  AccountID `json:"account_id"`
	Delta      int64     `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
}

// TransferResponse is the canonical response structure for 201/200 OK.
type TransferResponse struct {
	Transfer Transfer      `json:"transfer"`
	Entries  []LedgerEntry `json:"entries"`
}

// IdempotencyRecord stores the response state for exact-once delivery.
type IdempotencyRecord struct {
	Key            string          `json:"key"`
	RequestHash    string          `json:"request_hash"`
	Status         string          `json:"status"`
	ResponseBody   json.RawMessage `json:"response_body,omitempty"`
	ResponseStatus int             `json:"response_status,omitempty"`
}
