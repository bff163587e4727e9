package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/store"
)

var (
	ErrAccountNotFound     = domain.ErrAccountNotFound
	ErrInsufficientFunds   = domain.ErrInsufficientFunds
	ErrIdempotencyConflict = store.ErrIdempotencyConflict
	ErrIdempotencyMismatch = store.ErrIdempotencyMismatch
)

// TransferService moves value directly between user accounts.
type TransferService struct {
	executor
}

func NewTransferService(st store.Store) *TransferService {
	return &TransferService{executor: executor{store: st}}
}

// ProcessTransfer executes the double-entry transfer as one unit of work.
// When idempotencyKey was already completed for the same request hash, the
// stored record is returned instead and nothing moves.
func (s *TransferService) ProcessTransfer(ctx context.Context, req domain.TransferRequest, idempotencyKey string, reqHash string) (*domain.TransferResponse, *domain.IdempotencyRecord, error) {
	req.Kind = domain.TransferDirect
	req.CampaignID = nil
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	// Account kinds never change, so custody is rejected before any row lock.
	// Settlement locks custody first; a direct transfer must never hold a
	// user row while waiting on one.
	if err := s.checkKinds(ctx, req); err != nil {
		return nil, nil, err
	}

	if idempotencyKey != "" {
		ctx = WithIdempotency(ctx, idempotencyKey, reqHash)
	}
	resp, err := run(ctx, s.executor, "transfer", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*domain.TransferResponse, []domain.Event, error) {
		resp, err := tx.Transfer(ctx, req)
		return resp, nil, err
	})

	var replay *Replay
	if errors.As(err, &replay) {
		return nil, &domain.IdempotencyRecord{
			Key:            idempotencyKey,
			RequestHash:    reqHash,
			Status:         "completed",
			ResponseBody:   replay.Body,
			ResponseStatus: replay.Status,
		}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return resp, nil, nil
}

func (s *TransferService) checkKinds(ctx context.Context, req domain.TransferRequest) error {
	from, err := s.store.GetAccount(ctx, req.FromAccountID)
	if err != nil {
		return err
	}
	to, err := s.store.GetAccount(ctx, req.ToAccountID)
	if err != nil {
		return err
	}
	return req.CheckAccounts(from, to)
}
