package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/ledger"
	"github.com/punchamoorthee/fundledger/internal/models"
	"github.com/punchamoorthee/fundledger/internal/store"
)

// Withdraw pays everything in custody above the reserve the creator paid to
// the beneficiary of a Funded campaign. Once drained, a repeat finds nothing
// available.
func (s *CampaignService) Withdraw(ctx context.Context, caller domain.AccountID, campaignID uuid.UUID) (*models.SettlementResponse, error) {
	resp, err := run(ctx, s.executor, "withdraw", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*models.SettlementResponse, []domain.Event, error) {
		annotate(ctx, campaignID, caller)
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return nil, nil, err
		}
		if caller != c.Beneficiary {
			return nil, nil, domain.ErrUnauthorized
		}
		if c.Status != domain.StatusFunded {
			return nil, nil, domain.ErrCampaignNotFunded
		}

		custody, err := tx.LockAccount(ctx, c.CustodyAccount)
		if err != nil {
			return nil, nil, err
		}
		available := ledger.Withdrawable(custody.Balance, c.Reserve)
		if available == 0 {
			return nil, nil, domain.ErrNoFundsAvailable
		}
		if available < domain.MinWithdrawAmount {
			return nil, nil, domain.ErrWithdrawTooSmall
		}

		tr, err := tx.Transfer(ctx, domain.TransferRequest{
			FromAccountID: c.CustodyAccount,
			ToAccountID:   c.Beneficiary,
			Amount:        available,
			Kind:          domain.TransferWithdraw,
			CampaignID:    &c.ID,
		})
		if err != nil {
			return nil, nil, err
		}

		logger.Infof("campaign %s: %d withdrawn to %d", c.ID, available, c.Beneficiary)
		ev := domain.NewEvent(c.ID, s.now(), domain.FundsWithdrawn{Campaign: c.ID, Beneficiary: c.Beneficiary, Amount: available})
		return &models.SettlementResponse{
			Campaign: c.View(),
			Amount:   available,
			Transfer: tr.Transfer,
		}, []domain.Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	settledAmount.WithLabelValues(string(domain.TransferWithdraw)).Add(float64(resp.Amount))
	return resp, nil
}

// Refund returns caller's held contribution from a Failed campaign. The
// record is marked refunded before value moves, so it pays out at most once.
func (s *CampaignService) Refund(ctx context.Context, caller domain.AccountID, campaignID uuid.UUID) (*models.SettlementResponse, error) {
	resp, err := run(ctx, s.executor, "refund", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*models.SettlementResponse, []domain.Event, error) {
		annotate(ctx, campaignID, caller)
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return nil, nil, err
		}
		if c.Status != domain.StatusFailed {
			return nil, nil, domain.ErrCampaignNotFailed
		}

		r, err := tx.LockDonation(ctx, domain.NewDonationKey(caller, campaignID))
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, domain.ErrNoFundsAvailable
		}
		if err != nil {
			return nil, nil, err
		}
		if r.Donor != caller {
			return nil, nil, domain.ErrUnauthorized
		}
		amount, err := r.Release()
		if err != nil {
			return nil, nil, err
		}
		if err := tx.UpdateDonation(ctx, r); err != nil {
			return nil, nil, err
		}

		tr, err := tx.Transfer(ctx, domain.TransferRequest{
			FromAccountID: c.CustodyAccount,
			ToAccountID:   caller,
			Amount:        amount,
			Kind:          domain.TransferRefund,
			CampaignID:    &c.ID,
		})
		if err != nil {
			return nil, nil, err
		}

		logger.Infof("campaign %s: %d refunded to %d", c.ID, amount, caller)
		d := models.NewDonation(r)
		ev := domain.NewEvent(c.ID, s.now(), domain.RefundProcessed{Campaign: c.ID, Donor: caller, Amount: amount})
		return &models.SettlementResponse{
			Campaign: c.View(),
			Amount:   amount,
			Transfer: tr.Transfer,
			Donation: &d,
		}, []domain.Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	settledAmount.WithLabelValues(string(domain.TransferRefund)).Add(float64(resp.Amount))
	return resp, nil
}
