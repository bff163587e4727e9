package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/store"
	"github.com/punchamoorthee/fundledger/internal/store/memstore"
)

func TestProcessTransfer(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(nil)
	svc := NewTransferService(st)
	from, _ := st.CreateAccount(ctx, 1000)
	to, _ := st.CreateAccount(ctx, 0)
	req := domain.TransferRequest{FromAccountID: from, ToAccountID: to, Amount: 400}

	resp, existing, err := svc.ProcessTransfer(ctx, req, "k-1", "h-1")
	if err != nil || existing != nil {
		t.Fatalf("expected fresh transfer, got existing=%v err=%v", existing, err)
	}
	if resp.Transfer.Kind != domain.TransferDirect || len(resp.Entries) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}

	t.Run("replay returns stored response", func(t *testing.T) {
		resp, existing, err := svc.ProcessTransfer(ctx, req, "k-1", "h-1")
		if err != nil || resp != nil {
			t.Fatalf("expected replay only, got resp=%v err=%v", resp, err)
		}
		if existing.ResponseStatus != http.StatusCreated {
			t.Errorf("expected stored 201, got %d", existing.ResponseStatus)
		}
		var stored domain.TransferResponse
		if err := json.Unmarshal(existing.ResponseBody, &stored); err != nil {
			t.Fatal(err)
		}
		a, _ := st.GetAccount(ctx, from)
		if a.Balance != 600 {
			t.Errorf("expected a single debit, balance %d", a.Balance)
		}
	})

	t.Run("mismatched payload", func(t *testing.T) {
		_, _, err := svc.ProcessTransfer(ctx, req, "k-1", "h-2")
		if !errors.Is(err, ErrIdempotencyMismatch) {
			t.Fatalf("expected mismatch, got %v", err)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		big := req
		big.Amount = 10_000
		_, _, err := svc.ProcessTransfer(ctx, big, "k-2", "h-3")
		if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("expected insufficient funds, got %v", err)
		}
	})

	t.Run("custody accounts are off limits", func(t *testing.T) {
		var custody domain.AccountID
		campaigns := NewCampaignService(st)
		creator, _ := st.CreateAccount(ctx, 10_000_000)
		c, err := campaigns.CreateCampaign(ctx, creator, domain.CreateCampaignInput{
			Beneficiary:  to,
			Goal:         100_000,
			DonationUnit: 100_000,
			EndDate:      start,
		})
		if err != nil {
			t.Fatal(err)
		}
		custody = c.Campaign.CustodyAccount

		drain := domain.TransferRequest{FromAccountID: custody, ToAccountID: to, Amount: 1}
		if _, _, err := svc.ProcessTransfer(ctx, drain, "k-3", "h-4"); !errors.Is(err, domain.ErrCustodyAccount) {
			t.Fatalf("expected custody rejection, got %v", err)
		}
		// A caller cannot relabel a transfer to get around the check.
		drain.Kind = domain.TransferWithdraw
		if _, _, err := svc.ProcessTransfer(ctx, drain, "k-4", "h-5"); !errors.Is(err, domain.ErrCustodyAccount) {
			t.Fatalf("expected custody rejection for relabelled kind, got %v", err)
		}

		// Paying into custody is turned away before a unit of work starts,
		// so it never holds the payer's row while settlement holds custody.
		guarded := NewTransferService(txForbidden{Store: st, t: t})
		deposit := domain.TransferRequest{FromAccountID: to, ToAccountID: custody, Amount: 1}
		if _, _, err := guarded.ProcessTransfer(ctx, deposit, "k-5", "h-6"); !errors.Is(err, domain.ErrCustodyAccount) {
			t.Fatalf("expected custody rejection for a deposit, got %v", err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		ghost := domain.TransferRequest{FromAccountID: from, ToAccountID: 9999, Amount: 1}
		if _, _, err := svc.ProcessTransfer(ctx, ghost, "k-6", "h-7"); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("expected account not found, got %v", err)
		}
	})
}

// txForbidden fails the test if a unit of work is opened.
type txForbidden struct {
	store.Store
	t *testing.T
}

func (s txForbidden) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.t.Error("unit of work opened for a transfer that should be rejected up front")
	return errors.New("unexpected transaction")
}
