package service

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/events"
	"github.com/punchamoorthee/fundledger/internal/ledger"
	"github.com/punchamoorthee/fundledger/internal/models"
	"github.com/punchamoorthee/fundledger/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CampaignService runs every campaign operation as one unit of work: the
// state change, the value movement and the emitted events commit together or
// not at all.
type CampaignService struct {
	executor
	now     func() time.Time
	newID   func() uuid.UUID
	reserve ledger.ReservePolicy
}

// Option configures a CampaignService.
type Option func(*CampaignService)

// WithClock overrides the time source used for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *CampaignService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides campaign id generation.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *CampaignService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithReservePolicy(p ledger.ReservePolicy) Option {
	return func(s *CampaignService) { s.reserve = p }
}

// WithBus publishes committed events to bus.
func WithBus(bus *events.Bus) Option {
	return func(s *CampaignService) { s.bus = bus }
}

func NewCampaignService(st store.Store, opts ...Option) *CampaignService {
	s := &CampaignService{
		executor: executor{store: st},
		now:      time.Now,
		newID:    uuid.New,
		reserve:  ledger.DefaultReservePolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CampaignReserve is the balance a campaign's custody account always retains.
func (s *CampaignService) CampaignReserve() (int64, error) {
	return s.reserve.MinimumBalance(domain.CampaignStorageSize)
}

// CreateCampaign opens a campaign and its custody account. The creator pays
// the custody reserve, so everything above it is donated value.
func (s *CampaignService) CreateCampaign(ctx context.Context, creator domain.AccountID, input domain.CreateCampaignInput) (*models.CampaignResponse, error) {
	c, err := domain.NewCampaign(creator, input, s.now, s.newID)
	if err != nil {
		return nil, err
	}
	reserve, err := s.CampaignReserve()
	if err != nil {
		return nil, err
	}

	return run(ctx, s.executor, "create_campaign", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*models.CampaignResponse, []domain.Event, error) {
		if err := lockAccounts(ctx, tx, creator, input.Beneficiary); err != nil {
			return nil, nil, err
		}
		custody, err := tx.CreateAccount(ctx, domain.AccountCustody, 0)
		if err != nil {
			return nil, nil, err
		}
		c.CustodyAccount = custody
		c.Reserve = reserve

		resp := &models.CampaignResponse{}
		if reserve > 0 {
			tr, err := tx.Transfer(ctx, domain.TransferRequest{
				FromAccountID: creator,
				ToAccountID:   custody,
				Amount:        reserve,
				Kind:          domain.TransferReserve,
				CampaignID:    &c.ID,
			})
			if err != nil {
				return nil, nil, err
			}
			resp.Reserve = &tr.Transfer
		}
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return nil, nil, err
		}
		resp.Campaign = *c

		logger.Infof("campaign %s created by %d: goal=%d unit=%d ends=%s", c.ID, creator, c.Goal, c.DonationUnit, c.EndDate.Format(time.RFC3339))
		return resp, []domain.Event{
			domain.NewEvent(c.ID, s.now(), domain.CampaignCreated{Campaign: c.ID, Title: c.Title, Goal: c.Goal}),
		}, nil
	})
}

// OpenDonationRecord creates the empty record donor needs before donating.
// No value moves.
func (s *CampaignService) OpenDonationRecord(ctx context.Context, donor domain.AccountID, campaignID uuid.UUID) (*models.DonationResponse, error) {
	return run(ctx, s.executor, "open_donation_record", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*models.DonationResponse, []domain.Event, error) {
		if _, err := tx.LockCampaign(ctx, campaignID); err != nil {
			return nil, nil, err
		}
		if _, err := tx.LockAccount(ctx, donor); err != nil {
			return nil, nil, err
		}
		r := domain.NewDonationRecord(donor, campaignID)
		if err := tx.InsertDonation(ctx, r); err != nil {
			return nil, nil, err
		}
		return &models.DonationResponse{Donation: models.NewDonation(r)}, nil, nil
	})
}

// Donate moves exactly one donation unit from caller into campaign custody.
// The campaign turns Funded the moment Raised reaches Goal.
func (s *CampaignService) Donate(ctx context.Context, caller domain.AccountID, campaignID uuid.UUID, amount int64) (*models.DonateResponse, error) {
	resp, err := run(ctx, s.executor, "donate", http.StatusCreated, func(ctx context.Context, tx store.Tx) (*models.DonateResponse, []domain.Event, error) {
		annotate(ctx, campaignID, caller)
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return nil, nil, err
		}
		r, err := tx.LockDonation(ctx, domain.NewDonationKey(caller, campaignID))
		if err != nil {
			return nil, nil, err
		}

		now := s.now()
		funded, err := c.ReceiveDonation(r, amount, now)
		if err != nil {
			return nil, nil, err
		}
		tr, err := tx.Transfer(ctx, domain.TransferRequest{
			FromAccountID: caller,
			ToAccountID:   c.CustodyAccount,
			Amount:        amount,
			Kind:          domain.TransferDonation,
			CampaignID:    &c.ID,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := tx.UpdateCampaign(ctx, c); err != nil {
			return nil, nil, err
		}
		if err := tx.UpdateDonation(ctx, r); err != nil {
			return nil, nil, err
		}

		evs := []domain.Event{
			domain.NewEvent(c.ID, now, domain.DonationReceived{Campaign: c.ID, Donor: caller, Amount: amount}),
		}
		if funded {
			logger.Infof("campaign %s funded: raised=%d goal=%d", c.ID, c.Raised, c.Goal)
			evs = append(evs, domain.NewEvent(c.ID, now, domain.CampaignFunded{Campaign: c.ID, Raised: c.Raised}))
		}
		return &models.DonateResponse{
			Campaign: c.View(),
			Donation: models.NewDonation(r),
			Transfer: tr.Transfer,
			Funded:   funded,
		}, evs, nil
	})
	if err != nil {
		return nil, err
	}
	settledAmount.WithLabelValues(string(domain.TransferDonation)).Add(float64(amount))
	return resp, nil
}

// ResolveCampaign settles an Active campaign whose deadline has passed into
// Funded or Failed. Anyone may trigger it.
func (s *CampaignService) ResolveCampaign(ctx context.Context, campaignID uuid.UUID) (*models.ResolveResponse, error) {
	return run(ctx, s.executor, "resolve", http.StatusOK, func(ctx context.Context, tx store.Tx) (*models.ResolveResponse, []domain.Event, error) {
		annotate(ctx, campaignID, 0)
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return nil, nil, err
		}
		now := s.now()
		status, err := c.ResolveAtDeadline(now)
		if err != nil {
			return nil, nil, err
		}
		if err := tx.UpdateCampaign(ctx, c); err != nil {
			return nil, nil, err
		}

		logger.Infof("campaign %s resolved %s: raised=%d goal=%d", c.ID, status, c.Raised, c.Goal)
		var ev domain.Event
		if status == domain.StatusFunded {
			ev = domain.NewEvent(c.ID, now, domain.CampaignFunded{Campaign: c.ID, Raised: c.Raised})
		} else {
			ev = domain.NewEvent(c.ID, now, domain.CampaignFailed{Campaign: c.ID, Raised: c.Raised})
		}
		return &models.ResolveResponse{Campaign: c.View()}, []domain.Event{ev}, nil
	})
}

// Status is the read-only summary of a campaign.
func (s *CampaignService) Status(ctx context.Context, campaignID uuid.UUID) (*domain.StatusView, error) {
	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	v := c.View()
	return &v, nil
}

func (s *CampaignService) Campaign(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	return s.store.GetCampaign(ctx, campaignID)
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// List pages through campaigns newest first, optionally only those in status.
func (s *CampaignService) List(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	offset = max(offset, 0)
	return s.store.ListCampaigns(ctx, status, limit, offset)
}

// Donation returns donor's record for campaign.
func (s *CampaignService) Donation(ctx context.Context, donor domain.AccountID, campaignID uuid.UUID) (*models.Donation, error) {
	r, err := s.store.GetDonation(ctx, domain.NewDonationKey(donor, campaignID))
	if err != nil {
		return nil, err
	}
	d := models.NewDonation(r)
	return &d, nil
}

// Events lists a campaign's committed events with Seq greater than afterSeq.
func (s *CampaignService) Events(ctx context.Context, campaignID uuid.UUID, afterSeq int64) ([]domain.Event, error) {
	if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, campaignID, afterSeq)
}

// DueCampaigns lists up to limit Active campaigns whose deadline has passed.
func (s *CampaignService) DueCampaigns(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.store.ListResolvable(ctx, s.now(), limit)
}

func annotate(ctx context.Context, campaignID uuid.UUID, caller domain.AccountID) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("campaign.id", campaignID.String()))
	if caller != 0 {
		span.SetAttributes(attribute.Int64("caller.id", int64(caller)))
	}
}

// lockAccounts locks ids in ascending order, matching Transfer's lock order.
func lockAccounts(ctx context.Context, tx store.Tx, ids ...domain.AccountID) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for _, id := range ids {
		if _, err := tx.LockAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
