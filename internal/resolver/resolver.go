// Package resolver closes campaigns whose deadline has passed. It stands in
// for the external scheduler that would otherwise call resolve on time.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/models"
	"golang.org/x/sync/errgroup"
)

var resolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fundledger_resolver_campaigns_total",
	Help: "Campaigns closed by the deadline resolver, by resulting status",
}, []string{"status"})

// Campaigns is the part of the campaign service the resolver drives.
type Campaigns interface {
	DueCampaigns(ctx context.Context, limit int) ([]uuid.UUID, error)
	ResolveCampaign(ctx context.Context, id uuid.UUID) (*models.ResolveResponse, error)
}

type Resolver struct {
	campaigns Campaigns
	interval  time.Duration
	batch     int
	workers   int
}

func New(campaigns Campaigns, interval time.Duration) *Resolver {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Resolver{campaigns: campaigns, interval: interval, batch: 100, workers: 4}
}

// Run resolves due campaigns every interval until ctx is cancelled.
func (r *Resolver) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.Warningf("resolver sweep: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep resolves one batch of due campaigns and returns how many it closed.
// Campaigns closed concurrently by someone else are skipped.
func (r *Resolver) Sweep(ctx context.Context) (int, error) {
	ids, err := r.campaigns.DueCampaigns(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	closed := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			resp, err := r.campaigns.ResolveCampaign(gctx, id)
			switch {
			case err == nil:
				closed[i] = true
				resolvedTotal.WithLabelValues(string(resp.Campaign.Status)).Inc()
				return nil
			case errors.Is(err, domain.ErrCampaignAlreadyResolved), errors.Is(err, domain.ErrCampaignNotEnded):
				return nil
			default:
				return err
			}
		})
	}
	err = g.Wait()

	n := 0
	for _, ok := range closed {
		if ok {
			n++
		}
	}
	if n > 0 {
		logger.Infof("resolver closed %d campaign(s)", n)
	}
	return n, err
}
