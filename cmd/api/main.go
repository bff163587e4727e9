package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/logger"
	"github.com/punchamoorthee/fundledger/internal/api"
	"github.com/punchamoorthee/fundledger/internal/config"
	"github.com/punchamoorthee/fundledger/internal/events"
	"github.com/punchamoorthee/fundledger/internal/ledger"
	"github.com/punchamoorthee/fundledger/internal/resolver"
	"github.com/punchamoorthee/fundledger/internal/service"
	"github.com/punchamoorthee/fundledger/internal/store"
	"github.com/punchamoorthee/fundledger/internal/store/memstore"
	"github.com/punchamoorthee/fundledger/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

func main() {
	defer logger.Init("fundledger", true, false, io.Discard).Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "fundledger", cfg.OTelEndpoint)
	if err != nil {
		logger.Fatalf("Unable to start tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Unable to open store: %v", err)
	}
	defer st.Close()

	// Initialize Layers
	bus := events.NewBus()
	bus.Subscribe(events.LogHandler)

	campaigns := service.NewCampaignService(st,
		service.WithBus(bus),
		service.WithReservePolicy(ledger.ReservePolicy{
			PerByteYear:    cfg.RentPerByteYear,
			ExemptionYears: cfg.RentExemptionYears,
		}),
	)
	transfers := service.NewTransferService(st)
	handler := api.NewHandler(st, transfers, campaigns, !cfg.Production())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server starting on :%s (%s, %s backend)", cfg.Port, cfg.Env, cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return resolver.New(campaigns, cfg.ResolverInterval).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Backend == config.BackendMemory {
		logger.Warning("Using the in-memory store; balances are lost on exit")
		return memstore.New(nil), nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.DBSource)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, pg.Db); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}
