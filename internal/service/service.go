package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/fundledger/internal/apperr"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/events"
	"github.com/punchamoorthee/fundledger/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundledger_operations_total",
		Help: "Custody operations processed, labeled by outcome",
	}, []string{"op", "outcome"})

	settledAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundledger_settled_amount_total",
		Help: "Value moved by donations and settlements, in smallest units",
	}, []string{"kind"})

	tracer trace.Tracer = otel.Tracer("github.com/punchamoorthee/fundledger/internal/service")
)

// Idempotency binds a client-chosen key to the hash of the request it guards.
type Idempotency struct {
	Key         string
	RequestHash string
}

type idempotencyCtxKey struct{}

// WithIdempotency marks the next operation run with ctx as exactly-once under key.
func WithIdempotency(ctx context.Context, key, requestHash string) context.Context {
	return context.WithValue(ctx, idempotencyCtxKey{}, Idempotency{Key: key, RequestHash: requestHash})
}

func idempotencyFrom(ctx context.Context) (Idempotency, bool) {
	v, ok := ctx.Value(idempotencyCtxKey{}).(Idempotency)
	return v, ok && v.Key != ""
}

// Replay is returned instead of a result when the operation's idempotency
// key was already completed. Status and Body are the stored response.
type Replay struct {
	Status int
	Body   json.RawMessage
}

func (r *Replay) Error() string {
	return fmt.Sprintf("idempotent replay (status %d)", r.Status)
}

// executor runs operations as single units of work against the store and
// publishes their events once committed.
type executor struct {
	store store.Store
	bus   *events.Bus
}

type opFunc[T any] func(ctx context.Context, tx store.Tx) (T, []domain.Event, error)

func run[T any](ctx context.Context, ex executor, op string, status int, fn opFunc[T]) (T, error) {
	ctx, span := tracer.Start(ctx, "service."+op)
	defer span.End()

	var (
		zero      T
		result    T
		committed []domain.Event
		replay    *Replay
	)
	idem, guarded := idempotencyFrom(ctx)

	err := ex.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if guarded {
			rec, err := tx.ReserveIdempotencyKey(ctx, idem.Key, idem.RequestHash)
			if err != nil {
				return err
			}
			if rec != nil {
				replay = &Replay{Status: rec.ResponseStatus, Body: rec.ResponseBody}
				return nil
			}
		}

		res, evs, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		if len(evs) > 0 {
			if committed, err = tx.AppendEvents(ctx, evs); err != nil {
				return err
			}
		}
		if guarded {
			body, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("encode %s response: %w", op, err)
			}
			if err := tx.CompleteIdempotencyKey(ctx, idem.Key, status, body); err != nil {
				return err
			}
		}
		result = res
		return nil
	})
	if err != nil {
		outcome := string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "error"
			logger.Errorf("%s failed: %v", op, err)
		}
		opsTotal.WithLabelValues(op, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}
	if replay != nil {
		opsTotal.WithLabelValues(op, "replayed").Inc()
		return zero, replay
	}

	opsTotal.WithLabelValues(op, "ok").Inc()
	if ex.bus != nil {
		ex.bus.Publish(committed...)
	}
	return result, nil
}
