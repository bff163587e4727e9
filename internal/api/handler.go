package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/fundledger/internal/apperr"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/service"
	"github.com/punchamoorthee/fundledger/internal/store"
)

// CallerHeader carries the authenticated account id set by the fronting gateway.
const CallerHeader = "X-Account-ID"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fundledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	store     store.Store
	transfers *service.TransferService
	campaigns *service.CampaignService
	allowMint bool
}

// NewHandler wires the HTTP surface. allowMint permits opening accounts with
// a starting balance and must be false wherever balances are real.
func NewHandler(s store.Store, transfers *service.TransferService, campaigns *service.CampaignService, allowMint bool) *Handler {
	return &Handler{store: s, transfers: transfers, campaigns: campaigns, allowMint: allowMint}
}

// Router returns every route, including /metrics and /health.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods("POST")
	v1.HandleFunc("/accounts/{id}", h.GetAccountHandler).Methods("GET")
	v1.HandleFunc("/accounts/{id}/entries", h.GetAccountEntriesHandler).Methods("GET")
	v1.HandleFunc("/transfers", h.CreateTransferHandler).Methods("POST")

	v1.HandleFunc("/campaigns", h.CreateCampaignHandler).Methods("POST")
	v1.HandleFunc("/campaigns", h.ListCampaignsHandler).Methods("GET")
	v1.HandleFunc("/campaigns/{id}", h.GetCampaignHandler).Methods("GET")
	v1.HandleFunc("/campaigns/{id}/events", h.GetCampaignEventsHandler).Methods("GET")
	v1.HandleFunc("/campaigns/{id}/donations", h.OpenDonationHandler).Methods("POST")
	v1.HandleFunc("/campaigns/{id}/donations/{donor}", h.GetDonationHandler).Methods("GET")
	v1.HandleFunc("/campaigns/{id}/donate", h.DonateHandler).Methods("POST")
	v1.HandleFunc("/campaigns/{id}/resolve", h.ResolveHandler).Methods("POST")
	v1.HandleFunc("/campaigns/{id}/withdraw", h.WithdrawHandler).Methods("POST")
	v1.HandleFunc("/campaigns/{id}/refund", h.RefundHandler).Methods("POST")
	return r
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under the route template.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpoint))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

// caller reads the authenticated account from CallerHeader.
func caller(r *http.Request) (domain.AccountID, bool) {
	id, err := strconv.ParseInt(r.Header.Get(CallerHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return domain.AccountID(id), true
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	return body, nil
}

// requestHash covers the route and caller as well as the body, so a key
// cannot be replayed against a different campaign or account.
func requestHash(r *http.Request, who domain.AccountID, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s %s %d\n", r.Method, r.URL.Path, who)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotent makes the operation run with the returned context exactly-once
// when the client sent an Idempotency-Key.
func idempotent(r *http.Request, who domain.AccountID, body []byte) context.Context {
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		return r.Context()
	}
	return service.WithIdempotency(r.Context(), key, requestHash(r, who, body))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

func pathInt(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code,omitempty"`
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindExhaustion:
		return http.StatusUnprocessableEntity
	case apperr.KindState, apperr.KindDuplicate, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondWithResult writes a fresh result, a stored idempotent replay, or the
// error that stopped the operation.
func respondWithResult(w http.ResponseWriter, code int, payload any, err error) {
	var replay *service.Replay
	switch {
	case errors.As(err, &replay):
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(replay.Status)
		w.Write(replay.Body)
	case err != nil:
		respondWithAppError(w, err)
	default:
		respondWithJSON(w, code, payload)
	}
}

func respondWithAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && apperr.KindOf(err) == "" {
		logger.Errorf("request failed: %v", err)
		respondWithError(w, status, "Internal Server Error")
		return
	}
	respondWithJSON(w, status, errorResponse{Error: err.Error(), Code: apperr.CodeOf(err)})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
