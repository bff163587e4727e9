package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/models"
)

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.InitialBalance < 0 {
		respondWithError(w, http.StatusUnprocessableEntity, "Initial balance must not be negative")
		return
	}
	if req.InitialBalance > 0 && !h.allowMint {
		respondWithError(w, http.StatusForbidden, "Accounts cannot be opened with a balance in this environment")
		return
	}

	id, err := h.store.CreateAccount(r.Context(), req.InitialBalance)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/accounts/%d", id))
	respondWithJSON(w, http.StatusCreated, map[string]domain.AccountID{"account_id": id})
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	account, err := h.store.GetAccount(r.Context(), domain.AccountID(id))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) GetAccountEntriesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}

	entries, err := h.store.GetEntries(r.Context(), domain.AccountID(id))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	respondWithJSON(w, http.StatusOK, entries)
}

// CreateTransferHandler moves value between two user accounts. The caller
// must own the debited account and supply an Idempotency-Key.
func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing or invalid "+CallerHeader+" header")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondWithError(w, http.StatusBadRequest, "Missing Idempotency-Key header")
		return
	}

	body, err := readBody(r)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}

	var req domain.TransferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.FromAccountID != who {
		respondWithAppError(w, domain.ErrUnauthorized)
		return
	}

	resp, existing, err := h.transfers.ProcessTransfer(r.Context(), req, idempotencyKey, requestHash(r, who, body))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(existing.ResponseStatus)
		w.Write(existing.ResponseBody)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}
