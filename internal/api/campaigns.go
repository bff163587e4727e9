package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/punchamoorthee/fundledger/internal/domain"
	"github.com/punchamoorthee/fundledger/internal/models"
)

func (h *Handler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing or invalid "+CallerHeader+" header")
		return
	}
	var req models.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	resp, err := h.campaigns.CreateCampaign(r.Context(), who, req.Input())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/campaigns/%s", resp.Campaign.ID))
	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	status, err := h.campaigns.Status(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// ListCampaignsHandler pages through campaigns, newest first. Accepts
// ?status=, ?limit= and ?offset=.
func (h *Handler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var status domain.Status
	if v := q.Get("status"); v != "" {
		s, err := domain.ParseStatus(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = s
	}
	limit, ok := queryInt(q.Get("limit"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, ok := queryInt(q.Get("offset"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	list, err := h.campaigns.List(r.Context(), status, limit, offset)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if list == nil {
		list = []domain.Campaign{}
	}
	respondWithJSON(w, http.StatusOK, models.CampaignListResponse{Campaigns: list})
}

func queryInt(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n >= 0
}

// GetCampaignEventsHandler lists committed events, optionally only those
// after the ?after= sequence number.
func (h *Handler) GetCampaignEventsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid after cursor")
			return
		}
		after = n
	}

	evs, err := h.campaigns.Events(r.Context(), id, after)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if evs == nil {
		evs = []domain.Event{}
	}
	respondWithJSON(w, http.StatusOK, models.EventsResponse{Events: evs})
}

func (h *Handler) OpenDonationHandler(w http.ResponseWriter, r *http.Request) {
	who, id, ok := h.campaignCall(w, r)
	if !ok {
		return
	}
	resp, err := h.campaigns.OpenDonationRecord(r.Context(), who, id)
	respondWithResult(w, http.StatusCreated, resp, err)
}

func (h *Handler) GetDonationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	donor, ok := pathInt(r, "donor")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid donor id")
		return
	}
	d, err := h.campaigns.Donation(r.Context(), domain.AccountID(donor), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) DonateHandler(w http.ResponseWriter, r *http.Request) {
	who, id, ok := h.campaignCall(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}
	var req models.DonateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	resp, err := h.campaigns.Donate(idempotent(r, who, body), who, id, req.Amount)
	respondWithResult(w, http.StatusCreated, resp, err)
}

// ResolveHandler closes a campaign past its deadline. Any caller may do so.
func (h *Handler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return
	}
	resp, err := h.campaigns.ResolveCampaign(r.Context(), id)
	respondWithResult(w, http.StatusOK, resp, err)
}

func (h *Handler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	who, id, ok := h.campaignCall(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}
	resp, err := h.campaigns.Withdraw(idempotent(r, who, body), who, id)
	respondWithResult(w, http.StatusCreated, resp, err)
}

func (h *Handler) RefundHandler(w http.ResponseWriter, r *http.Request) {
	who, id, ok := h.campaignCall(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}
	resp, err := h.campaigns.Refund(idempotent(r, who, body), who, id)
	respondWithResult(w, http.StatusCreated, resp, err)
}

// campaignCall extracts the caller and campaign id shared by every
// authenticated campaign route, answering the request itself on failure.
func (h *Handler) campaignCall(w http.ResponseWriter, r *http.Request) (domain.AccountID, uuid.UUID, bool) {
	who, ok := caller(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing or invalid "+CallerHeader+" header")
		return 0, uuid.Nil, false
	}
	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid campaign id")
		return 0, uuid.Nil, false
	}
	return who, id, true
}
