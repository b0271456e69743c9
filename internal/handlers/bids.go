package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateBidHandler handles POST /api/bids/new under a bidding-enabled
// tenant.
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CallID     string `json:"callId"`
		MemberID   string `json:"memberId"`
		ETAMinutes int    `json:"etaMinutes"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if input.CallID == "" || input.MemberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	bid, err := h.Service.SubmitBid(r.Context(), input.CallID, input.MemberID, input.ETAMinutes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// GetBidsForCallHandler handles GET /api/bids/{callId}/list: pending bids
// in submission order, for the owning tenant's staff.
func (h *Handler) GetBidsForCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	memberID := r.URL.Query().Get("memberId")
	if callID == "" || memberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	bids, err := h.Service.ListBidsForCall(r.Context(), callID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// AcceptBidHandler handles PUT /api/bids/{bidId}/accept. Winning exactly
// one accept per call is the engine's contract; a lost race comes back 409.
func (h *Handler) AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID := chi.URLParam(r, "bidId")
	memberID := r.URL.Query().Get("memberId")
	if bidID == "" || memberID == "" {
		http.Error(w, "Missing bidId or memberId", http.StatusBadRequest)
		return
	}

	bid, err := h.Service.AcceptBid(r.Context(), bidID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// RejectBidHandler handles PUT /api/bids/{bidId}/reject.
func (h *Handler) RejectBidHandler(w http.ResponseWriter, r *http.Request) {
	bidID := chi.URLParam(r, "bidId")
	memberID := r.URL.Query().Get("memberId")
	if bidID == "" || memberID == "" {
		http.Error(w, "Missing bidId or memberId", http.StatusBadRequest)
		return
	}

	bid, err := h.Service.RejectBid(r.Context(), bidID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}
