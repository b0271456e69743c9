package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dispatch/internal/engine"
)

// CreateCallHandler handles POST /api/calls/new: the intake event that
// opens a call.
func (h *Handler) CreateCallHandler(w http.ResponseWriter, r *http.Request) {
	var input engine.CreateCallInput
	if err := decodeJSON(w, r, &input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	call, err := h.Service.CreateCall(r.Context(), input)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// GetCallsHandler returns the open calls a tenant may act on: owned plus
// shared via marketplace membership.
func (h *Handler) GetCallsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	companyCode := strings.TrimSpace(r.URL.Query().Get("companyCode"))
	if companyCode == "" {
		http.Error(w, "Missing companyCode parameter", http.StatusBadRequest)
		return
	}

	calls, err := h.Service.ListOpenCallsForTenant(r.Context(), companyCode, params.Limit, params.Offset)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) GetCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	if callID == "" {
		http.Error(w, "Missing callId", http.StatusBadRequest)
		return
	}

	call, err := h.Service.GetCall(r.Context(), callID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// CancelCallHandler handles PUT /api/calls/{callId}/cancel. Only the
// owning tenant's owner/admin may cancel, and only while the call is open.
func (h *Handler) CancelCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	memberID := r.URL.Query().Get("memberId")
	if callID == "" || memberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	call, err := h.Service.CancelCall(r.Context(), callID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// ClaimCallHandler handles POST /api/calls/{callId}/claim: the direct,
// first-come assignment path. Exactly one concurrent claimant wins; the
// rest get 409.
func (h *Handler) ClaimCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	memberID := r.URL.Query().Get("memberId")
	if callID == "" || memberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	call, err := h.Service.ClaimDirect(r.Context(), callID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// ShareCallHandler handles POST /api/calls/{callId}/share. The response
// carries the pro-rated daily fee for the caller to confirm; the share is
// already recorded.
func (h *Handler) ShareCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	memberID := r.URL.Query().Get("memberId")
	if callID == "" || memberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	var input struct {
		MarketplaceID string `json:"marketplaceId"`
	}
	if err := decodeJSON(w, r, &input); err != nil || input.MarketplaceID == "" {
		http.Error(w, "Missing marketplaceId", http.StatusBadRequest)
		return
	}

	result, err := h.Service.ShareToMarketplace(r.Context(), callID, input.MarketplaceID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetCallEventsHandler returns the audit trail of a call.
func (h *Handler) GetCallEventsHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callId")
	memberID := r.URL.Query().Get("memberId")
	if callID == "" || memberID == "" {
		http.Error(w, "Missing callId or memberId", http.StatusBadRequest)
		return
	}

	events, err := h.Service.ListCallEvents(r.Context(), callID, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetTenantStatsHandler handles GET /api/stats?companyCode=...
func (h *Handler) GetTenantStatsHandler(w http.ResponseWriter, r *http.Request) {
	companyCode := strings.TrimSpace(r.URL.Query().Get("companyCode"))
	if companyCode == "" {
		http.Error(w, "Missing companyCode parameter", http.StatusBadRequest)
		return
	}

	stats, err := h.Service.TenantStats(r.Context(), companyCode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// On-call status handlers. The on-call record is default-claimant context
// for the UI, not allocation input.

func (h *Handler) GetOnCallHandler(w http.ResponseWriter, r *http.Request) {
	companyCode := r.URL.Query().Get("companyCode")
	if companyCode == "" {
		http.Error(w, "Missing companyCode parameter", http.StatusBadRequest)
		return
	}

	status, err := h.Service.GetOnCall(r.Context(), companyCode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) SetOnCallHandler(w http.ResponseWriter, r *http.Request) {
	companyCode := r.URL.Query().Get("companyCode")
	memberID := r.URL.Query().Get("memberId")
	if companyCode == "" || memberID == "" {
		http.Error(w, "Missing companyCode or memberId", http.StatusBadRequest)
		return
	}

	status, err := h.Service.SetOnCall(r.Context(), companyCode, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ClearOnCallHandler(w http.ResponseWriter, r *http.Request) {
	companyCode := r.URL.Query().Get("companyCode")
	if companyCode == "" {
		http.Error(w, "Missing companyCode parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.ClearOnCall(r.Context(), companyCode); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
