package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dispatch/internal/engine"
)

// CreateMarketplaceHandler handles POST /api/marketplaces/new.
func (h *Handler) CreateMarketplaceHandler(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("memberId")
	if memberID == "" {
		http.Error(w, "Missing memberId parameter", http.StatusBadRequest)
		return
	}

	var input engine.CreateMarketplaceInput
	if err := decodeJSON(w, r, &input); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	marketplace, err := h.Service.CreateMarketplace(r.Context(), input, memberID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketplace)
}

// GetMarketplacesHandler handles GET /api/marketplaces?companyCode=...
func (h *Handler) GetMarketplacesHandler(w http.ResponseWriter, r *http.Request) {
	companyCode := strings.TrimSpace(r.URL.Query().Get("companyCode"))
	if companyCode == "" {
		http.Error(w, "Missing companyCode parameter", http.StatusBadRequest)
		return
	}

	marketplaces, err := h.Service.ListMarketplacesForTenant(r.Context(), companyCode)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketplaces)
}

// JoinMarketplaceHandler handles PUT /api/marketplaces/{marketplaceId}/join.
// Idempotent.
func (h *Handler) JoinMarketplaceHandler(w http.ResponseWriter, r *http.Request) {
	marketplaceID := chi.URLParam(r, "marketplaceId")
	memberID := r.URL.Query().Get("memberId")
	if marketplaceID == "" || memberID == "" {
		http.Error(w, "Missing marketplaceId or memberId", http.StatusBadRequest)
		return
	}

	if err := h.Service.JoinMarketplace(r.Context(), marketplaceID, memberID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// LeaveMarketplaceHandler handles PUT /api/marketplaces/{marketplaceId}/leave.
// Leaving does not retract calls already shared while a member.
func (h *Handler) LeaveMarketplaceHandler(w http.ResponseWriter, r *http.Request) {
	marketplaceID := chi.URLParam(r, "marketplaceId")
	memberID := r.URL.Query().Get("memberId")
	if marketplaceID == "" || memberID == "" {
		http.Error(w, "Missing marketplaceId or memberId", http.StatusBadRequest)
		return
	}

	if err := h.Service.LeaveMarketplace(r.Context(), marketplaceID, memberID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// GetMarketplaceStatsHandler handles GET /api/marketplaces/{marketplaceId}/stats.
func (h *Handler) GetMarketplaceStatsHandler(w http.ResponseWriter, r *http.Request) {
	marketplaceID := chi.URLParam(r, "marketplaceId")
	if marketplaceID == "" {
		http.Error(w, "Missing marketplaceId", http.StatusBadRequest)
		return
	}

	stats, err := h.Service.MarketplaceStats(r.Context(), marketplaceID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
