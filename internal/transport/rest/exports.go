package rest

import (
	"log"
	"net/http"

	"debtboard/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) startSummaryExport(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exports.StartSummaryExport(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("[HTTP] start summary export error: %v", err)
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "export queued", map[string]interface{}{
		"export_id": exportID,
	})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exports.GetExports(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("[HTTP] list exports error: %v", err)
		ErrorInternal(w, "failed to load exports")
		return
	}

	Success(w, "exports", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID := chi.URLParam(r, "export_id")
	status, err := h.exports.GetExport(r.Context(), exportID, identity.UserID)
	if err != nil {
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "export", status)
}
