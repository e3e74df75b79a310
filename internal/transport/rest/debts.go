package rest

import (
	"context"
	"errors"
	"log"
	"net/http"

	"debtboard/internal/service"
)

// Snapshot endpoints return the stored JSON blobs verbatim; the pipeline is
// the only writer and its payloads are already dashboard-shaped.
func (h *Handler) getDetailedDebts(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, service.DetailedSnapshotName)
}

func (h *Handler) getSummaryDebts(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, service.SummarySnapshotName)
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request, name string) {
	data, err := h.snapshots.Get(r.Context(), name)
	if err != nil {
		log.Printf("[HTTP] snapshot %s read error: %v", name, err)
		ErrorUnavailable(w, "data temporarily unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[HTTP] snapshot %s write error: %v", name, err)
	}
}

func (h *Handler) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	// Detached context: a client disconnect must not abort the run mid-persist.
	status, err := h.refresher.Run(context.Background())
	if err != nil {
		if errors.Is(err, service.ErrRefreshInProgress) {
			ErrorConflict(w, "refresh already in progress")
			return
		}
		log.Printf("[HTTP] manual refresh failed: %v", err)
		ErrorInternal(w, "refresh failed, previous snapshots kept")
		return
	}

	SuccessAccepted(w, "refresh complete", map[string]interface{}{
		"run_id":    status.RunID,
		"records":   status.Records,
		"customers": status.Customers,
	})
}

func (h *Handler) getRefreshStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.refresher.LastStatus(r.Context())
	if err != nil {
		ErrorNotFound(w, "no refresh recorded yet")
		return
	}

	Success(w, "last refresh", status)
}
