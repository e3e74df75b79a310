package rest

import (
	"encoding/json"
	"log"
	"net/http"

	"debtboard/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type createNoteRequest struct {
	CustomerID string `json:"customer_id"`
	NoteText   string `json:"note_text"`
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		ErrorBadRequest(w, "customer id is required")
		return
	}

	notes, err := h.notes.ListByCustomer(r.Context(), customerID)
	if err != nil {
		log.Printf("[HTTP] list notes error: %v", err)
		ErrorInternal(w, "failed to load notes")
		return
	}

	Success(w, "notes", notes)
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.CustomerID == "" || req.NoteText == "" {
		ErrorBadRequest(w, "customer_id and note_text are required")
		return
	}

	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	note, err := h.notes.Create(r.Context(), req.CustomerID, req.NoteText, identity.Name)
	if err != nil {
		log.Printf("[HTTP] create note error: %v", err)
		ErrorInternal(w, "failed to save note")
		return
	}

	SuccessCreated(w, "note saved", note)
}
