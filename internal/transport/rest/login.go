package rest

import (
	"encoding/json"
	"net/http"

	"debtboard/internal/transport/auth"
)

type loginRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// Login is mounted on the public root router; everything else sits behind the
// bearer-token middleware.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.Name == "" || req.PhoneNumber == "" {
		ErrorBadRequest(w, "name and phoneNumber are required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Name, req.PhoneNumber)
	if err != nil {
		ErrorUnauthorized(w, "invalid name or phone number")
		return
	}

	token, err := auth.IssueToken(h.jwtSecret, user)
	if err != nil {
		ErrorInternal(w, "failed to issue token")
		return
	}

	Success(w, "logged in", map[string]interface{}{
		"token":    token,
		"userName": user.Name,
	})
}
