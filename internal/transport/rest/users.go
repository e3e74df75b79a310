package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"debtboard/internal/repository"
	"debtboard/internal/service"

	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		log.Printf("[HTTP] list users error: %v", err)
		ErrorInternal(w, "failed to load users")
		return
	}

	Success(w, "users", users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}
	if req.Name == "" || req.PhoneNumber == "" {
		ErrorBadRequest(w, "name and phoneNumber are required")
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			ErrorConflict(w, "a user with this name already exists")
			return
		}
		log.Printf("[HTTP] create user error: %v", err)
		ErrorInternal(w, "failed to create user")
		return
	}

	SuccessCreated(w, "user created", user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		ErrorBadRequest(w, "invalid user id")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			ErrorNotFound(w, "user not found")
		case errors.Is(err, service.ErrAdminProtected):
			ErrorForbidden(w, "the primary administrator cannot be deleted")
		default:
			log.Printf("[HTTP] delete user error: %v", err)
			ErrorInternal(w, "failed to delete user")
		}
		return
	}

	Success(w, "user deleted", nil)
}
