package rest

import (
	"context"
	"net/http"
	"time"

	"debtboard/internal/domain"
	"debtboard/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type SnapshotReader interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

type Refresher interface {
	Run(ctx context.Context) (*service.RunStatus, error)
	LastStatus(ctx context.Context) (*service.RunStatus, error)
}

type NoteManager interface {
	Create(ctx context.Context, customerID, noteText, authorName string) (*domain.Note, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Note, error)
}

type UserManager interface {
	Authenticate(ctx context.Context, name, phoneNumber string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, name, phoneNumber string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type Exporter interface {
	StartSummaryExport(ctx context.Context, userID int64) (string, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportStatus, error)
	GetExports(ctx context.Context, userID int64) ([]service.ExportStatus, error)
}

type Handler struct {
	snapshots SnapshotReader
	refresher Refresher
	notes     NoteManager
	users     UserManager
	exports   Exporter

	jwtSecret []byte
}

func NewHandler(
	snapshots SnapshotReader,
	refresher Refresher,
	notes NoteManager,
	users UserManager,
	exports Exporter,
	jwtSecret []byte,
) *Handler {
	return &Handler{
		snapshots: snapshots,
		refresher: refresher,
		notes:     notes,
		users:     users,
		exports:   exports,
		jwtSecret: jwtSecret,
	}
}

// InitRouterWithAuth builds the protected API router. The login route stays
// outside, on the public root router assembled in main.
func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/debts/detailed", h.getDetailedDebts)
		r.Get("/debts/summary", h.getSummaryDebts)

		r.Post("/refresh", h.triggerRefresh)
		r.Get("/refresh/status", h.getRefreshStatus)

		r.Get("/notes/{customerID}", h.listNotes)
		r.Post("/notes", h.createNote)

		r.Get("/users", h.listUsers)
		r.Post("/users", h.createUser)
		r.Delete("/users/{id}", h.deleteUser)

		r.Post("/exports/summary", h.startSummaryExport)
		r.Get("/exports", h.listExports)
		r.Get("/exports/{export_id}", h.getExport)
	})

	return r
}
