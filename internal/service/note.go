package service

import (
	"context"

	"debtboard/internal/domain"
)

type NoteRepo interface {
	Create(ctx context.Context, customerID, noteText, authorName string) (*domain.Note, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Note, error)
}

// NoteService manages free-text annotations attached to customer ids. Notes
// live independently of the debt snapshots and survive refresh runs.
type NoteService struct {
	repo NoteRepo
}

func NewNoteService(repo NoteRepo) *NoteService {
	return &NoteService{repo: repo}
}

func (s *NoteService) Create(ctx context.Context, customerID, noteText, authorName string) (*domain.Note, error) {
	return s.repo.Create(ctx, customerID, noteText, authorName)
}

func (s *NoteService) ListByCustomer(ctx context.Context, customerID string) ([]domain.Note, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}
