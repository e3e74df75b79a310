package repository

import (
	"context"
	"database/sql"

	"debtboard/internal/domain"
)

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) Create(ctx context.Context, customerID, noteText, authorName string) (*domain.Note, error) {
	query := `
		INSERT INTO notes (customer_id, note_text, author_name)
		VALUES ($1, $2, $3)
		RETURNING id, customer_id, note_text, author_name, created_at
	`

	var n domain.Note
	err := r.db.QueryRowContext(ctx, query, customerID, noteText, authorName).Scan(
		&n.ID,
		&n.CustomerID,
		&n.NoteText,
		&n.AuthorName,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func (r *NoteRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Note, error) {
	query := `
		SELECT id, customer_id, note_text, author_name, created_at
		FROM notes
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Note

	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(
			&n.ID,
			&n.CustomerID,
			&n.NoteText,
			&n.AuthorName,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CountByCustomer returns note counts keyed by customer id, used by the
// refresh pipeline to enrich the summary snapshot.
func (r *NoteRepository) CountByCustomer(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT customer_id, COUNT(*)
		FROM notes
		GROUP BY customer_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			customerID string
			count      int
		)
		if err := rows.Scan(&customerID, &count); err != nil {
			return nil, err
		}
		counts[customerID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}
