package domain

import "time"

type Note struct {
	ID         int64     `json:"id"`
	CustomerID string    `json:"customer_id"`
	NoteText   string    `json:"note_text"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}
