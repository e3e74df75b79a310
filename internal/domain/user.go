package domain

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// PasswordHash is never serialized to API responses.
	PasswordHash string `json:"-"`
}
