package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	APIKey       string    `db:"api_key" json:"apiKey"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Link maps a short code to its destination. OwnerID is nil for links
// created without an API key.
type Link struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ShortCode   string     `db:"short_code" json:"shortCode"`
	OriginalURL string     `db:"original_url" json:"originalUrl"`
	OwnerID     *uuid.UUID `db:"user_id" json:"-"`
	ClickCount  int64      `db:"click_count" json:"clickCount"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}
