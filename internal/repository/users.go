package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"urlshort/internal/model"
)

const userColumns = `id, username, email, password_hash, api_key, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.APIKey, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, username, email, passwordHash, apiKey string) (*model.User, error) {
	q := `INSERT INTO users (id, username, email, password_hash, api_key)
	      VALUES ($1, $2, $3, $4, $5)
	      RETURNING created_at`
	u := model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		APIKey:       apiKey,
	}
	err := r.DB.QueryRowContext(ctx, q, u.ID, username, email, passwordHash, apiKey).Scan(&u.CreatedAt)
	if err != nil {
		switch uniqueConstraint(err) {
		case "":
			return nil, err
		case "users_api_key_key":
			// Generated key collided; the caller retries with a fresh one.
			return nil, ErrDuplicate
		default:
			// Username or email raced another registration.
			return nil, ErrConflict
		}
	}
	return &u, nil
}

func (r *Repo) GetUserByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE api_key = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, apiKey))
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.DB.QueryRowContext(ctx, q, username))
}

// UsernameTaken reports whether another user already holds the username.
// excludeID skips the caller's own row on the update path.
func (r *Repo) UsernameTaken(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`
	var taken bool
	err := r.DB.QueryRowContext(ctx, q, username, excludeID).Scan(&taken)
	return taken, err
}

func (r *Repo) EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	var taken bool
	err := r.DB.QueryRowContext(ctx, q, email, excludeID).Scan(&taken)
	return taken, err
}

// UpdateUser rewrites the mutable profile fields. The API key is issued
// once at registration and never changes.
func (r *Repo) UpdateUser(ctx context.Context, id uuid.UUID, username, email, passwordHash string) error {
	q := `UPDATE users SET username = $2, email = $3, password_hash = $4 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, q, id, username, email, passwordHash)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
