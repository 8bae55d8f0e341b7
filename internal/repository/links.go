package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"urlshort/internal/model"
)

func scanLink(row interface{ Scan(...any) error }) (*model.Link, error) {
	var l model.Link
	var owner uuid.NullUUID
	if err := row.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &owner, &l.ClickCount, &l.CreatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		id := owner.UUID
		l.OwnerID = &id
	}
	return &l, nil
}

func (r *Repo) CreateLink(ctx context.Context, code, original string, ownerID *uuid.UUID) (*model.Link, error) {
	q := `INSERT INTO url_mappings (id, short_code, original_url, user_id)
	      VALUES ($1, $2, $3, $4)
	      RETURNING click_count, created_at`
	id := uuid.New()
	var owner uuid.NullUUID
	if ownerID != nil {
		owner = uuid.NullUUID{UUID: *ownerID, Valid: true}
	}
	l := model.Link{ID: id, ShortCode: code, OriginalURL: original, OwnerID: ownerID}
	err := r.DB.QueryRowContext(ctx, q, id, code, original, owner).Scan(&l.ClickCount, &l.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	q := `SELECT id, short_code, original_url, user_id, click_count, created_at
	      FROM url_mappings WHERE short_code = $1`
	l, err := scanLink(r.DB.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func (r *Repo) ListLinksByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Link, error) {
	q := `SELECT id, short_code, original_url, user_id, click_count, created_at
	      FROM url_mappings WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]model.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *l)
	}
	return res, rows.Err()
}

// DeleteLink removes a link only when it is owned by ownerID. A missing
// row and an ownership mismatch are both reported as ErrNotFound.
func (r *Repo) DeleteLink(ctx context.Context, linkID, ownerID uuid.UUID) error {
	q := `DELETE FROM url_mappings WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, q, linkID, ownerID)
	if err != nil {
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

func (r *Repo) DeleteLinksByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	q := `DELETE FROM url_mappings WHERE user_id = $1`
	res, err := r.DB.ExecContext(ctx, q, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementClick bumps the click counter in a single UPDATE so concurrent
// redirects for the same code never lose updates, and returns the updated
// row.
func (r *Repo) IncrementClick(ctx context.Context, code string) (*model.Link, error) {
	q := `UPDATE url_mappings
	      SET click_count = click_count + 1
	      WHERE short_code = $1
	      RETURNING id, short_code, original_url, user_id, click_count, created_at`
	l, err := scanLink(r.DB.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}
