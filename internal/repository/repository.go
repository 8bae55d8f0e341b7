package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ErrNotFound is returned when a lookup matches no row, including deletes
// scoped to an owner that does not hold the row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits the unique constraint of a
// generated identifier (short code, API key). Callers regenerate and retry.
var ErrDuplicate = errors.New("duplicate generated identifier")

// ErrConflict is returned when a unique constraint on a user-chosen field
// (username, email) is violated. Never retried.
var ErrConflict = errors.New("conflicting value")

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// uniqueConstraint returns the violated constraint name, or "" if err is
// not a unique violation.
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName
	}
	return ""
}

// Migrate brings the schema up to date from the given migrations source,
// e.g. "file://migrations".
func (r *Repo) Migrate(sourceURL string) error {
	driver, err := pgxv5.WithInstance(r.DB, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("repository: migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "pgx", driver)
	if err != nil {
		return fmt.Errorf("repository: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("repository: migrate up: %w", err)
	}
	return nil
}
