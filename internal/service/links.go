package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"urlshort/internal/model"
	"urlshort/internal/repository"
	"urlshort/internal/util"
)

// maxCodeRetries bounds regeneration after a short-code collision. With a
// 62^7 code space collisions are rare; exhausting the bound is an
// internal error.
const maxCodeRetries = 5

// LinkStore is the persistence surface the link registry needs. Implemented
// by *repository.Repo.
type LinkStore interface {
	CreateLink(ctx context.Context, code, original string, ownerID *uuid.UUID) (*model.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Link, error)
	DeleteLink(ctx context.Context, linkID, ownerID uuid.UUID) error
	DeleteLinksByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	IncrementClick(ctx context.Context, code string) (*model.Link, error)
}

type Links struct {
	Store LinkStore
}

func NewLinks(store LinkStore) *Links {
	return &Links{Store: store}
}

// CreateShort validates the destination URL, generates a short code and
// persists the mapping. ownerID is nil for anonymous submissions. Code
// collisions are retried with a fresh code.
func (s *Links) CreateShort(ctx context.Context, original string, ownerID *uuid.UUID) (*model.Link, error) {
	if !util.ValidateURL(original) {
		return nil, fmt.Errorf("%w: invalid url", ErrInvalidInput)
	}

	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		code, err := util.RandomCode(util.ShortCodeLength)
		if err != nil {
			return nil, err
		}
		link, err := s.Store.CreateLink(ctx, code, original, ownerID)
		if errors.Is(err, repository.ErrDuplicate) {
			log.Info().Str("short_code", code).Msg("short code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		return link, nil
	}
	return nil, errors.New("failed to generate a unique short code")
}

func (s *Links) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.Store.GetLinkByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return link, err
}

// History lists the owner's links, most recent first. An owner with no
// links gets an empty slice, not an error.
func (s *Links) History(ctx context.Context, ownerID uuid.UUID) ([]model.Link, error) {
	return s.Store.ListLinksByOwner(ctx, ownerID)
}

// DeleteOne removes a single link if ownerID owns it. Ownership mismatch
// is reported as ErrNotFound so callers cannot probe other users' links.
func (s *Links) DeleteOne(ctx context.Context, linkID, ownerID uuid.UUID) error {
	err := s.Store.DeleteLink(ctx, linkID, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Links) DeleteAll(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return s.Store.DeleteLinksByOwner(ctx, ownerID)
}

// Resolve is the redirect hot path: it atomically counts the click and
// returns the updated mapping.
func (s *Links) Resolve(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.Store.IncrementClick(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return link, err
}
