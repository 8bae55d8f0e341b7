package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"urlshort/internal/model"
	"urlshort/internal/repository"
	"urlshort/internal/util"
)

const (
	minPasswordLength = 6
	maxKeyRetries     = 5
	apiKeyCacheTTL    = 5 * time.Minute
)

// UserStore is the persistence surface the account service needs.
// Implemented by *repository.Repo.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash, apiKey string) (*model.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	UpdateUser(ctx context.Context, id uuid.UUID, username, email, passwordHash string) error
}

type Users struct {
	Store UserStore
	Redis *redis.Client // may be nil if disabled
}

func NewUsers(store UserStore, rc *redis.Client) *Users {
	return &Users{Store: store, Redis: rc}
}

// HashPassword is the one hashing function used everywhere a password
// must be stored.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validateProfile(username, email string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	return nil
}

// Register creates a user with a hashed password and a freshly issued
// 32-character API key. Key collisions are regenerated; username and
// email conflicts are not (they are user-chosen).
func (s *Users) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if err := validateProfile(username, email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	if taken, err := s.Store.UsernameTaken(ctx, username, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	}
	if taken, err := s.Store.EmailTaken(ctx, email, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: email is already in use", ErrConflict)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxKeyRetries; attempt++ {
		apiKey, err := util.RandomCode(util.APIKeyLength)
		if err != nil {
			return nil, err
		}
		user, err := s.Store.CreateUser(ctx, username, email, hash, apiKey)
		if errors.Is(err, repository.ErrDuplicate) {
			log.Info().Msg("api key collision, regenerating")
			continue
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		if err != nil {
			return nil, err
		}
		return user, nil
	}
	return nil, errors.New("failed to generate a unique api key")
}

// Login verifies the password against the stored hash. A wrong username
// and a wrong password are indistinguishable to the caller.
func (s *Users) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.Store.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func apiKeyCacheKey(apiKey string) string {
	return "apikey:" + apiKey
}

// ResolveAPIKey maps a bearer API key to its user. A short-lived Redis
// entry fronts the database so the gate does not hit Postgres on every
// authenticated request; cache failures fall through to the store.
func (s *Users) ResolveAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrUnauthorized
	}

	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, apiKeyCacheKey(apiKey)).Bytes(); err == nil {
			var u model.User
			if err := json.Unmarshal(raw, &u); err == nil {
				return &u, nil
			}
		}
	}

	user, err := s.Store.GetUserByAPIKey(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(user); err == nil {
			_ = s.Redis.Set(ctx, apiKeyCacheKey(apiKey), raw, apiKeyCacheTTL).Err()
		}
	}
	return user, nil
}

// UpdateAccount rewrites username and email and, when newPassword is
// non-blank, the password hash. The cached identity for the user's API
// key is dropped so the next request sees the update.
func (s *Users) UpdateAccount(ctx context.Context, caller *model.User, username, email, newPassword string) (*model.User, error) {
	if err := validateProfile(username, email); err != nil {
		return nil, err
	}

	// The caller may have come from the cache, which never carries the
	// password hash. Work from the stored row.
	user, err := s.Store.GetUserByAPIKey(ctx, caller.APIKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if taken, err := s.Store.UsernameTaken(ctx, username, user.ID); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: username is already taken", ErrConflict)
	}
	if taken, err := s.Store.EmailTaken(ctx, email, user.ID); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("%w: email is already in use", ErrConflict)
	}

	hash := user.PasswordHash
	if strings.TrimSpace(newPassword) != "" {
		if len(newPassword) < minPasswordLength {
			return nil, fmt.Errorf("%w: new password must be at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		var err error
		hash, err = HashPassword(newPassword)
		if err != nil {
			return nil, err
		}
	}

	err = s.Store.UpdateUser(ctx, user.ID, username, email, hash)
	if errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("%w: username or email already in use", ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		_ = s.Redis.Del(ctx, apiKeyCacheKey(user.APIKey)).Err()
	}

	updated := *user
	updated.Username = username
	updated.Email = email
	updated.PasswordHash = hash
	return &updated, nil
}
