package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/auth"
	"github.com/gamestore-dxp/apiserver/internal/events"
	"github.com/gamestore-dxp/apiserver/internal/metrics"
	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/internal/validation"
	"github.com/gamestore-dxp/apiserver/types"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	UpdateLists(ctx context.Context, account types.Account) (types.Account, error)
}

// PasswordHasher hashes passwords and verifies them against stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
	Parse(token string) (auth.Claims, error)
}

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email     string
	Password  string
	Birthdate *time.Time
}

// AccountService encapsulates registration, login and session resolution.
type AccountService struct {
	repo      AccountRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	publisher EventPublisher
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(repo AccountRepository, hasher PasswordHasher, tokens TokenIssuer, publisher EventPublisher) *AccountService {
	return &AccountService{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		now:       time.Now,
	}
}

// Register creates an account for a not yet used email and issues a token.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (types.Account, string, error) {
	email := validation.NormalizeEmail(in.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		metrics.RecordRegistration(metrics.ResultConflict)
		return types.Account{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		metrics.RecordRegistration(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		metrics.RecordRegistration(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.Create(ctx, types.Account{
		Email:        email,
		PasswordHash: hash,
		Birthdate:    in.Birthdate,
	})
	if err != nil {
		// A concurrent registration can pass the lookup above; the unique
		// index still rejects it.
		if errors.Is(err, store.ErrDuplicate) {
			metrics.RecordRegistration(metrics.ResultConflict)
			return types.Account{}, "", ErrEmailTaken
		}
		metrics.RecordRegistration(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		metrics.RecordRegistration(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordRegistration(metrics.ResultSuccess)
	s.publisher.Publish(ctx, events.AccountRegistered{
		AccountID: account.ID,
		Email:     account.Email,
		At:        s.now().UTC(),
	})
	return account, token, nil
}

// Authenticate verifies credentials. Unknown emails and wrong passwords fail
// with the same error so callers cannot probe for registered addresses.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (types.Account, string, error) {
	account, err := s.repo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Spend the same hashing work as a real comparison.
			_ = s.hasher.Compare(s.dummyPasswordHash(), password)
			metrics.RecordLogin(metrics.ResultRejected)
			return types.Account{}, "", ErrInvalidCredentials
		}
		metrics.RecordLogin(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("lookup account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		metrics.RecordLogin(metrics.ResultRejected)
		return types.Account{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		metrics.RecordLogin(metrics.ResultError)
		return types.Account{}, "", fmt.Errorf("issue token: %w", err)
	}

	metrics.RecordLogin(metrics.ResultSuccess)
	return account, token, nil
}

// ResolveSession verifies token and loads the account it was issued to.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (types.Account, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return types.Account{}, ErrInvalidSession
	}
	return s.Profile(ctx, claims.Subject)
}

// Profile loads an account by id.
func (s *AccountService) Profile(ctx context.Context, id string) (types.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrAccountNotFound
		}
		return types.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

func (s *AccountService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("gamestore-dummy-password")
	})
	return s.dummyHash
}
