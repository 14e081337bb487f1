package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/sirupsen/logrus"
)

// maxListWriteAttempts bounds how often a list mutation is re-applied after
// losing a version race to a concurrent write of the same account.
const maxListWriteAttempts = 3

// ListService manages an account's recently viewed games, wishlist and downloads.
type ListService struct {
	repo   AccountRepository
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewListService(repo AccountRepository, logger logrus.FieldLogger) *ListService {
	return &ListService{repo: repo, logger: logger, now: time.Now}
}

// RecordView moves gameSlug to the front of the recently viewed list.
func (s *ListService) RecordView(ctx context.Context, accountID, gameSlug, coverImage string) (types.Account, error) {
	gameSlug = strings.TrimSpace(gameSlug)
	return s.mutate(ctx, accountID, func(a *types.Account, now time.Time) bool {
		a.RecordView(gameSlug, strings.TrimSpace(coverImage), now)
		return true
	})
}

// AddToWishlist is a no-op when entryUID is already on the wishlist.
func (s *ListService) AddToWishlist(ctx context.Context, accountID, entryUID string) (types.Account, error) {
	return s.mutate(ctx, accountID, func(a *types.Account, now time.Time) bool {
		return a.AddToWishlist(entryUID, now)
	})
}

// RemoveFromWishlist is a no-op when entryUID is absent.
func (s *ListService) RemoveFromWishlist(ctx context.Context, accountID, entryUID string) (types.Account, error) {
	return s.mutate(ctx, accountID, func(a *types.Account, _ time.Time) bool {
		return a.RemoveFromWishlist(entryUID)
	})
}

func (s *ListService) ListWishlist(ctx context.Context, accountID string) ([]string, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.WishlistUIDs(), nil
}

// AddToDownloads is a no-op when entryUID is already downloaded.
func (s *ListService) AddToDownloads(ctx context.Context, accountID, entryUID string) (types.Account, error) {
	return s.mutate(ctx, accountID, func(a *types.Account, now time.Time) bool {
		return a.AddToDownloads(entryUID, now)
	})
}

// RemoveFromDownloads is a no-op when entryUID is absent.
func (s *ListService) RemoveFromDownloads(ctx context.Context, accountID, entryUID string) (types.Account, error) {
	return s.mutate(ctx, accountID, func(a *types.Account, _ time.Time) bool {
		return a.RemoveFromDownloads(entryUID)
	})
}

func (s *ListService) ListDownloads(ctx context.Context, accountID string) ([]string, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.DownloadUIDs(), nil
}

// mutate applies change to a fresh copy of the account and writes it back
// guarded by the account version. apply reports whether anything changed;
// unchanged accounts are not written.
func (s *ListService) mutate(ctx context.Context, accountID string, apply func(*types.Account, time.Time) bool) (types.Account, error) {
	for attempt := 1; ; attempt++ {
		account, err := s.load(ctx, accountID)
		if err != nil {
			return types.Account{}, err
		}
		if !apply(&account, s.now().UTC()) {
			return account, nil
		}

		updated, err := s.repo.UpdateLists(ctx, account)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, store.ErrNotFound):
			return types.Account{}, ErrAccountNotFound
		case errors.Is(err, store.ErrVersionConflict) && attempt < maxListWriteAttempts:
			s.logger.WithFields(logrus.Fields{
				"account_id": accountID,
				"attempt":    attempt,
			}).Debug("account list write lost version race, retrying")
		default:
			return types.Account{}, fmt.Errorf("update account lists: %w", err)
		}
	}
}

func (s *ListService) load(ctx context.Context, accountID string) (types.Account, error) {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrAccountNotFound
		}
		return types.Account{}, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}
