package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/events"
	"github.com/gamestore-dxp/apiserver/internal/metrics"
	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/internal/validation"
	"github.com/gamestore-dxp/apiserver/types"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review types.Review) (types.Review, error)
	GetByID(ctx context.Context, id string) (types.Review, error)
	FindByUserAndEntry(ctx context.Context, userID, entryUID string) (types.Review, error)
	ListByEntry(ctx context.Context, entryUID string) ([]types.Review, error)
	Update(ctx context.Context, review types.Review) (types.Review, error)
	Delete(ctx context.Context, id string) error
}

// ReviewInput carries the editable part of a review.
type ReviewInput struct {
	Rating  int
	Title   string
	Content string
}

func (in ReviewInput) normalized() ReviewInput {
	return ReviewInput{
		Rating:  in.Rating,
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}
}

// ReviewService encapsulates review business logic.
type ReviewService struct {
	repo      ReviewRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewReviewService(repo ReviewRepository, publisher EventPublisher) *ReviewService {
	return &ReviewService{repo: repo, publisher: publisher, now: time.Now}
}

// Create stores the author's review of entryUID. An author reviews a game at most once.
func (s *ReviewService) Create(ctx context.Context, entryUID string, author types.Account, in ReviewInput) (types.Review, error) {
	if err := validation.ValidateReview(in.Rating, in.Title, in.Content); err != nil {
		metrics.RecordReviewMutation(opCreate, metrics.ResultRejected)
		return types.Review{}, err
	}
	in = in.normalized()

	if _, err := s.repo.FindByUserAndEntry(ctx, author.ID, entryUID); err == nil {
		metrics.RecordReviewMutation(opCreate, metrics.ResultConflict)
		return types.Review{}, ErrAlreadyReviewed
	} else if !errors.Is(err, store.ErrNotFound) {
		metrics.RecordReviewMutation(opCreate, metrics.ResultError)
		return types.Review{}, fmt.Errorf("check existing review: %w", err)
	}

	review, err := s.repo.Create(ctx, types.Review{
		EntryUID:  entryUID,
		UserID:    author.ID,
		UserEmail: author.Email,
		Rating:    in.Rating,
		Title:     in.Title,
		Content:   in.Content,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.RecordReviewMutation(opCreate, metrics.ResultConflict)
			return types.Review{}, ErrAlreadyReviewed
		}
		metrics.RecordReviewMutation(opCreate, metrics.ResultError)
		return types.Review{}, fmt.Errorf("create review: %w", err)
	}

	metrics.RecordReviewMutation(opCreate, metrics.ResultSuccess)
	s.publisher.Publish(ctx, events.ReviewCreated{
		ReviewID: review.ID,
		EntryUID: review.EntryUID,
		UserID:   review.UserID,
		Rating:   review.Rating,
		At:       s.now().UTC(),
	})
	return review, nil
}

// ListByGame returns every review of entryUID newest first with the aggregate rating.
func (s *ReviewService) ListByGame(ctx context.Context, entryUID string) (types.ReviewList, error) {
	reviews, err := s.repo.ListByEntry(ctx, entryUID)
	if err != nil {
		return types.ReviewList{}, fmt.Errorf("list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []types.Review{}
	}
	SortNewestFirst(reviews)

	total, average := AggregateRating(reviews)
	return types.ReviewList{
		Reviews:       reviews,
		Total:         total,
		AverageRating: average,
	}, nil
}

// GetOwn returns the account's review of entryUID, or nil if there is none.
func (s *ReviewService) GetOwn(ctx context.Context, entryUID, accountID string) (*types.Review, error) {
	review, err := s.repo.FindByUserAndEntry(ctx, accountID, entryUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load review: %w", err)
	}
	return &review, nil
}

// Update overwrites rating, title and content of a review owned by accountID.
func (s *ReviewService) Update(ctx context.Context, reviewID, accountID string, in ReviewInput) (types.Review, error) {
	if err := validation.ValidateReview(in.Rating, in.Title, in.Content); err != nil {
		metrics.RecordReviewMutation(opUpdate, metrics.ResultRejected)
		return types.Review{}, err
	}
	in = in.normalized()

	review, err := s.owned(ctx, opUpdate, reviewID, accountID)
	if err != nil {
		return types.Review{}, err
	}

	review.Rating = in.Rating
	review.Title = in.Title
	review.Content = in.Content

	updated, err := s.repo.Update(ctx, review)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordReviewMutation(opUpdate, metrics.ResultRejected)
			return types.Review{}, ErrReviewNotFound
		}
		metrics.RecordReviewMutation(opUpdate, metrics.ResultError)
		return types.Review{}, fmt.Errorf("update review: %w", err)
	}

	metrics.RecordReviewMutation(opUpdate, metrics.ResultSuccess)
	s.publisher.Publish(ctx, events.ReviewUpdated{
		ReviewID: updated.ID,
		EntryUID: updated.EntryUID,
		UserID:   updated.UserID,
		Rating:   updated.Rating,
		At:       s.now().UTC(),
	})
	return updated, nil
}

// Delete physically removes a review owned by accountID.
func (s *ReviewService) Delete(ctx context.Context, reviewID, accountID string) error {
	review, err := s.owned(ctx, opDelete, reviewID, accountID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordReviewMutation(opDelete, metrics.ResultRejected)
			return ErrReviewNotFound
		}
		metrics.RecordReviewMutation(opDelete, metrics.ResultError)
		return fmt.Errorf("delete review: %w", err)
	}

	metrics.RecordReviewMutation(opDelete, metrics.ResultSuccess)
	s.publisher.Publish(ctx, events.ReviewDeleted{
		ReviewID: review.ID,
		EntryUID: review.EntryUID,
		UserID:   review.UserID,
		At:       s.now().UTC(),
	})
	return nil
}

// owned loads reviewID and checks that accountID wrote it.
func (s *ReviewService) owned(ctx context.Context, op, reviewID, accountID string) (types.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordReviewMutation(op, metrics.ResultRejected)
			return types.Review{}, ErrReviewNotFound
		}
		metrics.RecordReviewMutation(op, metrics.ResultError)
		return types.Review{}, fmt.Errorf("load review: %w", err)
	}
	if review.UserID != accountID {
		metrics.RecordReviewMutation(op, metrics.ResultRejected)
		return types.Review{}, ErrNotReviewOwner
	}
	return review, nil
}
