package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/google/uuid"
)

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db, now: time.Now}
}

const reviewColumns = `id, entry_uid, user_id, user_email, rating, title, content, created_at, updated_at`

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if _, err := uuid.Parse(review.UserID); err != nil {
		return types.Review{}, fmt.Errorf("invalid author id %q", review.UserID)
	}

	now := timestamp(r.now)
	review.ID = uuid.NewString()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `
		INSERT INTO reviews (id, entry_uid, user_id, user_email, rating, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.EntryUID,
		review.UserID,
		review.UserEmail,
		review.Rating,
		review.Title,
		review.Content,
		review.CreatedAt,
		review.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Review{}, store.ErrDuplicate
		}
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (types.Review, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Review{}, store.ErrNotFound
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return scanReview(r.db.QueryRowContext(ctx, query, id))
}

func (r *ReviewRepository) FindByUserAndEntry(ctx context.Context, userID, entryUID string) (types.Review, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return types.Review{}, store.ErrNotFound
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = $1 AND entry_uid = $2`
	return scanReview(r.db.QueryRowContext(ctx, query, userID, entryUID))
}

// ListByEntry returns a game's reviews newest first, oldest insert first on ties.
func (r *ReviewRepository) ListByEntry(ctx context.Context, entryUID string) ([]types.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE entry_uid = $1 ORDER BY created_at DESC, seq ASC`
	rows, err := r.db.QueryContext(ctx, query, entryUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]types.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) (types.Review, error) {
	if _, err := uuid.Parse(review.ID); err != nil {
		return types.Review{}, store.ErrNotFound
	}
	review.UpdatedAt = timestamp(r.now)

	const query = `
		UPDATE reviews
		SET rating = $1,
			title = $2,
			content = $3,
			updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		review.Rating,
		review.Title,
		review.Content,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return types.Review{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Review{}, err
	}
	if affected == 0 {
		return types.Review{}, store.ErrNotFound
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	const query = `DELETE FROM reviews WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanReview(row rowScanner) (types.Review, error) {
	var review types.Review
	err := row.Scan(
		&review.ID,
		&review.EntryUID,
		&review.UserID,
		&review.UserEmail,
		&review.Rating,
		&review.Title,
		&review.Content,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, store.ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}
