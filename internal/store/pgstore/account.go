package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/google/uuid"
)

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, now: time.Now}
}

const accountColumns = `id, email, password_hash, birthdate, recently_viewed, wishlist, downloads, version, created_at, updated_at`

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Account{}, store.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := timestamp(r.now)
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 1

	viewedJSON, wishlistJSON, downloadsJSON, err := marshalLists(account)
	if err != nil {
		return types.Account{}, err
	}

	const query = `
		INSERT INTO accounts (id, email, password_hash, birthdate, recently_viewed, wishlist, downloads, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Birthdate,
		viewedJSON,
		wishlistJSON,
		downloadsJSON,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, store.ErrDuplicate
		}
		return types.Account{}, err
	}
	return account, nil
}

// UpdateLists writes the personal lists of account if the stored version still
// matches account.Version. The returned account carries the bumped version.
func (r *AccountRepository) UpdateLists(ctx context.Context, account types.Account) (types.Account, error) {
	if _, err := uuid.Parse(account.ID); err != nil {
		return types.Account{}, store.ErrNotFound
	}

	viewedJSON, wishlistJSON, downloadsJSON, err := marshalLists(account)
	if err != nil {
		return types.Account{}, err
	}
	updatedAt := timestamp(r.now)

	const query = `
		UPDATE accounts
		SET recently_viewed = $1,
			wishlist = $2,
			downloads = $3,
			version = version + 1,
			updated_at = $4
		WHERE id = $5 AND version = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		viewedJSON,
		wishlistJSON,
		downloadsJSON,
		updatedAt,
		account.ID,
		account.Version,
	)
	if err != nil {
		return types.Account{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Account{}, err
	}
	if affected == 0 {
		var exists bool
		const existsQuery = `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`
		if err := r.db.QueryRowContext(ctx, existsQuery, account.ID).Scan(&exists); err != nil {
			return types.Account{}, err
		}
		if !exists {
			return types.Account{}, store.ErrNotFound
		}
		return types.Account{}, store.ErrVersionConflict
	}

	account.Version++
	account.UpdatedAt = updatedAt
	return account, nil
}

func scanAccount(row rowScanner) (types.Account, error) {
	var account types.Account
	var birthdate sql.NullTime
	var viewedJSON, wishlistJSON, downloadsJSON []byte
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&birthdate,
		&viewedJSON,
		&wishlistJSON,
		&downloadsJSON,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, store.ErrNotFound
		}
		return types.Account{}, err
	}
	if birthdate.Valid {
		account.Birthdate = &birthdate.Time
	}

	if err := json.Unmarshal(viewedJSON, &account.RecentlyViewed); err != nil {
		return types.Account{}, err
	}
	if err := json.Unmarshal(wishlistJSON, &account.Wishlist); err != nil {
		return types.Account{}, err
	}
	if err := json.Unmarshal(downloadsJSON, &account.Downloads); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

func marshalLists(account types.Account) (viewed, wishlist, downloads []byte, err error) {
	if viewed, err = json.Marshal(nonNil(account.RecentlyViewed)); err != nil {
		return nil, nil, nil, err
	}
	if wishlist, err = json.Marshal(nonNil(account.Wishlist)); err != nil {
		return nil, nil, nil, err
	}
	if downloads, err = json.Marshal(nonNil(account.Downloads)); err != nil {
		return nil, nil, nil, err
	}
	return viewed, wishlist, downloads, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
