package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/events"
	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
)

// memoryAccounts is an in-memory AccountRepository with the same version
// semantics as the database-backed stores.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]types.Account
	seq      int

	// beforeUpdate runs before UpdateLists takes the lock, letting tests
	// interleave a competing write.
	beforeUpdate func()
	updates      int

	// alwaysConflict makes every UpdateLists lose the version race.
	alwaysConflict bool
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: make(map[string]types.Account)}
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.accounts {
		if strings.EqualFold(account.Email, email) {
			return cloneAccount(account), nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (m *memoryAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return types.Account{}, store.ErrDuplicate
		}
	}
	m.seq++
	account.ID = "acct-" + strconv.Itoa(m.seq)
	account.Version = 1
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.ID] = cloneAccount(account)
	return account, nil
}

func (m *memoryAccounts) UpdateLists(_ context.Context, account types.Account) (types.Account, error) {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	stored, ok := m.accounts[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	if m.alwaysConflict || stored.Version != account.Version {
		return types.Account{}, store.ErrVersionConflict
	}
	stored.RecentlyViewed = account.RecentlyViewed
	stored.Wishlist = account.Wishlist
	stored.Downloads = account.Downloads
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	m.accounts[account.ID] = cloneAccount(stored)
	return stored, nil
}

func cloneAccount(a types.Account) types.Account {
	a.RecentlyViewed = append([]types.RecentlyViewedGame(nil), a.RecentlyViewed...)
	a.Wishlist = append([]types.WishlistItem(nil), a.Wishlist...)
	a.Downloads = append([]types.DownloadedGame(nil), a.Downloads...)
	return a
}

// memoryReviews is an in-memory ReviewRepository. It returns listings in
// insertion order so the service's own ordering is what tests observe.
type memoryReviews struct {
	mu      sync.Mutex
	reviews []types.Review
	seq     int
	now     func() time.Time

	// skipLookup makes FindByUserAndEntry miss, simulating a racing writer
	// that passed the pre-check.
	skipLookup bool
}

func newMemoryReviews() *memoryReviews {
	return &memoryReviews{now: time.Now}
}

func (m *memoryReviews) Create(_ context.Context, review types.Review) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.UserID == review.UserID && existing.EntryUID == review.EntryUID {
			return types.Review{}, store.ErrDuplicate
		}
	}
	m.seq++
	review.ID = "rev-" + strconv.Itoa(m.seq)
	review.CreatedAt = m.now().UTC()
	review.UpdatedAt = review.CreatedAt
	m.reviews = append(m.reviews, review)
	return review, nil
}

func (m *memoryReviews) GetByID(_ context.Context, id string) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, review := range m.reviews {
		if review.ID == id {
			return review, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (m *memoryReviews) FindByUserAndEntry(_ context.Context, userID, entryUID string) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.skipLookup {
		return types.Review{}, store.ErrNotFound
	}
	for _, review := range m.reviews {
		if review.UserID == userID && review.EntryUID == entryUID {
			return review, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (m *memoryReviews) ListByEntry(_ context.Context, entryUID string) ([]types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Review
	for _, review := range m.reviews {
		if review.EntryUID == entryUID {
			out = append(out, review)
		}
	}
	return out, nil
}

func (m *memoryReviews) Update(_ context.Context, review types.Review) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.reviews {
		if existing.ID == review.ID {
			review.UpdatedAt = m.now().UTC()
			m.reviews[i] = review
			return review, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (m *memoryReviews) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.reviews {
		if existing.ID == id {
			m.reviews = append(m.reviews[:i], m.reviews[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.events))
	for _, e := range p.events {
		topics = append(topics, e.Topic())
	}
	return topics
}
