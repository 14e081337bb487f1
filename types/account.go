package types

import "time"

// RecentlyViewedLimit caps how many recently viewed games an account keeps.
const RecentlyViewedLimit = 20

// Account represents a registered user of the store.
// It carries credentials, audit metadata and the account's personal lists.
type Account struct {
	// ID is the opaque, system-assigned identifier of the account.
	ID string `json:"id"`

	// Email is the unique login address, stored lower-cased and trimmed.
	Email string `json:"email"`

	// PasswordHash stores the salted one-way hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// Birthdate is optional and can only be set at registration.
	Birthdate *time.Time `json:"birthdate,omitempty"`

	// RecentlyViewed is ordered newest first and holds at most
	// RecentlyViewedLimit entries, one per slug.
	RecentlyViewed []RecentlyViewedGame `json:"recentlyViewed"`

	// Wishlist holds games the user wants, unique by entry uid.
	Wishlist []WishlistItem `json:"wishlist"`

	// Downloads holds downloaded games, unique by entry uid.
	Downloads []DownloadedGame `json:"downloads"`

	// Version is bumped on every list write and used for optimistic concurrency.
	Version int64 `json:"-"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecentlyViewedGame is one entry of an account's browsing history.
type RecentlyViewedGame struct {
	Slug       string    `json:"slug" bson:"slug"`
	CoverImage string    `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	ViewedAt   time.Time `json:"viewedAt" bson:"viewedAt"`
}

// WishlistItem is a game saved to the wishlist.
type WishlistItem struct {
	EntryUID string    `json:"entryUid" bson:"entryUid"`
	AddedAt  time.Time `json:"addedAt" bson:"addedAt"`
}

// DownloadedGame is a game the user downloaded.
type DownloadedGame struct {
	EntryUID     string    `json:"entryUid" bson:"entryUid"`
	DownloadedAt time.Time `json:"downloadedAt" bson:"downloadedAt"`
}

// RecordView moves slug to the front of the recently viewed list, replacing any
// previous entry for it, and truncates the list to RecentlyViewedLimit.
func (a *Account) RecordView(slug, coverImage string, now time.Time) {
	viewed := make([]RecentlyViewedGame, 0, len(a.RecentlyViewed)+1)
	viewed = append(viewed, RecentlyViewedGame{Slug: slug, CoverImage: coverImage, ViewedAt: now})
	for _, item := range a.RecentlyViewed {
		if item.Slug == slug {
			continue
		}
		viewed = append(viewed, item)
	}
	if len(viewed) > RecentlyViewedLimit {
		viewed = viewed[:RecentlyViewedLimit]
	}
	a.RecentlyViewed = viewed
}

// AddToWishlist appends entryUID unless it is already present.
// It reports whether the wishlist changed.
func (a *Account) AddToWishlist(entryUID string, now time.Time) bool {
	for _, item := range a.Wishlist {
		if item.EntryUID == entryUID {
			return false
		}
	}
	a.Wishlist = append(a.Wishlist, WishlistItem{EntryUID: entryUID, AddedAt: now})
	return true
}

// RemoveFromWishlist drops entryUID and reports whether it was present.
func (a *Account) RemoveFromWishlist(entryUID string) bool {
	kept := a.Wishlist[:0:0]
	for _, item := range a.Wishlist {
		if item.EntryUID != entryUID {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(a.Wishlist)
	a.Wishlist = kept
	return removed
}

// AddToDownloads appends entryUID unless it is already present.
// It reports whether the downloads changed.
func (a *Account) AddToDownloads(entryUID string, now time.Time) bool {
	for _, item := range a.Downloads {
		if item.EntryUID == entryUID {
			return false
		}
	}
	a.Downloads = append(a.Downloads, DownloadedGame{EntryUID: entryUID, DownloadedAt: now})
	return true
}

// RemoveFromDownloads drops entryUID and reports whether it was present.
func (a *Account) RemoveFromDownloads(entryUID string) bool {
	kept := a.Downloads[:0:0]
	for _, item := range a.Downloads {
		if item.EntryUID != entryUID {
			kept = append(kept, item)
		}
	}
	removed := len(kept) != len(a.Downloads)
	a.Downloads = kept
	return removed
}

// WishlistUIDs returns the entry uids on the wishlist in insertion order.
func (a *Account) WishlistUIDs() []string {
	uids := make([]string, 0, len(a.Wishlist))
	for _, item := range a.Wishlist {
		uids = append(uids, item.EntryUID)
	}
	return uids
}

// DownloadUIDs returns the downloaded entry uids in insertion order.
func (a *Account) DownloadUIDs() []string {
	uids := make([]string, 0, len(a.Downloads))
	for _, item := range a.Downloads {
		uids = append(uids, item.EntryUID)
	}
	return uids
}

// Age returns the age in whole years at now, or nil without a birthdate.
func (a *Account) Age(now time.Time) *int {
	if a.Birthdate == nil {
		return nil
	}
	born := a.Birthdate.UTC()
	now = now.UTC()
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

// AccountView is the outward representation of an account.
type AccountView struct {
	ID             string               `json:"id"`
	Email          string               `json:"email"`
	CreatedAt      time.Time            `json:"createdAt"`
	Birthdate      *time.Time           `json:"birthdate,omitempty"`
	Age            *int                 `json:"age"`
	RecentlyViewed []RecentlyViewedGame `json:"recentlyViewed"`
	Wishlist       []string             `json:"wishlist"`
	Downloads      []string             `json:"downloads"`
}

// View renders the account without credentials, computing age at now.
func (a *Account) View(now time.Time) AccountView {
	viewed := a.RecentlyViewed
	if viewed == nil {
		viewed = []RecentlyViewedGame{}
	}
	return AccountView{
		ID:             a.ID,
		Email:          a.Email,
		CreatedAt:      a.CreatedAt,
		Birthdate:      a.Birthdate,
		Age:            a.Age(now),
		RecentlyViewed: viewed,
		Wishlist:       a.WishlistUIDs(),
		Downloads:      a.DownloadUIDs(),
	}
}
