package types

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordViewDedupesAndCaps(t *testing.T) {
	var a Account
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < RecentlyViewedLimit+5; i++ {
		a.RecordView(fmt.Sprintf("g%d", i), "", now.Add(time.Duration(i)*time.Second))
	}
	require.Len(t, a.RecentlyViewed, RecentlyViewedLimit)
	assert.Equal(t, "g24", a.RecentlyViewed[0].Slug)

	a.RecordView("g10", "cover.png", now.Add(time.Hour))
	require.Len(t, a.RecentlyViewed, RecentlyViewedLimit)
	assert.Equal(t, "g10", a.RecentlyViewed[0].Slug)
	assert.Equal(t, "cover.png", a.RecentlyViewed[0].CoverImage)

	seen := map[string]bool{}
	for _, item := range a.RecentlyViewed {
		assert.False(t, seen[item.Slug], "duplicate slug %s", item.Slug)
		seen[item.Slug] = true
	}
}

func TestWishlistAndDownloadsAreSets(t *testing.T) {
	var a Account
	now := time.Now()

	assert.True(t, a.AddToWishlist("X", now))
	assert.False(t, a.AddToWishlist("X", now))
	assert.False(t, a.RemoveFromWishlist("Y"))
	assert.True(t, a.RemoveFromWishlist("X"))
	assert.Empty(t, a.WishlistUIDs())

	assert.True(t, a.AddToDownloads("A", now))
	assert.True(t, a.AddToDownloads("B", now))
	assert.False(t, a.AddToDownloads("A", now))
	assert.Equal(t, []string{"A", "B"}, a.DownloadUIDs())
	assert.True(t, a.RemoveFromDownloads("A"))
	assert.Equal(t, []string{"B"}, a.DownloadUIDs())
}

func TestAge(t *testing.T) {
	born := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	a := Account{Birthdate: &born}

	tests := []struct {
		now  time.Time
		want int
	}{
		{now: time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC), want: 25},
		{now: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), want: 26},
		{now: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), want: 26},
	}
	for _, tc := range tests {
		age := a.Age(tc.now)
		require.NotNil(t, age)
		assert.Equal(t, tc.want, *age, tc.now)
	}

	assert.Nil(t, (&Account{}).Age(time.Now()))
}

func TestViewOmitsCredentials(t *testing.T) {
	a := Account{ID: "1", Email: "a@example.com", PasswordHash: "secret-hash"}
	a.AddToWishlist("X", time.Now())

	view := a.View(time.Now())
	assert.Equal(t, []string{"X"}, view.Wishlist)
	assert.NotNil(t, view.RecentlyViewed)
	assert.NotNil(t, view.Downloads)
	assert.Nil(t, view.Age)
}
