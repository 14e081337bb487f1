package services

import (
	"math"
	"sort"

	"github.com/gamestore-dxp/apiserver/types"
)

// AggregateRating returns the review count and the mean rating rounded to one
// decimal place. The mean of no reviews is 0.
func AggregateRating(reviews []types.Review) (int, float64) {
	total := len(reviews)
	if total == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	mean := float64(sum) / float64(total)
	return total, math.Round(mean*10) / 10
}

// SortNewestFirst orders reviews by creation time, newest first. Reviews
// created at the same instant keep their relative order.
func SortNewestFirst(reviews []types.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}
