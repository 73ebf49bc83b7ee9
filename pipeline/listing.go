package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/cppla/threadsense/reddit"
)

// MaxLimit is the largest page Reddit serves for a listing.
const MaxLimit = 100

// ParseSort maps a caller-supplied mode onto a listing order; anything
// unrecognized, including the empty string, becomes hot.
func ParseSort(mode string) reddit.Sort {
	switch s := reddit.Sort(strings.ToLower(strings.TrimSpace(mode))); s {
	case reddit.SortNew, reddit.SortTop, reddit.SortControversial, reddit.SortRising, reddit.SortHot:
		return s
	default:
		return reddit.SortHot
	}
}

// ParseWindow maps a caller-supplied time range; anything unrecognized becomes all.
func ParseWindow(window string) reddit.TimeWindow {
	switch w := reddit.TimeWindow(strings.ToLower(strings.TrimSpace(window))); w {
	case reddit.WindowHour, reddit.WindowDay, reddit.WindowWeek, reddit.WindowMonth, reddit.WindowYear, reddit.WindowAll:
		return w
	default:
		return reddit.WindowAll
	}
}

// ParseLimit coerces a result cap. Absent, non-numeric and non-positive input
// yields 1.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return clampLimit(n)
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// windowFor returns the window to forward, which is none unless the order is
// score based.
func windowFor(sort reddit.Sort, window string) reddit.TimeWindow {
	if sort != reddit.SortTop && sort != reddit.SortControversial {
		return ""
	}
	return ParseWindow(window)
}

// ListingStrategy picks the retrieval mode and hides transport errors behind
// RetrievalError.
type ListingStrategy struct {
	client reddit.ContentClient
}

func NewListingStrategy(client reddit.ContentClient) *ListingStrategy {
	return &ListingStrategy{client: client}
}

// Retrieve lists posts of collection by mode.
func (l *ListingStrategy) Retrieve(ctx context.Context, collection, mode, window string, limit int) ([]reddit.RawPost, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, &InvalidInputError{Field: "subreddit", Reason: "must not be empty"}
	}
	sort := ParseSort(mode)
	posts, err := l.client.Listing(ctx, collection, sort, windowFor(sort, window), clampLimit(limit))
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Cause: err}
	}
	return posts, nil
}

// Search lists posts of collection matching keyword by relevance.
func (l *ListingStrategy) Search(ctx context.Context, collection, keyword string, limit int) ([]reddit.RawPost, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, &InvalidInputError{Field: "subreddit", Reason: "must not be empty"}
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, &InvalidInputError{Field: "keyword", Reason: "must not be empty"}
	}
	posts, err := l.client.Search(ctx, collection, keyword, clampLimit(limit))
	if err != nil {
		return nil, &RetrievalError{Collection: collection, Cause: err}
	}
	return posts, nil
}
