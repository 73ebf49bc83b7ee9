package reddit

import (
	"encoding/json"
	"fmt"
)

// Sort is a subreddit listing order.
type Sort string

const (
	SortHot           Sort = "hot"
	SortNew           Sort = "new"
	SortTop           Sort = "top"
	SortControversial Sort = "controversial"
	SortRising        Sort = "rising"
)

// TimeWindow narrows top and controversial listings. The empty value means
// "do not send a window".
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// RawPost is a t3 thing as returned by the listing and search endpoints.
// Author is nil when the API sends null.
type RawPost struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Author      *string `json:"author"`
	Score       int     `json:"score"`
	Subreddit   string  `json:"subreddit"`
	Over18      bool    `json:"over_18"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	NumComments int     `json:"num_comments"`
}

// RawComment is a t1 thing. Replies holds the decoded child comments; "more"
// placeholders are dropped.
type RawComment struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Author     *string      `json:"author"`
	Body       string       `json:"body"`
	Subreddit  string       `json:"subreddit"`
	Ups        int          `json:"ups"`
	Downs      int          `json:"downs"`
	Over18     *bool        `json:"over_18"`
	CreatedUTC float64      `json:"created_utc"`
	Permalink  string       `json:"permalink"`
	ParentID   string       `json:"parent_id"`
	LinkID     string       `json:"link_id"`
	Depth      int          `json:"depth"`
	Replies    []RawComment `json:"-"`
}

// UnmarshalJSON accepts both shapes Reddit uses for replies: an empty string
// or a nested Listing.
func (c *RawComment) UnmarshalJSON(b []byte) error {
	type plain RawComment
	aux := struct {
		*plain
		Replies json.RawMessage `json:"replies"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Replies = nil
	if len(aux.Replies) == 0 || aux.Replies[0] != '{' {
		return nil
	}
	var l Listing
	if err := json.Unmarshal(aux.Replies, &l); err != nil {
		return fmt.Errorf("decoding replies of %s: %w", c.ID, err)
	}
	replies, err := l.Comments()
	if err != nil {
		return err
	}
	c.Replies = replies
	return nil
}

// Thing is the kind/data envelope around every Reddit object.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Listing is a page of things.
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Before   string  `json:"before"`
		Children []Thing `json:"children"`
	} `json:"data"`
}

// Posts decodes every t3 child of the listing.
func (l Listing) Posts() ([]RawPost, error) {
	posts := make([]RawPost, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p RawPost
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Comments decodes every t1 child of the listing, skipping "more" stubs.
func (l Listing) Comments() ([]RawComment, error) {
	comments := make([]RawComment, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var c RawComment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			return nil, fmt.Errorf("decoding comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}
