package reddit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_b",
    "children": [
      {"kind": "t3", "data": {"id": "a", "name": "t3_a", "title": "First", "url": "https://example.com/a",
        "author": "alice", "score": 10, "subreddit": "Technology", "over_18": false,
        "created_utc": 1700000000.0, "permalink": "/r/Technology/comments/a/first/"}},
      {"kind": "t3", "data": {"id": "b", "name": "t3_b", "title": "Second", "url": "https://example.com/b",
        "author": null, "score": 3, "subreddit": "Technology", "over_18": true,
        "created_utc": 1700000100.5, "permalink": "/r/Technology/comments/b/second/"}}
    ]
  }
}`

const commentsJSON = `[
  {"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": "a"}}]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {"id": "c1", "name": "t1_c1", "author": "bob", "body": "top", "ups": 4, "downs": 0,
      "created_utc": 1700000200, "permalink": "/r/Technology/comments/a/first/c1/", "parent_id": "t3_a", "depth": 0,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {"id": "c2", "name": "t1_c2", "author": "carol", "body": "reply", "parent_id": "t1_c1",
          "depth": 1, "replies": ""}},
        {"kind": "more", "data": {"count": 3}}
      ]}}}},
    {"kind": "t1", "data": {"id": "c3", "name": "t1_c3", "author": null, "body": "[removed]", "parent_id": "t3_a",
      "depth": 0, "replies": ""}}
  ]}}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Options{
		BaseURL:           srv.URL,
		HTTPClient:        srv.Client(),
		UserAgent:         "threadsense-test/1.0",
		RequestsPerMinute: 6000,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestListingSendsWindowAndDecodesPosts(t *testing.T) {
	var gotPath, gotWindow, gotLimit, gotRaw, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWindow = r.URL.Query().Get("t")
		gotLimit = r.URL.Query().Get("limit")
		gotRaw = r.URL.Query().Get("raw_json")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(listingJSON))
	})

	posts, err := c.Listing(context.Background(), "technology", SortTop, WindowWeek, 2)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if gotPath != "/r/technology/top" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotWindow != "week" || gotLimit != "2" || gotRaw != "1" {
		t.Errorf("unexpected query t=%q limit=%q raw_json=%q", gotWindow, gotLimit, gotRaw)
	}
	if gotUA != "threadsense-test/1.0" {
		t.Errorf("unexpected user agent %q", gotUA)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Author == nil || *posts[0].Author != "alice" {
		t.Errorf("expected author alice, got %v", posts[0].Author)
	}
	if posts[1].Author != nil {
		t.Errorf("expected nil author for null, got %q", *posts[1].Author)
	}
	if posts[1].CreatedUTC != 1700000100.5 {
		t.Errorf("unexpected created_utc %v", posts[1].CreatedUTC)
	}
}

func TestListingOmitsEmptyWindow(t *testing.T) {
	hasWindow := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasWindow = r.URL.Query()["t"]
		w.Write([]byte(listingJSON))
	})
	if _, err := c.Listing(context.Background(), "golang", SortHot, "", 1); err != nil {
		t.Fatalf("listing: %v", err)
	}
	if hasWindow {
		t.Error("expected no t parameter for an empty window")
	}
}

func TestSearchRestrictsToSubreddit(t *testing.T) {
	var q map[string][]string
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		q = r.URL.Query()
		w.Write([]byte(listingJSON))
	})
	if _, err := c.Search(context.Background(), "programming", "go generics", 5); err != nil {
		t.Fatalf("search: %v", err)
	}
	if path != "/r/programming/search" {
		t.Errorf("unexpected path %q", path)
	}
	if q["q"][0] != "go generics" || q["restrict_sr"][0] != "1" || q["sort"][0] != "relevance" {
		t.Errorf("unexpected query %v", q)
	}
}

func TestCommentsDecodesNestedReplies(t *testing.T) {
	var depth, limit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/a" {
			http.NotFound(w, r)
			return
		}
		depth = r.URL.Query().Get("depth")
		limit = r.URL.Query().Get("limit")
		w.Write([]byte(commentsJSON))
	})

	comments, err := c.Comments(context.Background(), "a", 10, 2)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if depth != "2" || limit != "10" {
		t.Errorf("unexpected depth=%q limit=%q", depth, limit)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 top-level comments, got %d", len(comments))
	}
	if len(comments[0].Replies) != 1 || comments[0].Replies[0].ID != "c2" {
		t.Fatalf("expected reply c2 under c1, got %+v", comments[0].Replies)
	}
	if comments[1].Replies != nil {
		t.Errorf("expected no replies for empty string, got %+v", comments[1].Replies)
	}
	if comments[1].Author != nil {
		t.Errorf("expected nil author")
	}
}

func TestRateLimitedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Listing(context.Background(), "golang", SortNew, "", 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"reason": "private"}`))
	})
	_, err := c.Listing(context.Background(), "secret", SortHot, "", 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestNewRequiresClientID(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without client id")
	}
}
