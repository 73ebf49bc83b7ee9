package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cppla/threadsense/reddit"
)

type listingCall struct {
	Subreddit string
	Sort      reddit.Sort
	Window    reddit.TimeWindow
	Limit     int
}

// fakeClient serves canned posts and builds a comment tree per post.
type fakeClient struct {
	mu           sync.Mutex
	posts        []reddit.RawPost
	listErr      error
	failComments map[string]error
	listings     []listingCall
	searches     []string
	commentCalls []string
	commentArgs  [2]int
}

func (f *fakeClient) Listing(_ context.Context, sub string, sort reddit.Sort, window reddit.TimeWindow, limit int) ([]reddit.RawPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings = append(f.listings, listingCall{sub, sort, window, limit})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.take(limit), nil
}

func (f *fakeClient) Search(_ context.Context, sub, query string, limit int) ([]reddit.RawPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.take(limit), nil
}

func (f *fakeClient) take(limit int) []reddit.RawPost {
	if limit < len(f.posts) {
		return f.posts[:limit]
	}
	return f.posts
}

func (f *fakeClient) Comments(ctx context.Context, postID string, limit, depth int) ([]reddit.RawComment, error) {
	f.mu.Lock()
	f.commentCalls = append(f.commentCalls, postID)
	f.commentArgs = [2]int{limit, depth}
	err := f.failComments[postID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return commentTree(postID, 12, 12), nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listings) + len(f.searches) + len(f.commentCalls)
}

func str(s string) *string { return &s }

func rawPost(id string) reddit.RawPost {
	return reddit.RawPost{
		ID:         id,
		Name:       "t3_" + id,
		Title:      "Post " + id,
		URL:        "https://example.com/" + id,
		Author:     str("alice"),
		Score:      42,
		Subreddit:  "Technology",
		CreatedUTC: 1700000000,
		Permalink:  "/r/Technology/comments/" + id + "/post/",
	}
}

// commentTree returns top top-level comments each carrying replies replies,
// which in turn carry one grandchild that must be cut.
func commentTree(postID string, top, replies int) []reddit.RawComment {
	out := make([]reddit.RawComment, 0, top)
	for i := 0; i < top; i++ {
		id := fmt.Sprintf("%s_c%d", postID, i)
		c := reddit.RawComment{
			ID: id, Name: "t1_" + id, Author: str("bob"), Body: "comment",
			Subreddit: "Technology", ParentID: "t3_" + postID,
			Permalink: "/r/Technology/comments/" + postID + "/post/" + id + "/",
		}
		for j := 0; j < replies; j++ {
			rid := fmt.Sprintf("%s_r%d", id, j)
			r := reddit.RawComment{ID: rid, Name: "t1_" + rid, Author: nil, Body: "reply", ParentID: "t1_" + id, Depth: 1}
			r.Replies = []reddit.RawComment{{ID: rid + "_g", ParentID: "t1_" + rid, Depth: 2}}
			c.Replies = append(c.Replies, r)
		}
		out = append(out, c)
	}
	return out
}
