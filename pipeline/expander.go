package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cppla/threadsense/reddit"
)

const (
	// MaxBreadth caps top-level comments and the replies under each of them.
	MaxBreadth = 10
	// MaxDepth is how many levels of nested replies are kept below top-level comments.
	MaxDepth = 1

	// Reddit applies limit to the whole tree, replies included.
	commentFetchLimit = MaxBreadth * (MaxBreadth + 1)
)

// ThreadExpander fetches a bounded slice of each post's comment tree.
type ThreadExpander struct {
	client reddit.ContentClient
}

func NewThreadExpander(client reddit.ContentClient) *ThreadExpander {
	return &ThreadExpander{client: client}
}

// Expand returns the comments of one post flattened parent-first: each top-level
// comment is followed by its replies.
func (e *ThreadExpander) Expand(ctx context.Context, postID string) ([]reddit.RawComment, error) {
	// Reddit counts top-level comments as depth 1.
	tree, err := e.client.Comments(ctx, postID, commentFetchLimit, MaxDepth+1)
	if err != nil {
		return nil, &ExpansionError{PostID: postID, Cause: err}
	}
	out := make([]reddit.RawComment, 0, len(tree))
	flatten(&out, tree, 0)
	return out, nil
}

func flatten(out *[]reddit.RawComment, level []reddit.RawComment, depth int) {
	if len(level) > MaxBreadth {
		level = level[:MaxBreadth]
	}
	for _, c := range level {
		replies := c.Replies
		c.Replies = nil
		c.Depth = depth
		*out = append(*out, c)
		if depth < MaxDepth {
			flatten(out, replies, depth+1)
		}
	}
}

// ExpandAll expands every post concurrently. The first failure cancels the
// remaining expansions and is returned; results are indexed like posts.
func (e *ThreadExpander) ExpandAll(ctx context.Context, posts []reddit.RawPost) ([][]reddit.RawComment, error) {
	results := make([][]reddit.RawComment, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	for i := range posts {
		i := i
		g.Go(func() error {
			comments, err := e.Expand(gctx, posts[i].ID)
			if err != nil {
				return err
			}
			results[i] = comments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
