package pipeline

import (
	"strings"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/reddit"
)

const (
	// DeletedAuthor replaces a missing author.
	DeletedAuthor = "Deleted"
	// PermalinkOrigin is prefixed to Reddit's relative permalinks.
	PermalinkOrigin = "https://www.reddit.com"
)

func resolveAuthor(author *string) string {
	if author == nil {
		return DeletedAuthor
	}
	a := strings.TrimSpace(*author)
	if a == "" || a == "[deleted]" {
		return DeletedAuthor
	}
	return a
}

func absolutePermalink(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return PermalinkOrigin + path
}

func stripKind(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i > 0 && i+1 < len(fullname) {
		return fullname[i+1:]
	}
	return fullname
}

// NormalizePost maps a raw post without its comments. The timestamp stays in
// epoch seconds.
func NormalizePost(raw reddit.RawPost) models.Post {
	return models.Post{
		ID:        raw.ID,
		Title:     raw.Title,
		URL:       raw.URL,
		Author:    resolveAuthor(raw.Author),
		Score:     raw.Score,
		Subreddit: strings.ToLower(raw.Subreddit),
		Over18:    raw.Over18,
		Timestamp: raw.CreatedUTC,
		Permalink: absolutePermalink(raw.Permalink),
	}
}

// NormalizeComment maps a raw comment under postID. Comments without their own
// adult flag inherit postOver18.
func NormalizeComment(raw reddit.RawComment, postID string, postOver18 bool) models.Comment {
	over18 := postOver18
	if raw.Over18 != nil {
		over18 = *raw.Over18
	}
	parent := stripKind(raw.ParentID)
	if parent == postID {
		parent = ""
	}
	return models.Comment{
		ID:        raw.ID,
		Name:      raw.Name,
		PostID:    postID,
		ParentID:  parent,
		Depth:     raw.Depth,
		Author:    resolveAuthor(raw.Author),
		Body:      raw.Body,
		Subreddit: strings.ToLower(raw.Subreddit),
		Upvotes:   raw.Ups,
		Downvotes: raw.Downs,
		Over18:    over18,
		Timestamp: raw.CreatedUTC,
		Permalink: absolutePermalink(raw.Permalink),
	}
}

// NormalizeThread maps a post and its expanded comments. Comments missing a
// subreddit take the post's.
func NormalizeThread(raw reddit.RawPost, comments []reddit.RawComment) models.Post {
	p := NormalizePost(raw)
	p.Comments = make([]models.Comment, 0, len(comments))
	for _, rc := range comments {
		c := NormalizeComment(rc, p.ID, p.Over18)
		if c.Subreddit == "" {
			c.Subreddit = p.Subreddit
		}
		p.Comments = append(p.Comments, c)
	}
	return p
}
