package models

import (
	"math"
	"time"
)

// PostRecord is the persisted row for a Post, keyed by the Reddit post id.
type PostRecord struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RedditPostID string    `gorm:"column:reddit_post_id;size:32;uniqueIndex;not null" json:"reddit_post_id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	URL          string    `gorm:"type:text" json:"url"`
	Author       string    `gorm:"size:64" json:"author"`
	Score        int       `json:"score"`
	Subreddit    string    `gorm:"size:64;index" json:"subreddit"`
	Over18       bool      `gorm:"column:over_18" json:"over_18"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	Permalink    string    `gorm:"type:text" json:"permalink"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps the table name stable regardless of the struct name.
func (PostRecord) TableName() string { return "posts" }

// CommentRecord is the persisted row for a Comment. RedditPostID references
// posts.reddit_post_id.
type CommentRecord struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	RedditCommentID   string     `gorm:"column:reddit_comment_id;size:32;uniqueIndex;not null" json:"reddit_comment_id"`
	RedditPostID      string     `gorm:"column:reddit_post_id;size:32;index;not null" json:"reddit_post_id"`
	Post              PostRecord `gorm:"foreignKey:RedditPostID;references:RedditPostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Author            string     `gorm:"size:64" json:"author"`
	Body              string     `gorm:"type:text" json:"body"`
	SentimentScore    *float64   `json:"sentiment_score"`
	Anger             *float64   `json:"anger"`
	Anticipation      *float64   `json:"anticipation"`
	Disgust           *float64   `json:"disgust"`
	Fear              *float64   `json:"fear"`
	Joy               *float64   `json:"joy"`
	Negative          *float64   `json:"negative"`
	Positive          *float64   `json:"positive"`
	Sadness           *float64   `json:"sadness"`
	Surprise          *float64   `json:"surprise"`
	Trust             *float64   `json:"trust"`
	Upvotes           int        `json:"upvotes"`
	Downvotes         int        `json:"downvotes"`
	OverallPositivity *float64   `json:"overall_positivity"`
	OverallNegativity *float64   `json:"overall_negativity"`
	Over18            bool       `gorm:"column:over_18" json:"over_18"`
	Timestamp         time.Time  `gorm:"index" json:"timestamp"`
	Permalink         string     `gorm:"type:text" json:"permalink"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (CommentRecord) TableName() string { return "comments" }

// EpochToInstant converts Reddit's created_utc seconds into an absolute instant,
// going through milliseconds so fractional seconds survive.
func EpochToInstant(seconds float64) time.Time {
	return time.UnixMilli(int64(math.Round(seconds * 1000))).UTC()
}

// NewPostRecord maps a normalized post onto its row.
func NewPostRecord(p Post) PostRecord {
	return PostRecord{
		RedditPostID: p.ID,
		Title:        p.Title,
		URL:          p.URL,
		Author:       p.Author,
		Score:        p.Score,
		Subreddit:    p.Subreddit,
		Over18:       p.Over18,
		Timestamp:    EpochToInstant(p.Timestamp),
		Permalink:    p.Permalink,
	}
}

// NewCommentRecord maps a normalized comment onto its row under postID.
func NewCommentRecord(postID string, c Comment) CommentRecord {
	return CommentRecord{
		RedditCommentID:   c.ID,
		RedditPostID:      postID,
		Author:            c.Author,
		Body:              c.Body,
		SentimentScore:    c.SentimentScore,
		Anger:             c.Anger,
		Anticipation:      c.Anticipation,
		Disgust:           c.Disgust,
		Fear:              c.Fear,
		Joy:               c.Joy,
		Negative:          c.Negative,
		Positive:          c.Positive,
		Sadness:           c.Sadness,
		Surprise:          c.Surprise,
		Trust:             c.Trust,
		Upvotes:           c.Upvotes,
		Downvotes:         c.Downvotes,
		OverallPositivity: c.OverallPositivity,
		OverallNegativity: c.OverallNegativity,
		Over18:            c.Over18,
		Timestamp:         EpochToInstant(c.Timestamp),
		Permalink:         c.Permalink,
	}
}
