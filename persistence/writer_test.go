package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/threadsense/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.PostRecord{}, &models.CommentRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func ptr(v float64) *float64 { return &v }

func samplePost(id string, comments ...string) models.Post {
	p := models.Post{
		ID:        id,
		Title:     "title " + id,
		URL:       "https://example.com/" + id,
		Author:    "alice",
		Score:     7,
		Subreddit: "technology",
		Timestamp: 1700000000.25,
		Permalink: "https://www.reddit.com/r/technology/comments/" + id,
	}
	for _, cid := range comments {
		p.Comments = append(p.Comments, models.Comment{
			ID:        cid,
			Name:      "t1_" + cid,
			PostID:    id,
			Author:    "bob",
			Body:      "body " + cid,
			Subreddit: "technology",
			Upvotes:   2,
			Timestamp: 1700000100,
			Scores:    models.Scores{SentimentScore: ptr(0.5), Joy: ptr(0.2)},
		})
	}
	return p
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWriteStoresPostsAndComments(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, nil)

	report := w.Write(context.Background(), []models.Post{samplePost("p1", "c1", "c2"), samplePost("p2", "c3")})
	if report.Failed() {
		t.Fatalf("unexpected errors: %+v", report.Errors)
	}
	if report.PostsWritten != 2 || report.CommentsWritten != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	var pr models.PostRecord
	if err := db.Where("reddit_post_id = ?", "p1").First(&pr).Error; err != nil {
		t.Fatalf("load post: %v", err)
	}
	if got := pr.Timestamp.UnixMilli(); got != 1700000000250 {
		t.Errorf("expected millisecond timestamp 1700000000250, got %d", got)
	}
	var cr models.CommentRecord
	if err := db.Where("reddit_comment_id = ?", "c1").First(&cr).Error; err != nil {
		t.Fatalf("load comment: %v", err)
	}
	if cr.RedditPostID != "p1" || cr.SentimentScore == nil || *cr.SentimentScore != 0.5 {
		t.Errorf("unexpected comment row %+v", cr)
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, nil)
	ctx := context.Background()
	batch := []models.Post{samplePost("p1", "c1", "c2")}

	w.Write(ctx, batch)

	// A later run with different scores must not overwrite what is stored.
	again := []models.Post{samplePost("p1", "c1", "c2")}
	again[0].Title = "edited"
	again[0].Comments[0].SentimentScore = ptr(-0.9)
	report := w.Write(ctx, again)

	if report.Failed() {
		t.Fatalf("unexpected errors: %+v", report.Errors)
	}
	if report.PostsWritten != 0 || report.PostsExisting != 1 || report.CommentsWritten != 0 || report.CommentsExisting != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if n := countRows(t, db, &models.PostRecord{}); n != 1 {
		t.Errorf("expected 1 post row, got %d", n)
	}
	if n := countRows(t, db, &models.CommentRecord{}); n != 2 {
		t.Errorf("expected 2 comment rows, got %d", n)
	}
	var pr models.PostRecord
	db.Where("reddit_post_id = ?", "p1").First(&pr)
	if pr.Title != "title p1" {
		t.Errorf("post was overwritten: %q", pr.Title)
	}
	var cr models.CommentRecord
	db.Where("reddit_comment_id = ?", "c1").First(&cr)
	if cr.SentimentScore == nil || *cr.SentimentScore != 0.5 {
		t.Errorf("score was overwritten: %v", cr.SentimentScore)
	}
}

func TestWriteIsolatesFailedPost(t *testing.T) {
	db := newTestDB(t)
	err := db.Callback().Create().Before("gorm:create").Register("test:reject_bad_post", func(tx *gorm.DB) {
		if pr, ok := tx.Statement.Dest.(*models.PostRecord); ok && pr.RedditPostID == "bad" {
			tx.AddError(errors.New("CHECK constraint failed: posts"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	w := NewWriter(db, nil)

	report := w.Write(context.Background(), []models.Post{
		samplePost("p1", "c1"),
		samplePost("bad", "c2", "c3"),
		samplePost("p3", "c4"),
	})

	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one record error, got %+v", report.Errors)
	}
	if e := report.Errors[0]; e.Kind != KindPost || e.ID != "bad" {
		t.Errorf("unexpected record error %+v", e)
	}
	if report.PostsWritten != 2 || report.CommentsWritten != 2 || report.CommentsSkipped != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	var orphans int64
	db.Model(&models.CommentRecord{}).Where("reddit_post_id = ?", "bad").Count(&orphans)
	if orphans != 0 {
		t.Errorf("expected no comments for the failed post, got %d", orphans)
	}
}

func TestCommentWithoutPostIsRejected(t *testing.T) {
	db := newTestDB(t)
	w := NewWriter(db, nil)

	cr := models.NewCommentRecord("missing", samplePost("missing", "c9").Comments[0])
	created, err := w.InsertIfAbsent(context.Background(), &cr, "reddit_comment_id")
	if err == nil || created {
		t.Fatalf("expected foreign key failure, got created=%v err=%v", created, err)
	}
	if reason := Classify(err); reason != ReasonForeignKey {
		t.Errorf("expected %s, got %s (%v)", ReasonForeignKey, reason, err)
	}
	if n := countRows(t, db, &models.CommentRecord{}); n != 0 {
		t.Errorf("expected no comment rows, got %d", n)
	}
}

func TestWriteReportJSON(t *testing.T) {
	e := RecordError{Kind: KindComment, ID: "c1", PostID: "p1", Reason: ReasonUnknown, Cause: errors.New("boom")}
	b, err := e.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"kind":"comment","id":"c1","post_id":"p1","reason":"unknown","cause":"boom"}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
