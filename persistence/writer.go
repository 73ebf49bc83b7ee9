// Package persistence stores normalized posts and comments with insert-if-absent
// semantics, isolating failures per record.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/threadsense/models"
)

// RecordKind names the table a RecordError belongs to.
type RecordKind string

const (
	KindPost    RecordKind = "post"
	KindComment RecordKind = "comment"
)

// RecordError is one record that could not be written.
type RecordError struct {
	Kind   RecordKind
	ID     string
	PostID string
	Reason string
	Cause  error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.ID, e.Reason, e.Cause)
}

func (e RecordError) Unwrap() error { return e.Cause }

func (e RecordError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(struct {
		Kind   RecordKind `json:"kind"`
		ID     string     `json:"id"`
		PostID string     `json:"post_id,omitempty"`
		Reason string     `json:"reason"`
		Cause  string     `json:"cause"`
	}{e.Kind, e.ID, e.PostID, e.Reason, cause})
}

// WriteReport summarizes a batch write. Existing counts rows that were already
// stored and left untouched. CommentsSkipped counts comments not attempted
// because their post failed to write.
type WriteReport struct {
	PostsWritten     int           `json:"posts_written"`
	PostsExisting    int           `json:"posts_existing"`
	CommentsWritten  int           `json:"comments_written"`
	CommentsExisting int           `json:"comments_existing"`
	CommentsSkipped  int           `json:"comments_skipped"`
	Errors           []RecordError `json:"errors"`
}

// Failed reports whether any record failed.
func (r WriteReport) Failed() bool { return len(r.Errors) > 0 }

// Writer performs idempotent inserts through gorm.
type Writer struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewWriter(db *gorm.DB, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{db: db, log: log}
}

// InsertIfAbsent inserts record unless a row with the same conflictColumn value
// exists, in which case the stored row is left untouched. It reports whether a
// row was created.
func (w *Writer) InsertIfAbsent(ctx context.Context, record interface{}, conflictColumn string) (bool, error) {
	res := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: conflictColumn}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Write stores every post, then its comments. Each record is its own unit of
// work; failures are collected and the loop continues. Comments of a post that
// failed are skipped so they never reference a missing row.
func (w *Writer) Write(ctx context.Context, posts []models.Post) WriteReport {
	report := WriteReport{Errors: []RecordError{}}
	for _, p := range posts {
		pr := models.NewPostRecord(p)
		created, err := w.InsertIfAbsent(ctx, &pr, "reddit_post_id")
		if err != nil {
			re := RecordError{Kind: KindPost, ID: p.ID, Reason: Classify(err), Cause: err}
			w.log.Warn("post write failed", zap.String("post_id", p.ID), zap.String("reason", re.Reason), zap.Error(err))
			report.Errors = append(report.Errors, re)
			report.CommentsSkipped += len(p.Comments)
			continue
		}
		if created {
			report.PostsWritten++
		} else {
			report.PostsExisting++
		}

		for _, c := range p.Comments {
			cr := models.NewCommentRecord(p.ID, c)
			created, err := w.InsertIfAbsent(ctx, &cr, "reddit_comment_id")
			if err != nil {
				re := RecordError{Kind: KindComment, ID: c.ID, PostID: p.ID, Reason: Classify(err), Cause: err}
				w.log.Warn("comment write failed", zap.String("comment_id", c.ID), zap.String("post_id", p.ID), zap.String("reason", re.Reason), zap.Error(err))
				report.Errors = append(report.Errors, re)
				continue
			}
			if created {
				report.CommentsWritten++
			} else {
				report.CommentsExisting++
			}
		}
	}
	return report
}
