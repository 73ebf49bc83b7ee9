package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/persistence"
	"github.com/cppla/threadsense/reddit"
)

// Scorer annotates the comments of a batch with sentiment and emotion scores.
type Scorer interface {
	Score(ctx context.Context, posts []models.Post) ([]models.Post, error)
}

// Writer persists a batch.
type Writer interface {
	Write(ctx context.Context, posts []models.Post) persistence.WriteReport
}

// Request describes one ingestion run. Search selects keyword retrieval and
// ignores Sort and Time.
type Request struct {
	Subreddit string
	Sort      string
	Time      string
	Limit     int
	Keyword   string
	Search    bool
}

// Timings holds per-phase wall-clock durations. They are diagnostic only.
type Timings struct {
	Retrieval time.Duration `json:"retrieval"`
	Scoring   time.Duration `json:"scoring"`
}

// Batch is the normalized output of one run.
type Batch struct {
	RunID     string        `json:"run_id"`
	Subreddit string        `json:"subreddit"`
	Posts     []models.Post `json:"posts"`
	Scored    bool          `json:"scored"`
	Timings   Timings       `json:"timings"`
}

// Comments returns every comment of the batch in post order.
func (b *Batch) Comments() []models.Comment {
	var out []models.Comment
	for _, p := range b.Posts {
		out = append(out, p.Comments...)
	}
	return out
}

// IngestResult pairs a batch with the outcome of persisting it.
type IngestResult struct {
	Batch  *Batch                  `json:"batch"`
	Report persistence.WriteReport `json:"report"`
}

// Orchestrator composes retrieval, expansion, normalization and optional
// scoring into one run.
type Orchestrator struct {
	listing  *ListingStrategy
	expander *ThreadExpander
	scorer   Scorer
	writer   Writer
	log      *zap.Logger
}

type Option func(*Orchestrator)

func WithScorer(s Scorer) Option { return func(o *Orchestrator) { o.scorer = s } }

func WithWriter(w Writer) Option { return func(o *Orchestrator) { o.writer = w } }

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOrchestrator(client reddit.ContentClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		listing:  NewListingStrategy(client),
		expander: NewThreadExpander(client),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HasWriter reports whether Ingest can persist.
func (o *Orchestrator) HasWriter() bool { return o.writer != nil }

// Run fetches and normalizes one batch, scoring it when a scorer is configured.
// Any failure aborts the run and no batch is returned.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Batch, error) {
	sub := strings.ToLower(strings.TrimSpace(req.Subreddit))
	if sub == "" {
		return nil, &InvalidInputError{Field: "subreddit", Reason: "must not be empty"}
	}
	if req.Search && strings.TrimSpace(req.Keyword) == "" {
		return nil, &InvalidInputError{Field: "keyword", Reason: "must not be empty"}
	}
	batch := &Batch{RunID: uuid.NewString(), Subreddit: sub}
	log := o.log.With(zap.String("run_id", batch.RunID), zap.String("subreddit", sub))

	start := time.Now()
	var (
		raw []reddit.RawPost
		err error
	)
	if req.Search {
		raw, err = o.listing.Search(ctx, sub, req.Keyword, req.Limit)
	} else {
		raw, err = o.listing.Retrieve(ctx, sub, req.Sort, req.Time, req.Limit)
	}
	if err != nil {
		log.Warn("retrieval failed", zap.Error(err))
		return nil, err
	}
	threads, err := o.expander.ExpandAll(ctx, raw)
	if err != nil {
		log.Warn("comment expansion failed", zap.Error(err))
		return nil, err
	}
	batch.Posts = make([]models.Post, 0, len(raw))
	for i, rp := range raw {
		batch.Posts = append(batch.Posts, NormalizeThread(rp, threads[i]))
	}
	batch.Timings.Retrieval = time.Since(start)

	if o.scorer != nil {
		start = time.Now()
		scored, err := o.scorer.Score(ctx, batch.Posts)
		batch.Timings.Scoring = time.Since(start)
		if err != nil {
			var se *ScoringError
			if !errors.As(err, &se) {
				err = &ScoringError{Kind: ScoringUnreachable, Cause: err}
			}
			log.Warn("scoring failed", zap.Error(err), zap.Duration("scoring", batch.Timings.Scoring))
			return nil, err
		}
		batch.Posts = scored
		batch.Scored = true
	}

	log.Info("batch ready",
		zap.Int("posts", len(batch.Posts)),
		zap.Int("comments", len(batch.Comments())),
		zap.Duration("retrieval", batch.Timings.Retrieval),
		zap.Duration("scoring", batch.Timings.Scoring),
	)
	return batch, nil
}

// Ingest runs the pipeline and writes the batch. Nothing is written when Run fails.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (*IngestResult, error) {
	if o.writer == nil {
		return nil, errors.New("ingest: no writer configured")
	}
	batch, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	report := o.writer.Write(ctx, batch.Posts)
	o.log.Info("batch persisted",
		zap.String("run_id", batch.RunID),
		zap.Int("posts_written", report.PostsWritten),
		zap.Int("comments_written", report.CommentsWritten),
		zap.Int("errors", len(report.Errors)),
	)
	return &IngestResult{Batch: batch, Report: report}, nil
}
