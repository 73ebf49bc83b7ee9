// Package app assembles the ingestion pipeline from configuration. It is shared
// by the HTTP server and the command line tool.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/threadsense/config"
	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/persistence"
	"github.com/cppla/threadsense/pipeline"
	"github.com/cppla/threadsense/reddit"
	"github.com/cppla/threadsense/scoring"
	"github.com/cppla/threadsense/utils"
)

// Models lists every table the service owns, parents first.
func Models() []interface{} {
	return []interface{}{&models.PostRecord{}, &models.CommentRecord{}}
}

// App holds the wired components. DB, Writer, Redis and Cache are nil when
// storage was not requested or is not configured.
type App struct {
	Config       config.AppConfig
	Log          *zap.Logger
	Reddit       *reddit.Client
	Scorer       *scoring.Client
	DB           *gorm.DB
	Writer       *persistence.Writer
	Redis        *redis.Client
	Cache        *utils.Cache
	Orchestrator *pipeline.Orchestrator
}

// Options selects the optional parts of the assembly.
type Options struct {
	WithDB    bool
	WithCache bool
	NoScoring bool
}

// NewRedditClient builds the Reddit client from cfg.
func NewRedditClient(ctx context.Context, cfg config.AppConfig) (*reddit.Client, error) {
	return reddit.New(ctx, reddit.Options{
		ClientID:          cfg.RedditClientID,
		ClientSecret:      cfg.RedditClientSecret,
		Username:          cfg.RedditUsername,
		Password:          cfg.RedditPassword,
		UserAgent:         cfg.RedditUserAgent,
		BaseURL:           cfg.RedditBaseURL,
		TokenURL:          cfg.RedditTokenURL,
		Timeout:           time.Duration(cfg.RedditTimeoutSec) * time.Second,
		RequestsPerMinute: cfg.RedditRequestsPerMinute,
	})
}

// NewScorer returns a scoring client, or nil when no service is configured.
func NewScorer(cfg config.AppConfig) *scoring.Client {
	if cfg.ScoringURL == "" {
		return nil
	}
	return scoring.New(cfg.ScoringURL, &http.Client{Timeout: time.Duration(cfg.ScoringTimeoutSec) * time.Second})
}

// Build wires the pipeline from cfg.
func Build(ctx context.Context, cfg config.AppConfig, opts Options) (*App, error) {
	a := &App{Config: cfg, Log: utils.L()}

	rc, err := NewRedditClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	a.Reddit = rc

	pipeOpts := []pipeline.Option{pipeline.WithLogger(a.Log.Named("pipeline"))}
	if !opts.NoScoring {
		if s := NewScorer(cfg); s != nil {
			a.Scorer = s
			pipeOpts = append(pipeOpts, pipeline.WithScorer(s))
		} else {
			a.Log.Info("SCORING_URL not set, batches are returned unscored")
		}
	}

	if opts.WithDB {
		db, err := config.InitDatabase(cfg, Models()...)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Writer = persistence.NewWriter(db, a.Log.Named("persistence"))
		pipeOpts = append(pipeOpts, pipeline.WithWriter(a.Writer))
	}

	if opts.WithCache {
		a.Redis = utils.NewRedis(cfg)
		a.Cache = utils.NewCache(a.Redis, cfg.CacheTTL())
	}

	a.Orchestrator = pipeline.NewOrchestrator(rc, pipeOpts...)
	return a, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
