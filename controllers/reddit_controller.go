package controllers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/pipeline"
	"github.com/cppla/threadsense/utils"
)

// Runner is the part of the orchestrator the HTTP layer drives.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Batch, error)
	Ingest(ctx context.Context, req pipeline.Request) (*pipeline.IngestResult, error)
}

// RedditController exposes listing, search and ingestion runs.
type RedditController struct {
	runner  Runner
	cache   *utils.Cache
	timeout time.Duration
	log     *zap.Logger
}

// NewRedditController creates a controller. cache may be nil; timeout 0 means
// no deadline beyond the request's own.
func NewRedditController(runner Runner, cache *utils.Cache, timeout time.Duration, log *zap.Logger) *RedditController {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedditController{runner: runner, cache: cache, timeout: timeout, log: log}
}

func (rc *RedditController) withDeadline(ctx *gin.Context) (context.Context, context.CancelFunc) {
	if rc.timeout <= 0 {
		return context.WithCancel(ctx.Request.Context())
	}
	return context.WithTimeout(ctx.Request.Context(), rc.timeout)
}

func listingRequest(ctx *gin.Context) pipeline.Request {
	return pipeline.Request{
		Subreddit: utils.SanitizeParam(ctx.Param("subreddit")),
		Sort:      string(pipeline.ParseSort(ctx.Query("sort"))),
		Time:      ctx.Query("time"),
		Limit:     pipeline.ParseLimit(ctx.Query("limit")),
	}
}

func cacheKey(req pipeline.Request) string {
	sub := strings.ToLower(req.Subreddit)
	if req.Search {
		return fmt.Sprintf("%ssearch:%s:%s:%d", utils.RunCachePrefix, sub, strings.ToLower(req.Keyword), req.Limit)
	}
	window := ""
	if req.Sort == "top" || req.Sort == "controversial" {
		window = string(pipeline.ParseWindow(req.Time))
	}
	return fmt.Sprintf("%slisting:%s:%s:%s:%d", utils.RunCachePrefix, sub, req.Sort, window, req.Limit)
}

// cachePrefixes covers every cached run of one subreddit and nothing else.
func cachePrefixes(subreddit string) []string {
	sub := strings.ToLower(subreddit)
	return []string{
		utils.RunCachePrefix + "listing:" + sub + ":",
		utils.RunCachePrefix + "search:" + sub + ":",
	}
}

func setBatchHeaders(ctx *gin.Context, b *pipeline.Batch) {
	ctx.Header("X-Run-Id", b.RunID)
	ctx.Header("X-Retrieval-Ms", strconv.FormatInt(b.Timings.Retrieval.Milliseconds(), 10))
	ctx.Header("X-Scoring-Ms", strconv.FormatInt(b.Timings.Scoring.Milliseconds(), 10))
}

func (rc *RedditController) serveRun(ctx *gin.Context, req pipeline.Request) {
	key := cacheKey(req)
	var cached []models.Post
	if rc.cache.GetJSON(ctx.Request.Context(), key, &cached) {
		ctx.Header("X-Cache", "HIT")
		utils.Success(ctx, cached)
		return
	}

	runCtx, cancel := rc.withDeadline(ctx)
	defer cancel()
	batch, err := rc.runner.Run(runCtx, req)
	if err != nil {
		rc.log.Warn("run failed", zap.String("subreddit", req.Subreddit), zap.Error(err))
		respondPipelineError(ctx, err)
		return
	}
	rc.cache.SetJSON(ctx.Request.Context(), key, batch.Posts)
	setBatchHeaders(ctx, batch)
	utils.Success(ctx, batch.Posts)
}

// GetSubreddit lists posts of a subreddit with their comments.
// Query: sort (hot), time (all, top/controversial only), limit (1).
func (rc *RedditController) GetSubreddit(ctx *gin.Context) {
	rc.serveRun(ctx, listingRequest(ctx))
}

// Search lists posts of a subreddit matching keyword.
func (rc *RedditController) Search(ctx *gin.Context) {
	rc.serveRun(ctx, pipeline.Request{
		Subreddit: utils.SanitizeParam(ctx.Param("subreddit")),
		Keyword:   utils.SanitizeParam(ctx.Query("keyword")),
		Limit:     pipeline.ParseLimit(ctx.Query("limit")),
		Search:    true,
	})
}

// Ingest runs the pipeline and persists the batch. A keyword switches to search.
func (rc *RedditController) Ingest(ctx *gin.Context) {
	req := listingRequest(ctx)
	if kw, ok := ctx.GetQuery("keyword"); ok {
		req.Keyword = utils.SanitizeParam(kw)
		req.Search = true
	}

	runCtx, cancel := rc.withDeadline(ctx)
	defer cancel()
	res, err := rc.runner.Ingest(runCtx, req)
	if err != nil {
		rc.log.Warn("ingest failed", zap.String("subreddit", req.Subreddit), zap.Error(err))
		respondPipelineError(ctx, err)
		return
	}
	for _, prefix := range cachePrefixes(res.Batch.Subreddit) {
		rc.cache.InvalidateByPrefix(ctx.Request.Context(), prefix)
	}
	setBatchHeaders(ctx, res.Batch)
	utils.Success(ctx, gin.H{
		"run_id":    res.Batch.RunID,
		"subreddit": res.Batch.Subreddit,
		"posts":     len(res.Batch.Posts),
		"comments":  len(res.Batch.Comments()),
		"scored":    res.Batch.Scored,
		"timings": gin.H{
			"retrieval_ms": res.Batch.Timings.Retrieval.Milliseconds(),
			"scoring_ms":   res.Batch.Timings.Scoring.Milliseconds(),
		},
		"report": res.Report,
	})
}
