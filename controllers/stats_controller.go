package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/utils"
)

// StatsController reports what has been ingested so far.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// SubredditStats aggregates the stored rows of one subreddit.
type SubredditStats struct {
	Subreddit      string   `json:"subreddit"`
	Posts          int64    `json:"posts"`
	Comments       int64    `json:"comments"`
	ScoredComments int64    `json:"scored_comments"`
	AvgSentiment   *float64 `json:"avg_sentiment"`
	AvgPositivity  *float64 `json:"avg_overall_positivity"`
	AvgNegativity  *float64 `json:"avg_overall_negativity"`
}

type subredditCount struct {
	Subreddit string
	Posts     int64
}

func (s *StatsController) collect(subreddit string) ([]SubredditStats, error) {
	var posts []subredditCount
	pq := s.db.Model(&models.PostRecord{}).Select("subreddit, COUNT(*) AS posts").Group("subreddit").Order("subreddit")
	if subreddit != "" {
		pq = pq.Where("subreddit = ?", subreddit)
	}
	if err := pq.Scan(&posts).Error; err != nil {
		return nil, err
	}

	var comments []SubredditStats
	cq := s.db.Model(&models.CommentRecord{}).
		Select("posts.subreddit AS subreddit, COUNT(comments.id) AS comments, " +
			"COUNT(comments.sentiment_score) AS scored_comments, " +
			"AVG(comments.sentiment_score) AS avg_sentiment, " +
			"AVG(comments.overall_positivity) AS avg_positivity, " +
			"AVG(comments.overall_negativity) AS avg_negativity").
		Joins("JOIN posts ON posts.reddit_post_id = comments.reddit_post_id").
		Group("posts.subreddit")
	if subreddit != "" {
		cq = cq.Where("posts.subreddit = ?", subreddit)
	}
	if err := cq.Scan(&comments).Error; err != nil {
		return nil, err
	}
	bySub := make(map[string]SubredditStats, len(comments))
	for _, c := range comments {
		bySub[c.Subreddit] = c
	}

	out := make([]SubredditStats, 0, len(posts))
	for _, p := range posts {
		st := bySub[p.Subreddit]
		st.Subreddit = p.Subreddit
		st.Posts = p.Posts
		out = append(out, st)
	}
	return out, nil
}

// GetStats returns totals and per-subreddit aggregates.
func (s *StatsController) GetStats(ctx *gin.Context) {
	subs, err := s.collect("")
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, CodeStorageUnavailable, "stats unavailable")
		return
	}
	var postCount, commentCount int64
	for _, st := range subs {
		postCount += st.Posts
		commentCount += st.Comments
	}
	utils.Success(ctx, gin.H{
		"post_count":    postCount,
		"comment_count": commentCount,
		"subreddits":    subs,
	})
}

// GetSubredditStats returns the aggregates of one subreddit.
func (s *StatsController) GetSubredditStats(ctx *gin.Context) {
	sub := strings.ToLower(utils.SanitizeParam(ctx.Param("subreddit")))
	subs, err := s.collect(sub)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, CodeStorageUnavailable, "stats unavailable")
		return
	}
	if len(subs) == 0 {
		utils.Error(ctx, http.StatusNotFound, 40410, "no data for r/"+sub)
		return
	}
	utils.Success(ctx, subs[0])
}
