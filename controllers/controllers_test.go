package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/persistence"
	"github.com/cppla/threadsense/pipeline"
	"github.com/cppla/threadsense/reddit"
)

type fakeRunner struct {
	err  error
	reqs []pipeline.Request
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Batch, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Batch{
		RunID:     "run-1",
		Subreddit: strings.ToLower(req.Subreddit),
		Posts:     []models.Post{{ID: "p1", Title: "hello", Subreddit: strings.ToLower(req.Subreddit)}},
	}, nil
}

func (f *fakeRunner) Ingest(ctx context.Context, req pipeline.Request) (*pipeline.IngestResult, error) {
	b, err := f.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &pipeline.IngestResult{Batch: b, Report: persistence.WriteReport{PostsWritten: 1}}, nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, r http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return w, env
}

func redditEngine(runner Runner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	rc := NewRedditController(runner, nil, 0, nil)
	r := gin.New()
	r.GET("/api/reddit/:subreddit", rc.GetSubreddit)
	r.GET("/api/reddit/:subreddit/search", rc.Search)
	r.POST("/api/reddit/:subreddit/ingest", rc.Ingest)
	return r
}

func TestGetSubredditDefaults(t *testing.T) {
	fr := &fakeRunner{}
	w, env := serve(t, redditEngine(fr), http.MethodGet, "/api/reddit/Technology?limit=abc&sort=bogus", nil)
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("unexpected response %d %+v", w.Code, env)
	}
	got := fr.reqs[0]
	if got.Sort != "hot" || got.Limit != 1 || got.Search {
		t.Errorf("unexpected request %+v", got)
	}
	if w.Header().Get("X-Run-Id") != "run-1" {
		t.Errorf("missing run id header")
	}
	var posts []models.Post
	if err := json.Unmarshal(env.Data, &posts); err != nil || len(posts) != 1 {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestSearchPassesKeyword(t *testing.T) {
	fr := &fakeRunner{}
	serve(t, redditEngine(fr), http.MethodGet, "/api/reddit/programming/search?keyword=%3Cb%3Egenerics%3C%2Fb%3E&limit=3", nil)
	got := fr.reqs[0]
	if !got.Search || got.Keyword != "generics" || got.Limit != 3 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestPipelineErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"invalid", &pipeline.InvalidInputError{Field: "keyword", Reason: "must not be empty"}, http.StatusBadRequest, CodeInvalidInput},
		{"rate limited", &pipeline.RetrievalError{Collection: "x", Cause: fmt.Errorf("wrapped: %w", reddit.ErrRateLimited)}, http.StatusTooManyRequests, CodeRateLimited},
		{"retrieval", &pipeline.RetrievalError{Collection: "x", Cause: errors.New("dns")}, http.StatusBadGateway, CodeRetrievalFailed},
		{"expansion rate limited", &pipeline.ExpansionError{PostID: "p", Cause: fmt.Errorf("comments: %w", reddit.ErrRateLimited)}, http.StatusTooManyRequests, CodeRateLimited},
		{"expansion", &pipeline.ExpansionError{PostID: "p", Cause: errors.New("eof")}, http.StatusBadGateway, CodeExpansionFailed},
		{"timeout", &pipeline.ExpansionError{PostID: "p", Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := serve(t, redditEngine(&fakeRunner{err: tc.err}), http.MethodGet, "/api/reddit/x", nil)
			if w.Code != tc.status || env.Code != tc.code {
				t.Errorf("got %d/%d, want %d/%d", w.Code, env.Code, tc.status, tc.code)
			}
			if tc.status == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
				t.Error("rate limited response without Retry-After")
			}
		})
	}
}

func TestScoringUnavailableCarriesUpstreamStatus(t *testing.T) {
	fr := &fakeRunner{err: &pipeline.ScoringError{Kind: pipeline.ScoringStatus, Status: 503, Body: "overloaded"}}
	w, env := serve(t, redditEngine(fr), http.MethodPost, "/api/reddit/technology/ingest?sort=top&time=week&limit=2", nil)
	if w.Code != http.StatusServiceUnavailable || env.Code != CodeScoringUnavailable {
		t.Fatalf("unexpected response %d %+v", w.Code, env)
	}
	var data struct {
		Kind   string `json:"kind"`
		Status int    `json:"status"`
		Body   string `json:"body"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Status != 503 || data.Body != "overloaded" || data.Kind != "status" {
		t.Errorf("unexpected data %+v", data)
	}
}

func TestIngestSummary(t *testing.T) {
	fr := &fakeRunner{}
	w, env := serve(t, redditEngine(fr), http.MethodPost, "/api/reddit/golang/ingest?keyword=modules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !fr.reqs[0].Search || fr.reqs[0].Keyword != "modules" {
		t.Errorf("keyword should switch to search: %+v", fr.reqs[0])
	}
	var data struct {
		RunID  string                  `json:"run_id"`
		Posts  int                     `json:"posts"`
		Report persistence.WriteReport `json:"report"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.RunID != "run-1" || data.Posts != 1 || data.Report.PostsWritten != 1 {
		t.Errorf("unexpected summary %+v", data)
	}
}

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

func storageEngine(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	dc := NewDBController(persistence.NewWriter(db, nil))
	sc := NewStatsController(db)
	r.POST("/api/db/saveData", dc.SaveData)
	r.GET("/api/stats", sc.GetStats)
	r.GET("/api/stats/:subreddit", sc.GetSubredditStats)
	return r
}

const savePayload = `{"success": true, "data": [
  {"id": "p1", "title": "t", "author": "a", "subreddit": "golang", "timestamp": 1700000000,
   "comments": [
     {"id": "c1", "author": "b", "body": "nice", "timestamp": 1700000100, "sentiment_score": 0.5},
     {"id": "c2", "author": "c", "body": "meh", "timestamp": 1700000200, "sentiment_score": -0.1},
     {"id": "c3", "author": "d", "body": "?", "timestamp": 1700000300}
   ]}
]}`

func TestSaveDataAndStats(t *testing.T) {
	db := newTestDB(t)
	r := storageEngine(db)

	w, env := serve(t, r, http.MethodPost, "/api/db/saveData", []byte(savePayload))
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %+v", w.Code, env)
	}
	var report persistence.WriteReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.PostsWritten != 1 || report.CommentsWritten != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	// Saving the same payload again changes nothing.
	serve(t, r, http.MethodPost, "/api/db/saveData", []byte(savePayload))

	w, env = serve(t, r, http.MethodGet, "/api/stats/GoLang", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d %+v", w.Code, env)
	}
	var st SubredditStats
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.Posts != 1 || st.Comments != 3 || st.ScoredComments != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.AvgSentiment == nil || *st.AvgSentiment < 0.199 || *st.AvgSentiment > 0.201 {
		t.Errorf("unexpected average sentiment %v", st.AvgSentiment)
	}

	w, _ = serve(t, r, http.MethodGet, "/api/stats/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown subreddit, got %d", w.Code)
	}
}

func TestSaveDataRejectsBadPayloads(t *testing.T) {
	r := storageEngine(newTestDB(t))
	cases := map[string]string{
		"not json":      `{`,
		"unsuccessful":  `{"success": false, "data": [{"id": "p1"}]}`,
		"empty":         `{"success": true, "data": []}`,
		"missing id":    `{"success": true, "data": [{"title": "x"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, _ := serve(t, r, http.MethodPost, "/api/db/saveData", []byte(body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestStatsEmpty(t *testing.T) {
	w, env := serve(t, storageEngine(newTestDB(t)), http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}
	var data struct {
		PostCount int64 `json:"post_count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.PostCount != 0 {
		t.Errorf("unexpected data %s", env.Data)
	}
}


func TestCachePrefixesStayWithinSubreddit(t *testing.T) {
	keys := []string{
		cacheKey(pipeline.Request{Subreddit: "GoLang", Sort: "top", Time: "week", Limit: 5}),
		cacheKey(pipeline.Request{Subreddit: "golang", Keyword: "generics", Limit: 1, Search: true}),
	}
	others := []string{
		cacheKey(pipeline.Request{Subreddit: "golangnuts", Sort: "hot", Limit: 1}),
		cacheKey(pipeline.Request{Subreddit: "rust", Keyword: "golang", Limit: 1, Search: true}),
	}
	covered := func(key string) bool {
		for _, p := range cachePrefixes("golang") {
			if strings.HasPrefix(key, p) {
				return true
			}
		}
		return false
	}
	for _, k := range keys {
		if !covered(k) {
			t.Errorf("key %q not invalidated", k)
		}
	}
	for _, k := range others {
		if covered(k) {
			t.Errorf("key %q of another subreddit invalidated", k)
		}
	}
}
