// Package scoring calls the external sentiment and emotion service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cppla/threadsense/models"
	"github.com/cppla/threadsense/pipeline"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4096
)

// Request is the body sent to the scoring service.
type Request struct {
	Data []models.Post `json:"data"`
}

// Response is the body the scoring service answers with.
type Response struct {
	Success bool          `json:"success"`
	Data    []models.Post `json:"data"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Client posts normalized batches to the scoring service.
type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the service at url. A nil httpClient gets a default
// one with a timeout.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{url: url, http: httpClient}
}

// Score sends posts and returns copies annotated with the scores the service
// computed. Only score fields are taken from the response; every other field
// keeps the value that was sent.
func (c *Client) Score(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	payload, err := json.Marshal(Request{Data: posts})
	if err != nil {
		return nil, &pipeline.ScoringError{Kind: pipeline.ScoringRequest, Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &pipeline.ScoringError{Kind: pipeline.ScoringRequest, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &pipeline.ScoringError{Kind: pipeline.ScoringUnreachable, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &pipeline.ScoringError{
			Kind:   pipeline.ScoringStatus,
			Status: resp.StatusCode,
			Body:   string(bytes.TrimSpace(body)),
			Cause:  fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, invalid(resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return nil, invalid(resp.StatusCode, fmt.Errorf("service reported failure: %s", msg))
	}
	merged, err := merge(posts, out.Data)
	if err != nil {
		return nil, invalid(resp.StatusCode, err)
	}
	return merged, nil
}

func invalid(status int, err error) error {
	return &pipeline.ScoringError{Kind: pipeline.ScoringInvalidResponse, Status: status, Cause: err}
}

// merge copies scores from got onto a copy of sent, matching comments by id.
// Every sent comment must come back scored and within range.
func merge(sent, got []models.Post) ([]models.Post, error) {
	scores := make(map[string]models.Scores)
	for _, p := range got {
		for _, c := range p.Comments {
			scores[c.ID] = c.Scores
		}
	}
	out := make([]models.Post, len(sent))
	for i, p := range sent {
		p.Comments = append([]models.Comment(nil), p.Comments...)
		for j := range p.Comments {
			s, ok := scores[p.Comments[j].ID]
			if !ok {
				return nil, fmt.Errorf("comment %s missing from response", p.Comments[j].ID)
			}
			if err := validate(s); err != nil {
				return nil, fmt.Errorf("comment %s: %w", p.Comments[j].ID, err)
			}
			p.Comments[j].Scores = s
		}
		out[i] = p
	}
	return out, nil
}

var errNotScored = errors.New("sentiment_score missing")

func validate(s models.Scores) error {
	if s.SentimentScore == nil {
		return errNotScored
	}
	if v := *s.SentimentScore; math.IsNaN(v) || v < -1 || v > 1 {
		return fmt.Errorf("sentiment_score %v out of range [-1, 1]", v)
	}
	for name, v := range s.Emotions() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s %v out of range [0, 1]", name, v)
		}
	}
	for name, v := range map[string]*float64{
		"overall_positivity": s.OverallPositivity,
		"overall_negativity": s.OverallNegativity,
	} {
		if v != nil && (math.IsNaN(*v) || *v < 0) {
			return fmt.Errorf("%s %v is negative", name, *v)
		}
	}
	return nil
}
