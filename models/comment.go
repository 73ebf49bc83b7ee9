package models

// Comment is a reply belonging to exactly one Post. The scoring collaborator fills
// in the embedded Scores; until then every score field is nil.
type Comment struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	PostID    string  `json:"post_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	Depth     int     `json:"depth"`
	Author    string  `json:"author"`
	Body      string  `json:"body"`
	Subreddit string  `json:"subreddit"`
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Over18    bool    `json:"over_18"`
	Timestamp float64 `json:"timestamp"`
	Permalink string  `json:"permalink"`
	Scores
}

// Scores holds the sentiment and emotion annotations for one comment.
type Scores struct {
	SentimentScore    *float64 `json:"sentiment_score,omitempty"`
	Anger             *float64 `json:"anger,omitempty"`
	Anticipation      *float64 `json:"anticipation,omitempty"`
	Disgust           *float64 `json:"disgust,omitempty"`
	Fear              *float64 `json:"fear,omitempty"`
	Joy               *float64 `json:"joy,omitempty"`
	Sadness           *float64 `json:"sadness,omitempty"`
	Surprise          *float64 `json:"surprise,omitempty"`
	Trust             *float64 `json:"trust,omitempty"`
	Positive          *float64 `json:"positive,omitempty"`
	Negative          *float64 `json:"negative,omitempty"`
	OverallPositivity *float64 `json:"overall_positivity,omitempty"`
	OverallNegativity *float64 `json:"overall_negativity,omitempty"`
}

// Scored reports whether the sentiment scalar has been filled in.
func (s Scores) Scored() bool {
	return s.SentimentScore != nil
}

// Emotions returns the NRC emotion intensities keyed by name, skipping unset ones.
func (s Scores) Emotions() map[string]float64 {
	out := make(map[string]float64, 10)
	for name, v := range map[string]*float64{
		"anger":        s.Anger,
		"anticipation": s.Anticipation,
		"disgust":      s.Disgust,
		"fear":         s.Fear,
		"joy":          s.Joy,
		"sadness":      s.Sadness,
		"surprise":     s.Surprise,
		"trust":        s.Trust,
		"positive":     s.Positive,
		"negative":     s.Negative,
	} {
		if v != nil {
			out[name] = *v
		}
	}
	return out
}
