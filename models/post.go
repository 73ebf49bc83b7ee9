package models

// Post is a subreddit submission normalized for scoring and storage, carrying its
// expanded comment thread. Timestamp stays in epoch seconds as delivered by Reddit.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Author    string    `json:"author"`
	Score     int       `json:"score"`
	Subreddit string    `json:"subreddit"`
	Over18    bool      `json:"over_18"`
	Timestamp float64   `json:"timestamp"`
	Permalink string    `json:"permalink"`
	Comments  []Comment `json:"comments"`
}
