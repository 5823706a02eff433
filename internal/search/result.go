package search

import "time"

// Result is a single search hit. Title, Description and URL are all non-empty
// once a Result has passed through the Adapter.
type Result struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	Score       float64   `json:"score,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

type Response struct {
	Query    string        `json:"query"`
	Results  []Result      `json:"results"`
	Engine   string        `json:"engine"`
	Duration time.Duration `json:"duration"`
}
