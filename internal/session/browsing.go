package session

import "time"

// browsingLimit bounds the in-session browsing history.
const browsingLimit = 100

// BrowsingEntry records one URL opened by a web-facing intent.
type BrowsingEntry struct {
	URL         string    `json:"url"`
	SearchQuery string    `json:"search_query,omitempty"`
	VisitedAt   time.Time `json:"visited_at"`
}

// AddBrowsingEntry records a visited URL, evicting the oldest beyond the
// bound.
func (c *Context) AddBrowsingEntry(url, searchQuery string) {
	if url == "" {
		return
	}
	c.browsing = append(c.browsing, BrowsingEntry{
		URL:         url,
		SearchQuery: searchQuery,
		VisitedAt:   time.Now(),
	})
	if len(c.browsing) > browsingLimit {
		c.browsing = c.browsing[len(c.browsing)-browsingLimit:]
	}
}

// BrowsingHistory returns a copy of the recorded entries, oldest first.
func (c *Context) BrowsingHistory() []BrowsingEntry {
	out := make([]BrowsingEntry, len(c.browsing))
	copy(out, c.browsing)
	return out
}
