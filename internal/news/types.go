// Package news turns market refreshes into short bulletins for the desk.
package news

// Bulletin is a single market headline.
type Bulletin struct {
	ID         string `json:"id"`
	Time       int64  `json:"time"`
	Instrument string `json:"instrument,omitempty"` // empty means market-wide
	Headline   string `json:"headline"`
	Body       string `json:"body,omitempty"`
	Severity   int    `json:"severity"` // 0=normal, positive=more severe/important
}
