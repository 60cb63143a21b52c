package view

import "github.com/zappabad/agriflow/internal/news"

// NewsEvent is emitted for every published bulletin.
type NewsEvent struct {
	Item news.Bulletin
}
