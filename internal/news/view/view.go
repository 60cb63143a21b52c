package view

import (
	"sync"

	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/internal/ring"
)

// DefaultCapacity is used when NewNewsView is given a non-positive capacity.
const DefaultCapacity = 100

// NewsView keeps the most recent bulletins.
type NewsView struct {
	mu    sync.RWMutex
	items *ring.Ring[news.Bulletin]
}

// NewNewsView creates a NewsView holding at most capacity bulletins.
func NewNewsView(capacity int) *NewsView {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NewsView{items: ring.New[news.Bulletin](capacity)}
}

// Apply records the bulletin carried by ev.
func (v *NewsView) Apply(ev NewsEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items.Push(ev.Item)
}

// Latest returns the last n bulletins, oldest first.
func (v *NewsView) Latest(n int) []news.Bulletin {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items.Last(n)
}

// Count returns the number of bulletins held.
func (v *NewsView) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items.Len()
}
