package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/logging"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
	newsview "github.com/zappabad/agriflow/internal/news/view"
)

// NewsService manages bulletin publishing and viewing.
type NewsService struct {
	cfg    Config
	view   *newsview.NewsView
	logger *zap.Logger

	internalEvents chan newsview.NewsEvent
	externalEvents chan newsview.NewsEvent
	droppedEvents  atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewNewsService creates a new NewsService and starts its dispatcher.
func NewNewsService(cfg Config, logger *zap.Logger) *NewsService {
	cfg = cfg.withDefaults()

	s := &NewsService{
		cfg:            cfg,
		view:           newsview.NewNewsView(cfg.TapeSize),
		logger:         logging.OrNop(logger).Named("news"),
		internalEvents: make(chan newsview.NewsEvent, cfg.EventBuffer),
		externalEvents: make(chan newsview.NewsEvent, cfg.ExternalEventBuffer),
		closed:         make(chan struct{}),
	}

	s.wg.Add(1)
	go s.runEventDispatcher()

	return s
}

func (s *NewsService) runEventDispatcher() {
	defer s.wg.Done()
	defer close(s.externalEvents)

	for {
		select {
		case <-s.closed:
			return
		case ev := <-s.internalEvents:
			// Always update view (authoritative)
			s.view.Apply(ev)

			if s.cfg.DropExternalEvents {
				select {
				case s.externalEvents <- ev:
				default:
					s.droppedEvents.Add(1)
				}
			} else {
				select {
				case s.externalEvents <- ev:
				case <-s.closed:
					return
				}
			}
		}
	}
}

// Publish publishes a bulletin, assigning ID and Time if missing.
// It returns the bulletin as published.
func (s *NewsService) Publish(item news.Bulletin) news.Bulletin {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Time == 0 {
		item.Time = time.Now().UnixNano()
	}

	select {
	case s.internalEvents <- newsview.NewsEvent{Item: item}:
	case <-s.closed:
	}
	return item
}

// PublishRefresh publishes every bulletin the configured rules derive from ev.
func (s *NewsService) PublishRefresh(ev marketview.RefreshEvent) []news.Bulletin {
	derived := news.FromRefresh(ev, s.cfg.Rules)
	out := make([]news.Bulletin, 0, len(derived))
	for _, b := range derived {
		if b.Time == 0 {
			b.Time = ev.Time
		}
		out = append(out, s.Publish(b))
	}
	if len(out) > 0 {
		s.logger.Debug("bulletins published", zap.Int64("seq", ev.Seq), zap.Int("count", len(out)))
	}
	return out
}

// Latest returns the last n bulletins (from view).
func (s *NewsService) Latest(n int) []news.Bulletin {
	return s.view.Latest(n)
}

// Events returns the external events channel for subscribers.
func (s *NewsService) Events() <-chan newsview.NewsEvent {
	return s.externalEvents
}

// DroppedEvents returns the count of dropped external events.
func (s *NewsService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Close shuts down the news service.
func (s *NewsService) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
}
