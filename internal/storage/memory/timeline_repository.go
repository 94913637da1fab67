package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type timelineRepository struct {
	mu     sync.RWMutex
	bySale map[string][]domain.TimelineEvent
}

// NewTimelineRepository хранит историю продаж в памяти; события одной продажи
// упорядочены по Occurred, при равенстве — по порядку добавления.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepository{bySale: make(map[string][]domain.TimelineEvent)}
}

func (r *timelineRepository) Append(_ context.Context, event domain.TimelineEvent) error {
	if strings.TrimSpace(event.SaleID) == "" {
		return fmt.Errorf("timeline event without sale id: %w", domain.ErrInvalidArgument)
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.bySale[event.SaleID]
	at := sort.Search(len(events), func(i int) bool { return events[i].Occurred.After(event.Occurred) })
	events = append(events, domain.TimelineEvent{})
	copy(events[at+1:], events[at:])
	events[at] = event
	r.bySale[event.SaleID] = events
	return nil
}

func (r *timelineRepository) List(_ context.Context, saleID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.TimelineEvent{}, r.bySale[saleID]...), nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
