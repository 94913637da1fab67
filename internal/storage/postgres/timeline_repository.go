package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const (
	appendTimelineSQL = `INSERT INTO timeline_events (sale_id, type, reason, occurred) VALUES ($1, $2, $3, $4)`

	// id задаёт порядок событий с одинаковым occurred.
	listTimelineSQL = `
SELECT sale_id, type, reason, occurred
FROM timeline_events
WHERE sale_id = $1
ORDER BY occurred, id`
)

// timelineRepository пишет в timeline_events без внешнего ключа на sales:
// история удалённой компенсацией продажи остаётся доступной.
type timelineRepository struct {
	db *sql.DB
}

func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	if strings.TrimSpace(event.SaleID) == "" {
		return fmt.Errorf("timeline event without sale id: %w", domain.ErrInvalidArgument)
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, appendTimelineSQL, event.SaleID, event.Type, event.Reason, event.Occurred.UTC()); err != nil {
		return fmt.Errorf("append %s to timeline of %s: %w", event.Type, event.SaleID, err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, saleID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, listTimelineSQL, saleID)
	if err != nil {
		return nil, fmt.Errorf("list timeline of %s: %w", saleID, err)
	}
	defer rows.Close()

	events := []domain.TimelineEvent{}
	for rows.Next() {
		var ev domain.TimelineEvent
		if err := rows.Scan(&ev.SaleID, &ev.Type, &ev.Reason, &ev.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		ev.Occurred = ev.Occurred.UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
