package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dietplan/engine/internal/domain"
)

// EventRepo handles persistence for PlanEvent records.
type EventRepo struct{}

// AppendTx inserts a plan event within an existing transaction.
func (r *EventRepo) AppendTx(ctx context.Context, tx *sql.Tx, event domain.PlanEvent) error {
	const q = `INSERT INTO plan_events (plan_id, seq_no, event_type, payload_json, created_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		event.PlanID,
		event.SeqNo,
		event.EventType,
		event.PayloadJSON,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListByPlan returns events for a plan with sequence numbers greater than
// sinceSeq, ordered by sequence number ascending.
func (r *EventRepo) ListByPlan(ctx context.Context, q Querier, planID string, sinceSeq int64) ([]domain.PlanEvent, error) {
	const query = `SELECT id, plan_id, seq_no, event_type, payload_json, created_at
FROM plan_events
WHERE plan_id = ? AND seq_no > ?
ORDER BY seq_no ASC`

	rows, err := q.QueryContext(ctx, query, planID, sinceSeq)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.PlanEvent
	for rows.Next() {
		var e domain.PlanEvent
		if err := rows.Scan(&e.ID, &e.PlanID, &e.SeqNo, &e.EventType, &e.PayloadJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
