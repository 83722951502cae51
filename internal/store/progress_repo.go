package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dietplan/engine/internal/domain"
)

// ProgressRepo handles persistence for ProgressEntry records.
type ProgressRepo struct{}

// Record inserts a progress entry.
func (r *ProgressRepo) Record(ctx context.Context, db *sql.DB, e domain.ProgressEntry) error {
	const q = `INSERT INTO progress_entries (entry_id, owner, weight_kg, height_cm, imc, created_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, q,
		e.ID,
		e.Owner,
		e.WeightKg,
		e.HeightCm,
		e.IMC,
		e.Date.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

// ListByOwner returns an owner's progress entries, newest first.
func (r *ProgressRepo) ListByOwner(ctx context.Context, q Querier, owner string) ([]domain.ProgressEntry, error) {
	const query = `SELECT entry_id, owner, weight_kg, height_cm, imc, created_at
FROM progress_entries
WHERE owner = ?
ORDER BY created_at DESC, entry_id DESC`

	rows, err := q.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProgressEntry
	for rows.Next() {
		var (
			e       domain.ProgressEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Owner, &e.WeightKg, &e.HeightCm, &e.IMC, &created); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		e.Date = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
