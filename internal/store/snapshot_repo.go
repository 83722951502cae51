package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dietplan/engine/internal/domain"
)

// SnapshotRepo handles persistence for PlanSnapshot records.
type SnapshotRepo struct{}

// Checksum returns the hex SHA-256 of a snapshot body.
func Checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// NewSnapshot serializes plan into a checksummed snapshot of its current
// revision.
func NewSnapshot(plan domain.DietPlan, createdAt int64) (domain.PlanSnapshot, error) {
	b, err := json.Marshal(plan)
	if err != nil {
		return domain.PlanSnapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	body := string(b)
	return domain.PlanSnapshot{
		PlanID:       plan.ID,
		Revision:     plan.Revision,
		SnapshotJSON: body,
		Checksum:     Checksum(body),
		CreatedAt:    createdAt,
	}, nil
}

// SaveTx inserts a plan snapshot within an existing transaction.
func (r *SnapshotRepo) SaveTx(ctx context.Context, tx *sql.Tx, snap domain.PlanSnapshot) error {
	const q = `INSERT INTO plan_snapshots (plan_id, revision, snapshot_json, checksum, created_at)
VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		snap.PlanID,
		snap.Revision,
		snap.SnapshotJSON,
		snap.Checksum,
		snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetByRevision returns the snapshot of a plan at one revision and verifies
// its checksum. Returns ErrPlanNotFound if no snapshot exists.
func (r *SnapshotRepo) GetByRevision(ctx context.Context, q Querier, planID string, revision int) (*domain.PlanSnapshot, error) {
	const query = `SELECT id, plan_id, revision, snapshot_json, checksum, created_at
FROM plan_snapshots
WHERE plan_id = ? AND revision = ?`

	row := q.QueryRowContext(ctx, query, planID, revision)

	var s domain.PlanSnapshot
	err := row.Scan(&s.ID, &s.PlanID, &s.Revision, &s.SnapshotJSON, &s.Checksum, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if Checksum(s.SnapshotJSON) != s.Checksum {
		return nil, domain.NewEngineError(
			domain.ErrSnapshotCorrupt.Code,
			fmt.Sprintf("%s: plan %s revision %d", domain.ErrSnapshotCorrupt.Message, planID, revision),
		)
	}
	return &s, nil
}

// Plan decodes the snapshot body.
func (r *SnapshotRepo) Plan(s domain.PlanSnapshot) (domain.DietPlan, error) {
	var p domain.DietPlan
	if err := json.Unmarshal([]byte(s.SnapshotJSON), &p); err != nil {
		return domain.DietPlan{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return p, nil
}
