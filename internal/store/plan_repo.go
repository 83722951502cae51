package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dietplan/engine/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PlanRepo handles persistence for DietPlan records.
type PlanRepo struct{}

type planRow struct {
	profile string
	targets string
	meals   string
	relaxed string
}

func encodePlan(p domain.DietPlan) (planRow, error) {
	var r planRow
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&r.profile, p.Profile},
		{&r.targets, p.Targets},
		{&r.meals, p.Meals},
		{&r.relaxed, p.RelaxedCategories},
	} {
		b, err := json.Marshal(f.v)
		if err != nil {
			return planRow{}, fmt.Errorf("encode plan %s: %w", p.ID, err)
		}
		*f.dst = string(b)
	}
	return r, nil
}

func unixNano(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// CreateTx inserts a new plan within an existing transaction.
func (r *PlanRepo) CreateTx(ctx context.Context, tx *sql.Tx, plan domain.DietPlan) error {
	row, err := encodePlan(plan)
	if err != nil {
		return err
	}

	const q = `INSERT INTO plans (plan_id, owner, revision, profile_json, targets_json, imc, meals_json, relaxed_json, created_at, last_modified_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, q,
		plan.ID,
		plan.Owner,
		plan.Revision,
		row.profile,
		row.targets,
		plan.IMC,
		row.meals,
		row.relaxed,
		plan.CreatedAt.UnixNano(),
		unixNano(plan.LastModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// UpdateTx stores plan within a transaction using optimistic locking.
// The update only succeeds if the stored revision equals expectedRevision.
func (r *PlanRepo) UpdateTx(ctx context.Context, tx *sql.Tx, plan domain.DietPlan, expectedRevision int) error {
	row, err := encodePlan(plan)
	if err != nil {
		return err
	}

	const q = `UPDATE plans SET
		revision = ?,
		meals_json = ?,
		relaxed_json = ?,
		last_modified_at = ?
	WHERE plan_id = ? AND revision = ?`

	res, err := tx.ExecContext(ctx, q,
		plan.Revision,
		row.meals,
		row.relaxed,
		unixNano(plan.LastModifiedAt),
		plan.ID,
		expectedRevision,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrRevisionConflict
	}
	return nil
}

const planColumns = `plan_id, owner, revision, profile_json, targets_json, imc, meals_json, relaxed_json, created_at, last_modified_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (domain.DietPlan, error) {
	var (
		p                 domain.DietPlan
		row               planRow
		created, modified int64
	)
	if err := s.Scan(&p.ID, &p.Owner, &p.Revision, &row.profile, &row.targets, &p.IMC,
		&row.meals, &row.relaxed, &created, &modified); err != nil {
		return domain.DietPlan{}, err
	}
	if err := json.Unmarshal([]byte(row.profile), &p.Profile); err != nil {
		return domain.DietPlan{}, fmt.Errorf("decode profile of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(row.targets), &p.Targets); err != nil {
		return domain.DietPlan{}, fmt.Errorf("decode targets of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(row.meals), &p.Meals); err != nil {
		return domain.DietPlan{}, fmt.Errorf("decode meals of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(row.relaxed), &p.RelaxedCategories); err != nil {
		return domain.DietPlan{}, fmt.Errorf("decode relaxed categories of plan %s: %w", p.ID, err)
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	if modified != 0 {
		t := time.Unix(0, modified).UTC()
		p.LastModifiedAt = &t
	}
	return p, nil
}

// GetByID retrieves a plan by its ID.
func (r *PlanRepo) GetByID(ctx context.Context, q Querier, planID string) (*domain.DietPlan, error) {
	row := q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE plan_id = ?`, planID)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

// ListByOwner returns an owner's plans, newest first.
func (r *PlanRepo) ListByOwner(ctx context.Context, q Querier, owner string) ([]domain.DietPlan, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE owner = ? ORDER BY created_at DESC, rowid DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.DietPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// LatestByOwner returns the owner's most recently created plan.
func (r *PlanRepo) LatestByOwner(ctx context.Context, q Querier, owner string) (*domain.DietPlan, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE owner = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, owner)

	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get latest plan: %w", err)
	}
	return &p, nil
}
