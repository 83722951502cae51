// Package service coordinates plan generation, substitution and progress
// tracking with their persistence.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/guard"
	"github.com/dietplan/engine/internal/nutrition"
	"github.com/dietplan/engine/internal/observability"
	"github.com/dietplan/engine/internal/planner"
	"github.com/dietplan/engine/internal/store"
	"github.com/dietplan/engine/internal/substitution"
)

// PlanService stores generated plans and applies substitutions to them.
// Every write happens in one transaction together with its event and
// snapshot.
type PlanService struct {
	DB           *sql.DB
	PlanRepo     *store.PlanRepo
	EventRepo    *store.EventRepo
	SnapshotRepo *store.SnapshotRepo
	ProgressRepo *store.ProgressRepo
	Generator    *planner.Generator
	Substituter  *substitution.Substituter
	Rand         planner.RandSource
	Guard        *guard.Guard
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// NewPlanService creates a PlanService with its repositories. A nil rnd
// draws randomly seeded generators; metrics and logger may be nil. Writes
// are not rate limited until Guard is set.
func NewPlanService(db *sql.DB, gen *planner.Generator, sub *substitution.Substituter, rnd planner.RandSource, metrics *observability.Metrics, logger *zap.Logger) *PlanService {
	if rnd == nil {
		rnd = planner.NewRandSource(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{
		DB:           db,
		PlanRepo:     &store.PlanRepo{},
		EventRepo:    &store.EventRepo{},
		SnapshotRepo: &store.SnapshotRepo{},
		ProgressRepo: &store.ProgressRepo{},
		Generator:    gen,
		Substituter:  sub,
		Rand:         rnd,
		Metrics:      metrics,
		Logger:       logger,
		Clock:        time.Now,
	}
}

type generatedPayload struct {
	Revision int               `json:"revision"`
	Calories int               `json:"calories"`
	IMC      float64           `json:"imc"`
	Relaxed  []domain.Category `json:"relaxed_categories,omitempty"`
}

type substitutedPayload struct {
	Revision  int    `json:"revision"`
	MealIndex int    `json:"meal_index"`
	MealName  string `json:"meal_name"`
	From      string `json:"from"`
	To        string `json:"to"`
}

func normalizeOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", domain.ErrOwnerRequired
	}
	return owner, nil
}

// CreatePlan generates a plan for profile and stores it under owner.
func (s *PlanService) CreatePlan(ctx context.Context, owner string, profile domain.BiometricProfile) (*domain.DietPlan, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	if err := s.Guard.CheckRateLimit(owner); err != nil {
		return nil, err
	}

	plan, err := s.Generator.Generate(profile, s.Rand())
	if err != nil {
		return nil, err
	}
	plan.ID = uuid.NewString()
	plan.Owner = owner

	payload, err := json.Marshal(generatedPayload{
		Revision: plan.Revision,
		Calories: plan.Targets.Calories,
		IMC:      plan.IMC,
		Relaxed:  plan.RelaxedCategories,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.PlanRepo.CreateTx(ctx, tx, plan); err != nil {
		return nil, err
	}
	if err := s.record(ctx, tx, plan, domain.EventPlanGenerated, payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit plan: %w", err)
	}

	s.Metrics.PlanGenerated(plan.RelaxedCategories)
	s.logger(ctx).Info("plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("owner", plan.Owner),
		zap.Int("calories", plan.Targets.Calories),
		zap.Int("relaxed_categories", len(plan.RelaxedCategories)),
	)
	return &plan, nil
}

// record appends the event for plan's current revision and snapshots it.
func (s *PlanService) record(ctx context.Context, tx *sql.Tx, plan domain.DietPlan, eventType string, payload []byte) error {
	now := s.Clock().Unix()
	event := domain.PlanEvent{
		PlanID:      plan.ID,
		SeqNo:       int64(plan.Revision),
		EventType:   eventType,
		PayloadJSON: string(payload),
		CreatedAt:   now,
	}
	if err := s.EventRepo.AppendTx(ctx, tx, event); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}

	snap, err := store.NewSnapshot(plan, now)
	if err != nil {
		return err
	}
	if err := s.SnapshotRepo.SaveTx(ctx, tx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// GetPlan returns a stored plan.
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*domain.DietPlan, error) {
	return s.PlanRepo.GetByID(ctx, s.DB, planID)
}

// ListPlans returns an owner's plans, newest first.
func (s *PlanService) ListPlans(ctx context.Context, owner string) ([]domain.DietPlan, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.PlanRepo.ListByOwner(ctx, s.DB, owner)
}

// LatestPlan returns the owner's most recent plan.
func (s *PlanService) LatestPlan(ctx context.Context, owner string) (*domain.DietPlan, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.PlanRepo.LatestByOwner(ctx, s.DB, owner)
}

// PlanAt returns a plan as it was at revision, read from its snapshot.
func (s *PlanService) PlanAt(ctx context.Context, planID string, revision int) (*domain.DietPlan, error) {
	snap, err := s.SnapshotRepo.GetByRevision(ctx, s.DB, planID, revision)
	if err != nil {
		return nil, err
	}
	plan, err := s.SnapshotRepo.Plan(*snap)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// History returns a plan's events in order.
func (s *PlanService) History(ctx context.Context, planID string) ([]domain.PlanEvent, error) {
	if _, err := s.PlanRepo.GetByID(ctx, s.DB, planID); err != nil {
		return nil, err
	}
	return s.EventsSince(ctx, planID, 0)
}

// EventsSince returns a plan's events with sequence numbers above sinceSeq.
func (s *PlanService) EventsSince(ctx context.Context, planID string, sinceSeq int64) ([]domain.PlanEvent, error) {
	return s.EventRepo.ListByPlan(ctx, s.DB, planID, sinceSeq)
}

// Resolve returns the alternatives for a free-text food description.
func (s *PlanService) Resolve(description string) domain.Candidates {
	c := s.Substituter.Resolver.Resolve(description)
	s.Metrics.Resolved(c.Tier)
	return c
}

// Alternatives opens a substitution request for one meal of a stored plan.
func (s *PlanService) Alternatives(ctx context.Context, planID string, mealIndex int) (domain.SubstitutionRequest, domain.Candidates, error) {
	plan, err := s.PlanRepo.GetByID(ctx, s.DB, planID)
	if err != nil {
		return domain.SubstitutionRequest{}, domain.Candidates{}, err
	}
	req, c, err := s.Substituter.Alternatives(*plan, mealIndex)
	if err != nil {
		return domain.SubstitutionRequest{}, domain.Candidates{}, err
	}
	s.Metrics.Resolved(c.Tier)
	return req, c, nil
}

// Substitute replaces one meal of a stored plan with chosen. A non-zero
// expectedRevision must match the stored revision.
func (s *PlanService) Substitute(ctx context.Context, planID string, mealIndex int, chosen string, expectedRevision int) (*domain.DietPlan, error) {
	plan, err := s.PlanRepo.GetByID(ctx, s.DB, planID)
	if err != nil {
		return nil, err
	}
	if expectedRevision != 0 && expectedRevision != plan.Revision {
		return nil, domain.NewEngineError(
			domain.ErrRevisionConflict.Code,
			fmt.Sprintf("%s: expected revision %d, stored %d", domain.ErrRevisionConflict.Message, expectedRevision, plan.Revision),
		)
	}
	if err := s.Guard.CheckRateLimit(plan.Owner); err != nil {
		return nil, err
	}

	next, err := s.Substituter.Substitute(*plan, mealIndex, chosen)
	if err != nil {
		return nil, err
	}
	meal := next.Meals[mealIndex]

	payload, err := json.Marshal(substitutedPayload{
		Revision:  next.Revision,
		MealIndex: mealIndex,
		MealName:  meal.Name,
		From:      meal.State.From,
		To:        meal.State.To,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.PlanRepo.UpdateTx(ctx, tx, next, plan.Revision); err != nil {
		return nil, err
	}
	if err := s.record(ctx, tx, next, domain.EventMealSubstituted, payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit substitution: %w", err)
	}

	s.Metrics.Substituted()
	s.logger(ctx).Info("meal substituted",
		zap.String("plan_id", next.ID),
		zap.Int("revision", next.Revision),
		zap.String("meal", meal.Name),
	)
	return &next, nil
}

// RecordProgress stores a weight measurement. A non-positive heightCm
// reuses the owner's last known height: the latest plan's profile, then the
// latest progress entry.
func (s *PlanService) RecordProgress(ctx context.Context, owner string, weightKg, heightCm float64) (*domain.ProgressEntry, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	if !(weightKg > 0) || math.IsInf(weightKg, 0) {
		return nil, domain.NewEngineError(domain.ErrValidation.Code, domain.ErrValidation.Message+": weight_kg must be positive")
	}
	if math.IsNaN(heightCm) || math.IsInf(heightCm, 0) {
		return nil, domain.NewEngineError(domain.ErrValidation.Code, domain.ErrValidation.Message+": height_cm must be finite")
	}
	if err := s.Guard.CheckRateLimit(owner); err != nil {
		return nil, err
	}
	if heightCm <= 0 {
		heightCm, err = s.lastHeight(ctx, owner)
		if err != nil {
			return nil, err
		}
	}

	entry := domain.ProgressEntry{
		ID:       ulid.Make().String(),
		Owner:    owner,
		Date:     s.Clock().UTC(),
		WeightKg: weightKg,
		HeightCm: heightCm,
		IMC:      nutrition.BMI(weightKg, heightCm),
	}
	if err := s.ProgressRepo.Record(ctx, s.DB, entry); err != nil {
		return nil, err
	}
	s.logger(ctx).Debug("progress recorded", zap.String("owner", owner), zap.Float64("imc", entry.IMC))
	return &entry, nil
}

func (s *PlanService) lastHeight(ctx context.Context, owner string) (float64, error) {
	plan, err := s.PlanRepo.LatestByOwner(ctx, s.DB, owner)
	switch {
	case err == nil:
		return plan.Profile.HeightCm, nil
	case !errors.Is(err, domain.ErrPlanNotFound):
		return 0, err
	}

	entries, err := s.ProgressRepo.ListByOwner(ctx, s.DB, owner)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, domain.ErrNoHeight
	}
	return entries[0].HeightCm, nil
}

// ListProgress returns an owner's progress entries, newest first.
func (s *PlanService) ListProgress(ctx context.Context, owner string) ([]domain.ProgressEntry, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.ProgressRepo.ListByOwner(ctx, s.DB, owner)
}

// logger prefers the request-scoped logger over the service default.
func (s *PlanService) logger(ctx context.Context) *zap.Logger {
	if l := observability.FromContext(ctx); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.Logger
}
