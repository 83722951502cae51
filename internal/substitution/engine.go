package substitution

import (
	"fmt"
	"strings"
	"time"

	"github.com/dietplan/engine/internal/domain"
)

// Substituter offers alternatives for a plan's meals and applies swaps.
// It never mutates the plans it is given.
type Substituter struct {
	Resolver *Resolver
	Clock    func() time.Time
}

// NewSubstituter creates a Substituter. A nil clock uses time.Now.
func NewSubstituter(resolver *Resolver, clock func() time.Time) *Substituter {
	if clock == nil {
		clock = time.Now
	}
	return &Substituter{Resolver: resolver, Clock: clock}
}

// Alternatives opens a substitution request for one meal and resolves its
// candidates.
func (s *Substituter) Alternatives(plan domain.DietPlan, mealIndex int) (domain.SubstitutionRequest, domain.Candidates, error) {
	if err := checkIndex(plan, mealIndex); err != nil {
		return domain.SubstitutionRequest{}, domain.Candidates{}, err
	}
	meal := plan.Meals[mealIndex]
	req := domain.SubstitutionRequest{
		MealIndex: mealIndex,
		MealName:  meal.Name,
		Original:  meal.Description,
	}
	return req, s.Resolver.Resolve(meal.Description), nil
}

// Substitute returns a copy of plan with meal mealIndex replaced by chosen,
// its state moved to Substituted, LastModifiedAt refreshed and the revision
// incremented.
func (s *Substituter) Substitute(plan domain.DietPlan, mealIndex int, chosen string) (domain.DietPlan, error) {
	if err := checkIndex(plan, mealIndex); err != nil {
		return domain.DietPlan{}, err
	}
	if strings.TrimSpace(chosen) == "" {
		return domain.DietPlan{}, domain.ErrEmptyChoice
	}

	next := plan.Clone()
	meal, ok := swap(next.Meals[mealIndex], chosen)
	if !ok {
		return domain.DietPlan{}, domain.NewEngineError(
			domain.ErrMealState.Code,
			fmt.Sprintf("%s: %q", domain.ErrMealState.Message, next.Meals[mealIndex].State.Kind),
		)
	}
	next.Meals[mealIndex] = meal

	now := s.Clock()
	next.LastModifiedAt = &now
	next.Revision = plan.Revision + 1
	return next, nil
}

func checkIndex(plan domain.DietPlan, mealIndex int) error {
	if mealIndex < 0 || mealIndex >= len(plan.Meals) {
		return domain.NewEngineError(
			domain.ErrMealIndex.Code,
			fmt.Sprintf("%s: %d not in [0, %d)", domain.ErrMealIndex.Message, mealIndex, len(plan.Meals)),
		)
	}
	return nil
}
