package planner

import (
	"time"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/nutrition"
)

// Generator turns a biometric profile into a DietPlan.
type Generator struct {
	Composer *Composer
	Clock    func() time.Time
}

// NewGenerator creates a Generator. A nil clock uses time.Now.
func NewGenerator(composer *Composer, clock func() time.Time) *Generator {
	if clock == nil {
		clock = time.Now
	}
	return &Generator{Composer: composer, Clock: clock}
}

// Generate validates the profile, derives targets and composes the meals.
// Nothing is computed for an invalid profile. The returned plan has no ID
// or owner; the caller assigns them when it stores the plan.
func (g *Generator) Generate(p domain.BiometricProfile, rng Rand) (domain.DietPlan, error) {
	if err := nutrition.Validate(p); err != nil {
		return domain.DietPlan{}, err
	}

	targets := nutrition.ComputeTargets(p)
	comp, err := g.Composer.Compose(p.RestrictionSet(), rng)
	if err != nil {
		return domain.DietPlan{}, err
	}

	profile := p
	profile.Restrictions = append([]domain.Restriction(nil), p.Restrictions...)

	return domain.DietPlan{
		Revision:          1,
		Targets:           targets,
		Meals:             comp.Meals,
		IMC:               nutrition.BMI(p.WeightKg, p.HeightCm),
		Profile:           profile,
		RelaxedCategories: comp.Relaxed,
		CreatedAt:         g.Clock(),
	}, nil
}
