// Package nutrition derives daily energy and macronutrient targets from a
// biometric profile.
package nutrition

import (
	"fmt"
	"math"

	"github.com/dietplan/engine/internal/domain"
)

// activityFactors maps activity levels to their expenditure multiplier.
var activityFactors = map[domain.ActivityLevel]float64{
	domain.ActivitySedentary:  1.2,
	domain.ActivityLight:      1.375,
	domain.ActivityModerate:   1.55,
	domain.ActivityActive:     1.725,
	domain.ActivityVeryActive: 1.9,
}

// objectiveAdjustments is the fixed kcal offset per objective.
var objectiveAdjustments = map[domain.Objective]float64{
	domain.ObjectiveLoseWeight:     -500,
	domain.ObjectiveMaintainWeight: 0,
	domain.ObjectiveGainMass:       500,
}

// Macro split of daily calories. Fixed for every profile.
const (
	proteinShare = 0.30
	carbShare    = 0.40
	fatShare     = 0.30

	kcalPerGramProtein = 4
	kcalPerGramCarb    = 4
	kcalPerGramFat     = 9
)

// Upper bounds for a plausible human profile.
const (
	maxAge      = 150
	maxWeightKg = 700
	maxHeightCm = 300
)

// Basal returns the resting energy estimate in kcal (Mifflin-St Jeor).
func Basal(p domain.BiometricProfile) float64 {
	b := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == domain.SexMale {
		return b + 5
	}
	return b - 161
}

// ComputeTargets derives daily targets from a profile. Rounding happens
// only on the final values.
func ComputeTargets(p domain.BiometricProfile) domain.DailyTargets {
	cal := Basal(p)*activityFactors[p.ActivityLevel] + objectiveAdjustments[p.Objective]
	return domain.DailyTargets{
		Calories:     int(math.Round(cal)),
		ProteinGrams: int(math.Round(cal * proteinShare / kcalPerGramProtein)),
		CarbGrams:    int(math.Round(cal * carbShare / kcalPerGramCarb)),
		FatGrams:     int(math.Round(cal * fatShare / kcalPerGramFat)),
	}
}

// BMI returns weight/height² rounded to two decimals.
func BMI(weightKg, heightCm float64) float64 {
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*100) / 100
}

// MacroCalories returns the energy implied by the macro grams of t.
func MacroCalories(t domain.DailyTargets) int {
	return t.ProteinGrams*kcalPerGramProtein + t.CarbGrams*kcalPerGramCarb + t.FatGrams*kcalPerGramFat
}

// Validate rejects profiles the calculator cannot use. Every problem is
// reported in one ErrValidation.
func Validate(p domain.BiometricProfile) error {
	var problems []string

	if p.Sex != domain.SexMale && p.Sex != domain.SexFemale {
		problems = append(problems, fmt.Sprintf("sex %q must be male or female", p.Sex))
	}
	switch {
	case p.Age <= 0:
		problems = append(problems, "age must be positive")
	case p.Age > maxAge:
		problems = append(problems, fmt.Sprintf("age must be at most %d", maxAge))
	}
	switch {
	case !(p.WeightKg > 0):
		problems = append(problems, "weight_kg must be positive")
	case p.WeightKg > maxWeightKg:
		problems = append(problems, fmt.Sprintf("weight_kg must be at most %d", maxWeightKg))
	}
	switch {
	case !(p.HeightCm > 0):
		problems = append(problems, "height_cm must be positive")
	case p.HeightCm > maxHeightCm:
		problems = append(problems, fmt.Sprintf("height_cm must be at most %d", maxHeightCm))
	}
	if _, ok := activityFactors[p.ActivityLevel]; !ok {
		problems = append(problems, fmt.Sprintf("unknown activity_level %q", p.ActivityLevel))
	}
	if _, ok := objectiveAdjustments[p.Objective]; !ok {
		problems = append(problems, fmt.Sprintf("unknown objective %q", p.Objective))
	}
	for _, r := range p.Restrictions {
		if !r.Valid() {
			problems = append(problems, fmt.Sprintf("unknown restriction %q", r))
		}
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrValidation.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrValidation.Message, problems),
		}
	}
	return nil
}
