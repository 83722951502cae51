package substitution

import "github.com/dietplan/engine/internal/domain"

// validTransitions lists the legal meal state changes. A substituted meal
// can be substituted again; nothing returns a meal to original.
var validTransitions = map[domain.MealStateKind]map[domain.MealStateKind]bool{
	domain.MealOriginal:    {domain.MealSubstituted: true},
	domain.MealSubstituted: {domain.MealSubstituted: true},
}

// IsValidTransition checks if a meal state change is legal.
func IsValidTransition(from, to domain.MealStateKind) bool {
	return validTransitions[from][to]
}

// swap moves a meal to Substituted{from: current description, to: chosen}.
// Repeated swaps overwrite From with the immediately prior description.
func swap(m domain.Meal, chosen string) (domain.Meal, bool) {
	from := m.State.Kind
	if from == "" {
		from = domain.MealOriginal
	}
	if !IsValidTransition(from, domain.MealSubstituted) {
		return m, false
	}
	m.State = domain.MealState{
		Kind: domain.MealSubstituted,
		From: m.Description,
		To:   chosen,
	}
	m.Description = chosen
	return m, true
}
