// Package restriction narrows catalog candidates to those compatible with a
// set of dietary restrictions.
package restriction

import (
	"fmt"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/textmatch"
)

// FallbackPolicy decides what happens when the active restrictions exclude
// every candidate of a category.
type FallbackPolicy string

const (
	// FallbackUnfiltered returns the unfiltered candidates so a complete plan
	// is always produced.
	FallbackUnfiltered FallbackPolicy = "unfiltered"
	// FallbackStrict still returns the unfiltered candidates but reports
	// ErrRestrictionUnsatisfiable so the caller can refuse the result.
	FallbackStrict FallbackPolicy = "strict"
)

// ParsePolicy converts a config value into a FallbackPolicy. The empty
// string selects FallbackUnfiltered.
func ParsePolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(s) {
	case "", FallbackUnfiltered:
		return FallbackUnfiltered, nil
	case FallbackStrict:
		return FallbackStrict, nil
	}
	return "", fmt.Errorf("unknown restriction fallback policy %q", s)
}

var (
	glutenKeywords  = []string{"pão", "aveia", "macarrão", "tapioca"}
	lactoseKeywords = []string{"iogurte", "queijo", "whey"}
	meatKeywords    = []string{"frango", "salmão", "tilápia", "carne"}
	animalKeywords  = append(append([]string{}, meatKeywords...), "ovo", "iogurte", "queijo", "whey")
	nutKeywords     = []string{"castanha", "amêndoa", "nozes", "amendoim"}

	tofuScramble  = "Tofu mexido com cúrcuma"
	plantProteins = []string{"Lentilha cozida", "Grão de bico ensopado", "Tofu grelhado com shoyu"}
)

// rule is the exclusion and replacement table of one restriction.
type rule struct {
	keywords []string
	// onlyKind limits exclusion to categories of this kind; "" means all.
	onlyKind     domain.CategoryKind
	replacements map[domain.Category][]string
}

var rules = map[domain.Restriction]rule{
	domain.RestrictionGlutenFree: {
		keywords: glutenKeywords,
		onlyKind: domain.KindCarb,
		replacements: map[domain.Category][]string{
			domain.CategoryBreakfastCarb: {"Batata doce cozida (pequena porção)"},
			domain.CategoryMainCarb:      {"Quinoa cozida"},
		},
	},
	domain.RestrictionLactoseFree: {
		keywords: lactoseKeywords,
		replacements: map[domain.Category][]string{
			domain.CategoryBreakfastProtein: {tofuScramble},
		},
	},
	domain.RestrictionVegetarian: {
		keywords: meatKeywords,
		replacements: map[domain.Category][]string{
			domain.CategoryMainProtein: plantProteins,
		},
	},
	domain.RestrictionVegan: {
		keywords: animalKeywords,
		replacements: map[domain.Category][]string{
			domain.CategoryBreakfastProtein: {tofuScramble},
			domain.CategoryMainProtein:      plantProteins,
		},
	},
	domain.RestrictionNutAllergy: {
		keywords: nutKeywords,
	},
}

// Keywords returns the exclusion keywords of a restriction.
func Keywords(r domain.Restriction) []string {
	return append([]string(nil), rules[r].keywords...)
}

// Result is the outcome of one filter call.
type Result struct {
	Items []string
	// Relaxed is true when the restrictions emptied the candidates and the
	// unfiltered list was returned instead.
	Relaxed bool
}

// Filter applies restriction rules under a fallback policy.
type Filter struct {
	Policy FallbackPolicy
}

// NewFilter creates a Filter with the given policy.
func NewFilter(policy FallbackPolicy) *Filter {
	if policy == "" {
		policy = FallbackUnfiltered
	}
	return &Filter{Policy: policy}
}

// Apply returns the candidates compatible with rs. It never returns an
// empty slice for non-empty input.
func (f *Filter) Apply(items []string, rs domain.RestrictionSet, category domain.Category) []string {
	res, _ := f.ApplyDetailed(items, rs, category)
	return res.Items
}

// ApplyDetailed is Apply plus relaxation reporting. Under FallbackStrict a
// relaxed result is returned together with ErrRestrictionUnsatisfiable.
func (f *Filter) ApplyDetailed(items []string, rs domain.RestrictionSet, category domain.Category) (Result, error) {
	filtered := append([]string(nil), items...)

	for _, r := range domain.AllRestrictions {
		if !rs.Has(r) {
			continue
		}
		ru := rules[r]
		if ru.onlyKind != "" && category.Kind() != ru.onlyKind {
			continue
		}
		filtered = exclude(filtered, ru.keywords)
		for _, repl := range ru.replacements[category] {
			if !contains(filtered, repl) {
				filtered = append(filtered, repl)
			}
		}
	}

	if len(filtered) > 0 {
		return Result{Items: filtered}, nil
	}

	res := Result{Items: append([]string(nil), items...), Relaxed: true}
	if f.Policy == FallbackStrict {
		return res, domain.NewEngineError(
			domain.ErrRestrictionUnsatisfiable.Code,
			fmt.Sprintf("%s: %s", domain.ErrRestrictionUnsatisfiable.Message, category),
		)
	}
	return res, nil
}

func exclude(items, keywords []string) []string {
	out := items[:0]
	for _, item := range items {
		if !textmatch.ContainsAny(item, keywords) {
			out = append(out, item)
		}
	}
	return out
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
