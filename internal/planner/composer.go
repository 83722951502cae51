// Package planner composes daily meal plans from the food catalog.
package planner

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/dietplan/engine/internal/catalog"
	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/restriction"
	"github.com/dietplan/engine/internal/textmatch"
)

// Rand is the randomness source for food selection. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// drawOrder is the order slots consume random draws. It differs from the
// presentation order so that a given seed keeps producing the same plan.
var drawOrder = []string{
	domain.SlotBreakfast,
	domain.SlotLunch,
	domain.SlotDinner,
	domain.SlotMorningSnack,
	domain.SlotAfternoonSnack,
}

const (
	glutenFreeNote  = "opção sem glúten"
	lactoseFreeNote = "opção sem lactose"
)

// Composition is the composer output.
type Composition struct {
	Meals []domain.Meal
	// Relaxed lists categories where restrictions were dropped to keep the
	// plan complete, in first-seen order.
	Relaxed []domain.Category
}

// Filter narrows catalog candidates. *restriction.Filter implements it.
type Filter interface {
	Apply(items []string, rs domain.RestrictionSet, category domain.Category) []string
	ApplyDetailed(items []string, rs domain.RestrictionSet, category domain.Category) (restriction.Result, error)
}

// Composer selects one food per category for every meal slot.
type Composer struct {
	Catalog *catalog.Catalog
	Filter  Filter
}

// NewComposer creates a Composer.
func NewComposer(cat *catalog.Catalog, filter Filter) *Composer {
	return &Composer{Catalog: cat, Filter: filter}
}

// Compose builds the five meals of a plan. The result is deterministic for a
// given rng state. It fails only under restriction.FallbackStrict.
func (c *Composer) Compose(rs domain.RestrictionSet, rng Rand) (Composition, error) {
	var comp Composition
	relaxed := make(map[domain.Category]bool)

	picks := make(map[string][]string, len(c.Catalog.Slots))
	for _, name := range drawOrder {
		slot, ok := c.slot(name)
		if !ok {
			return comp, fmt.Errorf("catalog has no slot %q", name)
		}
		parts := make([]string, len(slot.Categories))
		for i, cat := range slot.Categories {
			res, err := c.Filter.ApplyDetailed(c.Catalog.Items(cat), rs, cat)
			if err != nil {
				return comp, err
			}
			if res.Relaxed && !relaxed[cat] {
				relaxed[cat] = true
				comp.Relaxed = append(comp.Relaxed, cat)
			}
			parts[i] = pick(res.Items, rng)
		}
		picks[name] = parts
	}

	breakfastNote := c.correctBreakfast(picks, rs, rng)

	for _, slot := range c.Catalog.Slots {
		desc := render(slot.Template, picks[slot.Name])
		if slot.Name == domain.SlotBreakfast && breakfastNote != "" {
			desc = strings.TrimSuffix(desc, ".") + " (" + breakfastNote + ")."
		}
		comp.Meals = append(comp.Meals, domain.Meal{
			Name:        slot.Name,
			Description: desc,
			State:       domain.MealState{Kind: domain.MealOriginal},
		})
	}
	return comp, nil
}

// correctBreakfast redraws a breakfast carb that still carries gluten, then a
// breakfast protein that still carries lactose, each once from a pool
// filtered by that restriction alone. The lactose pass rebuilds the meal from
// the first-pick carb, so a double conflict can still surface an excluded
// item. Returns the note to append, or "".
func (c *Composer) correctBreakfast(picks map[string][]string, rs domain.RestrictionSet, rng Rand) string {
	slot, _ := c.slot(domain.SlotBreakfast)
	first := append([]string(nil), picks[domain.SlotBreakfast]...)
	note := ""

	if rs.Has(domain.RestrictionGlutenFree) {
		if i, cat, ok := indexOfKind(slot, domain.KindCarb); ok &&
			textmatch.ContainsAny(first[i], restriction.Keywords(domain.RestrictionGlutenFree)) {
			parts := append([]string(nil), first...)
			pool := c.Filter.Apply(c.Catalog.Items(cat), domain.NewRestrictionSet(domain.RestrictionGlutenFree), cat)
			parts[i] = pick(pool, rng)
			picks[domain.SlotBreakfast] = parts
			note = glutenFreeNote
		}
	}
	if rs.Has(domain.RestrictionLactoseFree) {
		if i, cat, ok := indexOfKind(slot, domain.KindProtein); ok &&
			textmatch.ContainsAny(first[i], restriction.Keywords(domain.RestrictionLactoseFree)) {
			parts := append([]string(nil), first...)
			pool := c.Filter.Apply(c.Catalog.Items(cat), domain.NewRestrictionSet(domain.RestrictionLactoseFree), cat)
			parts[i] = pick(pool, rng)
			picks[domain.SlotBreakfast] = parts
			note = lactoseFreeNote
		}
	}
	return note
}

func (c *Composer) slot(name string) (domain.MealSlotSpec, bool) {
	for _, s := range c.Catalog.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return domain.MealSlotSpec{}, false
}

func indexOfKind(slot domain.MealSlotSpec, kind domain.CategoryKind) (int, domain.Category, bool) {
	for i, cat := range slot.Categories {
		if cat.Kind() == kind {
			return i, cat, true
		}
	}
	return 0, "", false
}

func pick(items []string, rng Rand) string {
	return items[rng.IntN(len(items))]
}

func render(template string, parts []string) string {
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return fmt.Sprintf(template, args...)
}
