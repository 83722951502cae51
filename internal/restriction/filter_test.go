package restriction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/catalog"
	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/textmatch"
)

var allCategories = []domain.Category{
	domain.CategoryBreakfastProtein,
	domain.CategoryBreakfastCarb,
	domain.CategoryBreakfastFat,
	domain.CategoryMainProtein,
	domain.CategoryMainCarb,
	domain.CategoryMainVegetable,
	domain.CategorySnackProtein,
	domain.CategorySnackFruit,
	domain.CategorySnackFat,
}

// restrictionSubsets enumerates all 32 subsets of the known restrictions.
func restrictionSubsets() []domain.RestrictionSet {
	n := len(domain.AllRestrictions)
	sets := make([]domain.RestrictionSet, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		set := domain.RestrictionSet{}
		for i, r := range domain.AllRestrictions {
			if mask&(1<<i) != 0 {
				set[r] = true
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func TestApply_NeverEmpty(t *testing.T) {
	c := catalog.Default()
	f := NewFilter(FallbackUnfiltered)

	for _, rs := range restrictionSubsets() {
		for _, cat := range allCategories {
			got := f.Apply(c.Items(cat), rs, cat)
			assert.NotEmpty(t, got, "restrictions=%v category=%s", rs, cat)
		}
	}
}

func TestApply_NeverEmpty_WhenEverythingExcluded(t *testing.T) {
	f := NewFilter(FallbackUnfiltered)
	items := []string{"Castanha-do-pará", "Nozes", "Um punhado de amêndoas"}

	got := f.Apply(items, domain.NewRestrictionSet(domain.RestrictionNutAllergy), domain.CategorySnackFat)
	assert.Equal(t, items, got, "fully excluded list falls back to the original")
}

func TestApply_GlutenFree(t *testing.T) {
	c := catalog.Default()
	f := NewFilter(FallbackUnfiltered)
	rs := domain.NewRestrictionSet(domain.RestrictionGlutenFree)

	got := f.Apply(c.Items(domain.CategoryBreakfastCarb), rs, domain.CategoryBreakfastCarb)
	assert.Equal(t, []string{"Batata doce cozida (pequena porção)"}, got)

	got = f.Apply(c.Items(domain.CategoryMainCarb), rs, domain.CategoryMainCarb)
	assert.NotContains(t, got, "Macarrão integral")
	assert.Contains(t, got, "Quinoa cozida")

	// Gluten exclusion is scoped to carb categories.
	items := []string{"Pão de queijo"}
	assert.Equal(t, items, f.Apply(items, rs, domain.CategorySnackProtein))
}

func TestApply_LactoseFree(t *testing.T) {
	c := catalog.Default()
	f := NewFilter(FallbackUnfiltered)
	rs := domain.NewRestrictionSet(domain.RestrictionLactoseFree)

	got := f.Apply(c.Items(domain.CategoryBreakfastProtein), rs, domain.CategoryBreakfastProtein)
	assert.Equal(t, []string{"Ovos mexidos com espinafre", "Tofu mexido com cúrcuma"}, got)

	got = f.Apply(c.Items(domain.CategorySnackProtein), rs, domain.CategorySnackProtein)
	assert.Equal(t, []string{"Ovo cozido", "Um punhado de amêndoas"}, got)
}

func TestApply_Vegetarian(t *testing.T) {
	c := catalog.Default()
	f := NewFilter(FallbackUnfiltered)
	rs := domain.NewRestrictionSet(domain.RestrictionVegetarian)

	got := f.Apply(c.Items(domain.CategoryMainProtein), rs, domain.CategoryMainProtein)
	assert.Equal(t, []string{"Lentilha cozida", "Grão de bico ensopado", "Tofu grelhado com shoyu"}, got)
}

func TestApply_Vegan(t *testing.T) {
	c := catalog.Default()
	f := NewFilter(FallbackUnfiltered)
	rs := domain.NewRestrictionSet(domain.RestrictionVegan)

	for _, cat := range allCategories {
		got := f.Apply(c.Items(cat), rs, cat)
		res, _ := f.ApplyDetailed(c.Items(cat), rs, cat)
		if res.Relaxed {
			continue
		}
		for _, item := range got {
			assert.False(t, textmatch.ContainsAny(item, Keywords(domain.RestrictionVegan)), "%s: %q", cat, item)
		}
	}

	got := f.Apply(c.Items(domain.CategoryBreakfastProtein), rs, domain.CategoryBreakfastProtein)
	assert.Equal(t, []string{"Tofu mexido com cúrcuma"}, got)
}

func TestApply_AddsReplacementOnce(t *testing.T) {
	f := NewFilter(FallbackUnfiltered)
	rs := domain.NewRestrictionSet(domain.RestrictionLactoseFree, domain.RestrictionVegan)

	got := f.Apply([]string{"Iogurte grego"}, rs, domain.CategoryBreakfastProtein)
	assert.Equal(t, []string{"Tofu mexido com cúrcuma"}, got)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	f := NewFilter(FallbackUnfiltered)
	items := []string{"Peito de frango grelhado", "Lentilha cozida"}
	before := append([]string(nil), items...)

	f.Apply(items, domain.NewRestrictionSet(domain.RestrictionVegetarian), domain.CategoryMainProtein)
	assert.Equal(t, before, items)
}

func TestApplyDetailed_Relaxed(t *testing.T) {
	items := []string{"Nozes (3-4 unidades)"}
	rs := domain.NewRestrictionSet(domain.RestrictionNutAllergy)

	res, err := NewFilter(FallbackUnfiltered).ApplyDetailed(items, rs, domain.CategorySnackFat)
	require.NoError(t, err)
	assert.True(t, res.Relaxed)
	assert.Equal(t, items, res.Items)

	res, err = NewFilter(FallbackStrict).ApplyDetailed(items, rs, domain.CategorySnackFat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRestrictionUnsatisfiable))
	assert.True(t, res.Relaxed)
	assert.Equal(t, items, res.Items, "strict still never returns an empty list")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FallbackUnfiltered, p)

	p, err = ParsePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, FallbackStrict, p)

	_, err = ParsePolicy("lenient")
	assert.Error(t, err)
}
