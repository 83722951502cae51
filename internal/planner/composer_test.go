package planner

import (
	"errors"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/catalog"
	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/restriction"
	"github.com/dietplan/engine/internal/textmatch"
)

// seqRand replays scripted draws, then returns 0.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	if r.i >= len(r.vals) {
		return 0
	}
	v := r.vals[r.i]
	r.i++
	return v % n
}

// passthroughFilter skips restriction narrowing on the main pass so the
// breakfast corrections have something to correct.
type passthroughFilter struct {
	*restriction.Filter
}

func (passthroughFilter) ApplyDetailed(items []string, _ domain.RestrictionSet, _ domain.Category) (restriction.Result, error) {
	return restriction.Result{Items: items}, nil
}

func newTestComposer() *Composer {
	return NewComposer(catalog.Default(), restriction.NewFilter(restriction.FallbackUnfiltered))
}

func mealNames(meals []domain.Meal) []string {
	names := make([]string, len(meals))
	for i, m := range meals {
		names[i] = m.Name
	}
	return names
}

func TestCompose_FirstChoices(t *testing.T) {
	comp, err := newTestComposer().Compose(domain.RestrictionSet{}, &seqRand{})
	require.NoError(t, err)

	require.Len(t, comp.Meals, 5)
	assert.Equal(t, domain.SlotOrder, mealNames(comp.Meals))

	want := []string{
		"Ovos mexidos com espinafre com Uma fatia de pão integral.",
		"Maçã.",
		"Peito de frango grelhado com Arroz integral e Salada colorida (alface, tomate, pepino).",
		"Whey protein com água com Castanha-do-pará (1-2 unidades).",
		"Peito de frango grelhado com Arroz integral e Salada colorida (alface, tomate, pepino).",
	}
	for i, m := range comp.Meals {
		assert.Equal(t, want[i], m.Description)
		assert.Equal(t, domain.MealOriginal, m.State.Kind)
		assert.False(t, m.IsSubstituted())
	}
	assert.Empty(t, comp.Relaxed)
}

func TestCompose_DrawOrder(t *testing.T) {
	// breakfast P,C; lunch P,C,V; dinner P,C,V; morning fruit; afternoon P,F.
	rng := &seqRand{vals: []int{3, 3, 4, 1, 2, 6, 2, 3, 5, 1, 1}}
	comp, err := newTestComposer().Compose(domain.RestrictionSet{}, rng)
	require.NoError(t, err)

	assert.Equal(t, "Tofu mexido com cúrcuma com Batata doce cozida (pequena porção).", comp.Meals[0].Description)
	assert.Equal(t, "Uvas (pequeno cacho).", comp.Meals[1].Description)
	assert.Equal(t, "Lentilha cozida com Quinoa cozida e Couve refogada com alho.", comp.Meals[2].Description)
	assert.Equal(t, "Ovo cozido com Nozes (3-4 unidades).", comp.Meals[3].Description)
	assert.Equal(t, "Tofu grelhado com shoyu com Batata doce assada e Legumes assados (abobrinha, berinjela, pimentão).", comp.Meals[4].Description)
}

func TestCompose_SameSeedSamePlan(t *testing.T) {
	c := newTestComposer()
	rs := domain.NewRestrictionSet(domain.RestrictionLactoseFree)

	a, err := c.Compose(rs, NewRand(42))
	require.NoError(t, err)
	b, err := c.Compose(rs, NewRand(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompose_VeganPlansAvoidAnimalProducts(t *testing.T) {
	c := newTestComposer()
	rs := domain.NewRestrictionSet(domain.RestrictionVegan)
	keywords := restriction.Keywords(domain.RestrictionVegan)

	for seed := uint64(0); seed < 200; seed++ {
		comp, err := c.Compose(rs, NewRand(seed))
		require.NoError(t, err)
		require.Empty(t, comp.Relaxed)
		for _, m := range comp.Meals {
			assert.False(t, textmatch.ContainsAny(m.Description, keywords), "seed %d: %q", seed, m.Description)
		}
	}
}

func TestCompose_GlutenCorrection(t *testing.T) {
	c := NewComposer(catalog.Default(), passthroughFilter{restriction.NewFilter(restriction.FallbackUnfiltered)})
	rs := domain.NewRestrictionSet(domain.RestrictionGlutenFree)

	comp, err := c.Compose(rs, &seqRand{})
	require.NoError(t, err)
	assert.Equal(t, "Ovos mexidos com espinafre com Batata doce cozida (pequena porção) (opção sem glúten).", comp.Meals[0].Description)
}

func TestCompose_LactoseCorrection(t *testing.T) {
	c := NewComposer(catalog.Default(), passthroughFilter{restriction.NewFilter(restriction.FallbackUnfiltered)})
	rs := domain.NewRestrictionSet(domain.RestrictionLactoseFree)

	rng := &seqRand{vals: []int{2, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}}
	comp, err := c.Compose(rs, rng)
	require.NoError(t, err)
	assert.Equal(t, "Tofu mexido com cúrcuma com Batata doce cozida (pequena porção) (opção sem lactose).", comp.Meals[0].Description)
}

func TestCompose_DoubleConflictKeepsFirstPickCarb(t *testing.T) {
	c := NewComposer(catalog.Default(), passthroughFilter{restriction.NewFilter(restriction.FallbackUnfiltered)})
	rs := domain.NewRestrictionSet(domain.RestrictionGlutenFree, domain.RestrictionLactoseFree)

	rng := &seqRand{vals: []int{2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}}
	comp, err := c.Compose(rs, rng)
	require.NoError(t, err)
	assert.Equal(t, "Tofu mexido com cúrcuma com Uma fatia de pão integral (opção sem lactose).", comp.Meals[0].Description)
}

func nutsOnlyCatalog() *catalog.Catalog {
	base := catalog.Default()
	c := *base
	c.Foods = maps.Clone(base.Foods)
	c.Foods[domain.CategorySnackFat] = []string{"Nozes (3-4 unidades)", "Castanha-do-pará (1-2 unidades)"}
	return &c
}

func TestCompose_RelaxedCategoryUnfiltered(t *testing.T) {
	c := NewComposer(nutsOnlyCatalog(), restriction.NewFilter(restriction.FallbackUnfiltered))
	rs := domain.NewRestrictionSet(domain.RestrictionNutAllergy)

	comp, err := c.Compose(rs, &seqRand{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategorySnackFat}, comp.Relaxed)
	assert.Equal(t, "Whey protein com água com Nozes (3-4 unidades).", comp.Meals[3].Description)
}

func TestCompose_RelaxedCategoryStrict(t *testing.T) {
	c := NewComposer(nutsOnlyCatalog(), restriction.NewFilter(restriction.FallbackStrict))
	rs := domain.NewRestrictionSet(domain.RestrictionNutAllergy)

	_, err := c.Compose(rs, &seqRand{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRestrictionUnsatisfiable))
}
