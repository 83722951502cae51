package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/domain"
)

func TestDefault_Valid(t *testing.T) {
	c := Default()
	require.NotNil(t, c)

	require.Len(t, c.Slots, 5)
	for i, slot := range c.Slots {
		assert.Equal(t, domain.SlotOrder[i], slot.Name)
		for _, cat := range slot.Categories {
			assert.NotEmpty(t, c.Foods[cat], "slot %s category %s", slot.Name, cat)
		}
	}
	assert.Len(t, c.GenericFallback, 3)
	assert.Same(t, c, Default(), "default catalog should be parsed once")
}

func TestAnchors_FirstMatch_DeclarationOrder(t *testing.T) {
	c := Default()

	got, ok := c.Substitutions.FirstMatch("Frango grelhado com arroz integral")
	require.True(t, ok)
	assert.Equal(t, "Frango grelhado", got.Phrase)

	got, ok = c.Substitutions.FirstMatch("ARROZ INTEGRAL com legumes")
	require.True(t, ok)
	assert.Equal(t, "Arroz integral", got.Phrase)

	_, ok = c.Substitutions.FirstMatch("Sopa de ervas desconhecida")
	assert.False(t, ok)
}

func TestAnchors_Lookup(t *testing.T) {
	c := Default()
	a, ok := c.Substitutions.Lookup("Salmão assado")
	require.True(t, ok)
	assert.Contains(t, a.Alternatives, "Truta grelhada")

	_, ok = c.Substitutions.Lookup("salmão assado")
	assert.False(t, ok, "lookup is exact")
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := Default()
	items := c.Items(domain.CategoryMainCarb)
	items[0] = "mutated"
	assert.NotEqual(t, "mutated", c.Foods[domain.CategoryMainCarb][0])

	food := c.FoodItems(domain.CategorySnackFruit)
	require.NotEmpty(t, food)
	assert.Equal(t, domain.CategorySnackFruit, food[0].Category)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("foods: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCatalogInvalid))
}

func TestParse_ValidationProblems(t *testing.T) {
	doc := `
foods:
  breakfast_protein: []
  mystery: ["x"]
slots:
  - name: "Breakfast"
    categories: [breakfast_protein]
    template: "%s com %s."
substitutions:
  - anchor: ""
    alternatives: []
keyword_fallbacks:
  - keywords: ["x"]
    anchor: "missing"
generic_fallback: ["a"]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCatalogInvalid))
	for _, want := range []string{
		`category "breakfast_protein" is empty`,
		`unknown category "mystery"`,
		"expected 5 meal slots",
		"2 placeholders for 1 categories",
		"empty anchor",
		`unknown anchor "missing"`,
		"generic fallback must have 3 entries",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestTemplateVerbs(t *testing.T) {
	tests := []struct {
		tmpl string
		n    int
		bad  string
	}{
		{"%s com %s.", 2, ""},
		{"%s (100%%).", 1, ""},
		{"%s com %d.", 1, "%d"},
		{"%s 50%", 1, "%"},
		{"%v.", 0, "%v"},
	}
	for _, tt := range tests {
		n, bad := templateVerbs(tt.tmpl)
		assert.Equal(t, tt.n, n, tt.tmpl)
		assert.Equal(t, tt.bad, bad, tt.tmpl)
	}
}

func TestParse_RejectsForeignTemplateVerb(t *testing.T) {
	doc := strings.Replace(string(defaultYAML), `template: "%s."`, `template: "%d."`, 1)
	require.NotEqual(t, string(defaultYAML), doc)

	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCatalogInvalid))
	assert.Contains(t, err.Error(), `unsupported verb "%d"`)
}

func TestLoad_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(p, defaultYAML, 0644))

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, len(Default().Substitutions), len(c.Substitutions))
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/catalog.yaml")
	require.Error(t, err)
}
