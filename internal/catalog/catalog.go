// Package catalog holds the static food and substitution registries.
//
// The default catalog is embedded in the binary and parsed once; hosts may
// load a replacement file at startup with Load. A Catalog is never mutated
// after it is built.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/textmatch"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Anchor maps an anchor phrase to its alternatives.
type Anchor struct {
	Phrase       string   `yaml:"anchor"`
	Alternatives []string `yaml:"alternatives"`
}

// Anchors is the ordered substitution registry. Matching is first-match in
// declaration order, so overlapping anchors resolve deterministically.
type Anchors []Anchor

// FirstMatch returns the first anchor whose phrase is a case-insensitive
// substring of description.
func (a Anchors) FirstMatch(description string) (Anchor, bool) {
	for _, anchor := range a {
		if textmatch.Contains(description, anchor.Phrase) {
			return anchor, true
		}
	}
	return Anchor{}, false
}

// Lookup returns the anchor with exactly the given phrase.
func (a Anchors) Lookup(phrase string) (Anchor, bool) {
	for _, anchor := range a {
		if anchor.Phrase == phrase {
			return anchor, true
		}
	}
	return Anchor{}, false
}

// KeywordFallback borrows an anchor's alternatives when a description
// contains any of the keywords.
type KeywordFallback struct {
	Keywords []string `yaml:"keywords"`
	Anchor   string   `yaml:"anchor"`
}

// Catalog is the full static registry.
type Catalog struct {
	Foods            map[domain.Category][]string `yaml:"foods"`
	Slots            []domain.MealSlotSpec        `yaml:"slots"`
	Substitutions    Anchors                      `yaml:"substitutions"`
	KeywordFallbacks []KeywordFallback            `yaml:"keyword_fallbacks"`
	GenericFallback  []string                     `yaml:"generic_fallback"`
}

// Items returns a copy of the phrases of a category.
func (c *Catalog) Items(category domain.Category) []string {
	return append([]string(nil), c.Foods[category]...)
}

// FoodItems returns the category's entries as FoodItems.
func (c *Catalog) FoodItems(category domain.Category) []domain.FoodItem {
	phrases := c.Foods[category]
	items := make([]domain.FoodItem, len(phrases))
	for i, p := range phrases {
		items[i] = domain.FoodItem{Phrase: p, Category: category}
	}
	return items
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded data is
// invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, domain.WrapEngineError(domain.ErrCatalogInvalid.Code, "parse catalog YAML", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var problems []string

	for cat, items := range c.Foods {
		if cat.Kind() == "" {
			problems = append(problems, fmt.Sprintf("unknown category %q", cat))
		}
		if len(items) == 0 {
			problems = append(problems, fmt.Sprintf("category %q is empty", cat))
		}
	}

	if len(c.Slots) != len(domain.SlotOrder) {
		problems = append(problems, fmt.Sprintf("expected %d meal slots, got %d", len(domain.SlotOrder), len(c.Slots)))
	} else {
		for i, slot := range c.Slots {
			if slot.Name != domain.SlotOrder[i] {
				problems = append(problems, fmt.Sprintf("slot %d is %q, want %q", i, slot.Name, domain.SlotOrder[i]))
			}
		}
	}
	for _, slot := range c.Slots {
		if len(slot.Categories) == 0 {
			problems = append(problems, fmt.Sprintf("slot %q has no categories", slot.Name))
		}
		for _, cat := range slot.Categories {
			if len(c.Foods[cat]) == 0 {
				problems = append(problems, fmt.Sprintf("slot %q references empty category %q", slot.Name, cat))
			}
		}
		n, bad := templateVerbs(slot.Template)
		if bad != "" {
			problems = append(problems, fmt.Sprintf("slot %q template has unsupported verb %q", slot.Name, bad))
		} else if n != len(slot.Categories) {
			problems = append(problems, fmt.Sprintf("slot %q template has %d placeholders for %d categories", slot.Name, n, len(slot.Categories)))
		}
	}

	for i, a := range c.Substitutions {
		if strings.TrimSpace(a.Phrase) == "" {
			problems = append(problems, fmt.Sprintf("substitution %d has an empty anchor", i))
		}
		if len(a.Alternatives) == 0 {
			problems = append(problems, fmt.Sprintf("anchor %q has no alternatives", a.Phrase))
		}
	}
	for _, kf := range c.KeywordFallbacks {
		if _, ok := c.Substitutions.Lookup(kf.Anchor); !ok {
			problems = append(problems, fmt.Sprintf("keyword fallback references unknown anchor %q", kf.Anchor))
		}
	}
	if len(c.GenericFallback) != 3 {
		problems = append(problems, fmt.Sprintf("generic fallback must have 3 entries, got %d", len(c.GenericFallback)))
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrCatalogInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrCatalogInvalid.Message, problems),
		}
	}
	return nil
}

// templateVerbs counts the %s placeholders in a slot template. It returns the
// first verb other than %s or a literal %%, if any.
func templateVerbs(tmpl string) (int, string) {
	n := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 == len(tmpl) {
			return n, "%"
		}
		switch tmpl[i+1] {
		case 's':
			n++
		case '%':
		default:
			return n, tmpl[i : i+2]
		}
		i++
	}
	return n, ""
}
