// Package substitution resolves replacement candidates for prescribed foods
// and applies confirmed swaps to a plan.
package substitution

import (
	"github.com/dietplan/engine/internal/catalog"
	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/textmatch"
)

// MaxCandidates bounds the alternatives offered for one meal.
const MaxCandidates = 4

// Resolver looks up alternatives in the substitution catalog.
type Resolver struct {
	Catalog *catalog.Catalog
}

// NewResolver creates a Resolver.
func NewResolver(cat *catalog.Catalog) *Resolver {
	return &Resolver{Catalog: cat}
}

// Resolve returns up to MaxCandidates alternatives for description. Tiers
// are tried in order: first anchor contained in the description, then the
// keyword fallbacks, then the generic list. It never returns an empty list.
func (r *Resolver) Resolve(description string) domain.Candidates {
	if a, ok := r.Catalog.Substitutions.FirstMatch(description); ok {
		return candidates(a.Alternatives, domain.TierAnchor, a.Phrase)
	}

	for _, kf := range r.Catalog.KeywordFallbacks {
		if !textmatch.ContainsAny(description, kf.Keywords) {
			continue
		}
		if a, ok := r.Catalog.Substitutions.Lookup(kf.Anchor); ok {
			return candidates(a.Alternatives, domain.TierKeyword, a.Phrase)
		}
	}

	return candidates(r.Catalog.GenericFallback, domain.TierGeneric, "")
}

func candidates(options []string, tier domain.MatchTier, anchor string) domain.Candidates {
	n := len(options)
	if n > MaxCandidates {
		n = MaxCandidates
	}
	out := append([]string(nil), options[:n]...)
	c := domain.Candidates{Options: out, Tier: tier, Anchor: anchor}
	if len(out) > 0 {
		c.Default = out[0]
	}
	return c
}
