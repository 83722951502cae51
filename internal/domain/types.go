// Package domain defines the core types for the diet plan engine.
package domain

import (
	"encoding/json"
	"time"
)

// Sex selects the constant term of the basal estimate.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ActivityLevel is the habitual exercise level of a profile.
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// Objective is the weight-change goal of a profile.
type Objective string

const (
	ObjectiveLoseWeight     Objective = "lose_weight"
	ObjectiveMaintainWeight Objective = "maintain_weight"
	ObjectiveGainMass       Objective = "gain_mass"
)

// Restriction is a declared dietary constraint.
type Restriction string

const (
	RestrictionLactoseFree Restriction = "lactose_free"
	RestrictionGlutenFree  Restriction = "gluten_free"
	RestrictionVegetarian  Restriction = "vegetarian"
	RestrictionVegan       Restriction = "vegan"
	RestrictionNutAllergy  Restriction = "nut_allergy"
)

// AllRestrictions lists every restriction in the order the filter applies them.
var AllRestrictions = []Restriction{
	RestrictionGlutenFree,
	RestrictionLactoseFree,
	RestrictionVegetarian,
	RestrictionVegan,
	RestrictionNutAllergy,
}

// Valid reports whether r is a known restriction.
func (r Restriction) Valid() bool {
	for _, known := range AllRestrictions {
		if r == known {
			return true
		}
	}
	return false
}

// RestrictionSet is a set of active restrictions.
type RestrictionSet map[Restriction]bool

// NewRestrictionSet builds a set from a list, ignoring duplicates.
func NewRestrictionSet(rs ...Restriction) RestrictionSet {
	set := make(RestrictionSet, len(rs))
	for _, r := range rs {
		set[r] = true
	}
	return set
}

// Has reports whether r is active.
func (s RestrictionSet) Has(r Restriction) bool {
	return s[r]
}

// BiometricProfile is the immutable input to plan generation.
type BiometricProfile struct {
	Sex           Sex           `json:"sex"`
	Age           int           `json:"age"`
	WeightKg      float64       `json:"weight_kg"`
	HeightCm      float64       `json:"height_cm"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Objective     Objective     `json:"objective"`
	Restrictions  []Restriction `json:"restrictions"`
}

// RestrictionSet returns the profile's restrictions as a set.
func (p BiometricProfile) RestrictionSet() RestrictionSet {
	return NewRestrictionSet(p.Restrictions...)
}

// CategoryKind groups categories by the nutrient they contribute.
type CategoryKind string

const (
	KindProtein   CategoryKind = "protein"
	KindCarb      CategoryKind = "carb"
	KindFat       CategoryKind = "fat"
	KindVegetable CategoryKind = "vegetable"
	KindFruit     CategoryKind = "fruit"
)

// Category identifies a food catalog bucket.
type Category string

const (
	CategoryBreakfastProtein Category = "breakfast_protein"
	CategoryBreakfastCarb    Category = "breakfast_carb"
	CategoryBreakfastFat     Category = "breakfast_fat"
	CategoryMainProtein      Category = "main_protein"
	CategoryMainCarb         Category = "main_carb"
	CategoryMainVegetable    Category = "main_vegetable"
	CategorySnackProtein     Category = "snack_protein"
	CategorySnackFruit       Category = "snack_fruit"
	CategorySnackFat         Category = "snack_fat"
)

// Kind returns the nutrient kind of the category, or "" for an unknown one.
func (c Category) Kind() CategoryKind {
	switch c {
	case CategoryBreakfastProtein, CategoryMainProtein, CategorySnackProtein:
		return KindProtein
	case CategoryBreakfastCarb, CategoryMainCarb:
		return KindCarb
	case CategoryBreakfastFat, CategorySnackFat:
		return KindFat
	case CategoryMainVegetable:
		return KindVegetable
	case CategorySnackFruit:
		return KindFruit
	}
	return ""
}

// FoodItem is a catalog phrase and the category it belongs to.
type FoodItem struct {
	Phrase   string
	Category Category
}

// Meal slot names, in plan order.
const (
	SlotBreakfast      = "Breakfast"
	SlotMorningSnack   = "Morning Snack"
	SlotLunch          = "Lunch"
	SlotAfternoonSnack = "Afternoon Snack"
	SlotDinner         = "Dinner"
)

// SlotOrder is the fixed meal order of every plan.
var SlotOrder = []string{SlotBreakfast, SlotMorningSnack, SlotLunch, SlotAfternoonSnack, SlotDinner}

// MealSlotSpec maps a named meal to the categories that each contribute one
// item, and the template that joins them. Template placeholders are %s in
// category order.
type MealSlotSpec struct {
	Name       string     `yaml:"name"`
	Categories []Category `yaml:"categories"`
	Template   string     `yaml:"template"`
}

// DailyTargets holds the daily caloric and macronutrient targets.
type DailyTargets struct {
	Calories     int `json:"calories"`
	ProteinGrams int `json:"protein_grams"`
	CarbGrams    int `json:"carb_grams"`
	FatGrams     int `json:"fat_grams"`
}

// MealStateKind tags a meal's substitution history.
type MealStateKind string

const (
	MealOriginal    MealStateKind = "original"
	MealSubstituted MealStateKind = "substituted"
)

// MealState records whether a meal was substituted and, if so, the most
// recent swap. From is always the description immediately before the last
// substitution.
type MealState struct {
	Kind MealStateKind `json:"kind"`
	From string        `json:"from,omitempty"`
	To   string        `json:"to,omitempty"`
}

// Meal is one slot of a daily plan.
type Meal struct {
	Name        string
	Description string
	State       MealState
}

// IsSubstituted reports whether the meal has been swapped at least once.
func (m Meal) IsSubstituted() bool {
	return m.State.Kind == MealSubstituted
}

// OriginalDescription returns the description replaced by the latest
// substitution. ok is false for a meal that was never substituted.
func (m Meal) OriginalDescription() (string, bool) {
	if !m.IsSubstituted() {
		return "", false
	}
	return m.State.From, true
}

type mealJSON struct {
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	State               MealState `json:"state"`
	OriginalDescription string    `json:"original_description,omitempty"`
	IsSubstituted       bool      `json:"is_substituted"`
}

// MarshalJSON emits the derived original_description and is_substituted
// fields next to the state.
func (m Meal) MarshalJSON() ([]byte, error) {
	orig, _ := m.OriginalDescription()
	return json.Marshal(mealJSON{
		Name:                m.Name,
		Description:         m.Description,
		State:               m.State,
		OriginalDescription: orig,
		IsSubstituted:       m.IsSubstituted(),
	})
}

// UnmarshalJSON restores a meal; the derived fields are ignored.
func (m *Meal) UnmarshalJSON(data []byte) error {
	var v mealJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Name = v.Name
	m.Description = v.Description
	m.State = v.State
	if m.State.Kind == "" {
		m.State.Kind = MealOriginal
	}
	return nil
}

// DietPlan is a generated daily plan and its revision metadata.
type DietPlan struct {
	ID                string           `json:"id"`
	Owner             string           `json:"owner"`
	Revision          int              `json:"revision"`
	Targets           DailyTargets     `json:"daily_targets"`
	Meals             []Meal           `json:"meals"`
	IMC               float64          `json:"imc"`
	Profile           BiometricProfile `json:"source_profile"`
	RelaxedCategories []Category       `json:"relaxed_categories,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	LastModifiedAt    *time.Time       `json:"last_modified_at,omitempty"`
}

// Clone returns a deep copy of the plan.
func (p DietPlan) Clone() DietPlan {
	c := p
	c.Meals = append([]Meal(nil), p.Meals...)
	c.Profile.Restrictions = append([]Restriction(nil), p.Profile.Restrictions...)
	c.RelaxedCategories = append([]Category(nil), p.RelaxedCategories...)
	if p.LastModifiedAt != nil {
		t := *p.LastModifiedAt
		c.LastModifiedAt = &t
	}
	return c
}

// SubstitutionRequest is the transient context of one resolve+confirm
// interaction.
type SubstitutionRequest struct {
	MealIndex int    `json:"meal_index"`
	MealName  string `json:"meal_name"`
	Original  string `json:"original"`
}

// MatchTier reports which lookup tier produced a candidate list.
type MatchTier string

const (
	TierAnchor  MatchTier = "anchor"
	TierKeyword MatchTier = "keyword"
	TierGeneric MatchTier = "generic"
)

// Candidates is the bounded list of alternatives for a description.
// Default is the pre-selected choice.
type Candidates struct {
	Options []string  `json:"options"`
	Default string    `json:"default"`
	Tier    MatchTier `json:"tier"`
	Anchor  string    `json:"anchor,omitempty"`
}

// ProgressEntry is one weight measurement.
type ProgressEntry struct {
	ID       string    `json:"id"`
	Owner    string    `json:"owner"`
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weight_kg"`
	HeightCm float64   `json:"height_cm"`
	IMC      float64   `json:"imc"`
}

// Plan event types.
const (
	EventPlanGenerated   = "plan_generated"
	EventMealSubstituted = "meal_substituted"
)

// PlanEvent is an entry in a plan's event log.
type PlanEvent struct {
	ID          int64  `json:"id"`
	PlanID      string `json:"plan_id"`
	SeqNo       int64  `json:"seq_no"`
	EventType   string `json:"event_type"`
	PayloadJSON string `json:"payload_json"`
	CreatedAt   int64  `json:"created_at"`
}

// PlanSnapshot captures a full plan at one revision.
type PlanSnapshot struct {
	ID           int64
	PlanID       string
	Revision     int
	SnapshotJSON string
	Checksum     string
	CreatedAt    int64
}
