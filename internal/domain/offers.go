package domain

import "time"

// Offer is a retention offer presented when a user signals intent to churn.
type Offer struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// OfferRecord is one historical presentation of an offer, used for
// cooldown checks.
type OfferRecord struct {
	Type    string    `json:"type"`
	ShownAt time.Time `json:"shown_at"`
}

// NutrientNeed is one nutrient flagged for attention because a biomarker
// classified out of range. Needs are emitted per matched nutrient and are
// deliberately not deduplicated: two low iron-related markers both surface
// iron.
type NutrientNeed struct {
	Biomarker string          `json:"biomarker"`
	Status    BiomarkerStatus `json:"status"`
	Nutrient  string          `json:"nutrient"`
	Reason    string          `json:"reason,omitempty"`
}

// FoodSuggestion is one food recommended to address a nutrient need.
// Tags drive the diet filter; Allergens drives the allergy filter.
type FoodSuggestion struct {
	Name      string   `json:"name"`
	Nutrients []string `json:"nutrients"`
	Tags      []string `json:"tags,omitempty"`
	Allergens []string `json:"allergens,omitempty"`
}

// DietProfile captures the dietary constraints applied when filtering food
// suggestions. An empty profile filters nothing.
type DietProfile struct {
	// Diet is one of "", "vegetarian", "vegan", "pescatarian".
	Diet      string   `json:"diet,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
}

// NutritionAnalysis is the output of the nutrient mapping engine.
type NutritionAnalysis struct {
	Needs []NutrientNeed   `json:"needs"`
	Foods []FoodSuggestion `json:"foods"`
}
