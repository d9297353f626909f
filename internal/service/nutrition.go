package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
)

// nutrientMapping maps one (marker, status) pair to a nutrient and its food
// sources. The table is an explicit ordered list: lookup tries an exact
// normalized name match first, then substring matches in table order, so
// behavior stays deterministic across lab naming variations.
type nutrientMapping struct {
	Marker   string
	Status   domain.BiomarkerStatus
	Nutrient string
	Reason   string
	Foods    []domain.FoodSuggestion
}

// NutritionService maps out-of-range biomarkers to nutrient needs and food
// suggestions, filtered by the user's diet and allergies.
type NutritionService struct {
	logger   *logrus.Logger
	mappings []nutrientMapping
}

// NewNutritionService creates a new nutrition service
func NewNutritionService(logger *logrus.Logger) *NutritionService {
	return &NutritionService{
		logger:   logger,
		mappings: nutrientMappings(),
	}
}

func nutrientMappings() []nutrientMapping {
	return []nutrientMapping{
		{
			Marker: "ferritin", Status: domain.STATUS_LOW,
			Nutrient: "iron", Reason: "Low ferritin indicates depleted iron stores",
			Foods: []domain.FoodSuggestion{
				{Name: "Beef", Nutrients: []string{"iron", "b12"}, Tags: []string{"meat"}},
				{Name: "Lentils", Nutrients: []string{"iron", "folate"}, Tags: []string{"vegan"}},
				{Name: "Spinach", Nutrients: []string{"iron", "magnesium"}, Tags: []string{"vegan"}},
				{Name: "Pumpkin seeds", Nutrients: []string{"iron", "zinc"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "hemoglobin", Status: domain.STATUS_LOW,
			Nutrient: "iron", Reason: "Low hemoglobin limits oxygen transport",
			Foods: []domain.FoodSuggestion{
				{Name: "Beef", Nutrients: []string{"iron", "b12"}, Tags: []string{"meat"}},
				{Name: "Spinach", Nutrients: []string{"iron", "magnesium"}, Tags: []string{"vegan"}},
				{Name: "Tofu", Nutrients: []string{"iron", "protein"}, Tags: []string{"vegan"}, Allergens: []string{"soy"}},
			},
		},
		{
			Marker: "vitamin d", Status: domain.STATUS_LOW,
			Nutrient: "vitamin d", Reason: "Low vitamin D affects bone and immune health",
			Foods: []domain.FoodSuggestion{
				{Name: "Salmon", Nutrients: []string{"vitamin d", "omega-3"}, Tags: []string{"fish"}, Allergens: []string{"fish"}},
				{Name: "Egg yolks", Nutrients: []string{"vitamin d"}, Tags: []string{"vegetarian"}, Allergens: []string{"egg"}},
				{Name: "Mushrooms", Nutrients: []string{"vitamin d"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "b12", Status: domain.STATUS_LOW,
			Nutrient: "b12", Reason: "Low B12 affects energy and nerve function",
			Foods: []domain.FoodSuggestion{
				{Name: "Clams", Nutrients: []string{"b12", "iron"}, Tags: []string{"fish"}, Allergens: []string{"shellfish"}},
				{Name: "Beef liver", Nutrients: []string{"b12", "iron"}, Tags: []string{"meat"}},
				{Name: "Nutritional yeast", Nutrients: []string{"b12"}, Tags: []string{"vegan"}},
				{Name: "Eggs", Nutrients: []string{"b12", "protein"}, Tags: []string{"vegetarian"}, Allergens: []string{"egg"}},
			},
		},
		{
			Marker: "magnesium", Status: domain.STATUS_LOW,
			Nutrient: "magnesium", Reason: "Low magnesium affects sleep and muscle recovery",
			Foods: []domain.FoodSuggestion{
				{Name: "Almonds", Nutrients: []string{"magnesium", "vitamin e"}, Tags: []string{"vegan"}, Allergens: []string{"tree nuts"}},
				{Name: "Dark chocolate", Nutrients: []string{"magnesium"}, Tags: []string{"vegan"}},
				{Name: "Avocado", Nutrients: []string{"magnesium", "potassium"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "hdl", Status: domain.STATUS_LOW,
			Nutrient: "omega-3", Reason: "Low HDL benefits from unsaturated fats",
			Foods: []domain.FoodSuggestion{
				{Name: "Salmon", Nutrients: []string{"vitamin d", "omega-3"}, Tags: []string{"fish"}, Allergens: []string{"fish"}},
				{Name: "Walnuts", Nutrients: []string{"omega-3"}, Tags: []string{"vegan"}, Allergens: []string{"tree nuts"}},
				{Name: "Olive oil", Nutrients: []string{"monounsaturated fat"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "glucose", Status: domain.STATUS_HIGH,
			Nutrient: "fiber", Reason: "Elevated glucose benefits from slower carbohydrate absorption",
			Foods: []domain.FoodSuggestion{
				{Name: "Oats", Nutrients: []string{"fiber"}, Tags: []string{"vegan"}, Allergens: []string{"gluten"}},
				{Name: "Legumes", Nutrients: []string{"fiber", "protein"}, Tags: []string{"vegan"}},
				{Name: "Leafy greens", Nutrients: []string{"fiber", "folate"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "ldl", Status: domain.STATUS_HIGH,
			Nutrient: "soluble fiber", Reason: "Elevated LDL responds to soluble fiber intake",
			Foods: []domain.FoodSuggestion{
				{Name: "Oats", Nutrients: []string{"fiber"}, Tags: []string{"vegan"}, Allergens: []string{"gluten"}},
				{Name: "Beans", Nutrients: []string{"fiber", "protein"}, Tags: []string{"vegan"}},
				{Name: "Apples", Nutrients: []string{"fiber"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "triglycerides", Status: domain.STATUS_HIGH,
			Nutrient: "omega-3", Reason: "Elevated triglycerides respond to omega-3 fats",
			Foods: []domain.FoodSuggestion{
				{Name: "Sardines", Nutrients: []string{"omega-3"}, Tags: []string{"fish"}, Allergens: []string{"fish"}},
				{Name: "Flaxseed", Nutrients: []string{"omega-3", "fiber"}, Tags: []string{"vegan"}},
			},
		},
		{
			Marker: "homocysteine", Status: domain.STATUS_HIGH,
			Nutrient: "folate", Reason: "Elevated homocysteine benefits from folate and B vitamins",
			Foods: []domain.FoodSuggestion{
				{Name: "Leafy greens", Nutrients: []string{"fiber", "folate"}, Tags: []string{"vegan"}},
				{Name: "Lentils", Nutrients: []string{"iron", "folate"}, Tags: []string{"vegan"}},
			},
		},
	}
}

// Analyze maps every classified, non-optimal reading to nutrient needs and
// food suggestions. Needs are emitted once per matched mapping and not
// deduplicated; foods are unioned and deduplicated by name. Unknown marker
// names simply produce no match. The profile filter runs last.
func (s *NutritionService) Analyze(readings []domain.BiomarkerReading, profile *domain.DietProfile) *domain.NutritionAnalysis {
	analysis := &domain.NutritionAnalysis{
		Needs: make([]domain.NutrientNeed, 0),
		Foods: make([]domain.FoodSuggestion, 0),
	}
	seenFoods := make(map[string]struct{})

	for i := range readings {
		r := &readings[i]
		if !r.Status.IsAbnormal() {
			continue
		}
		mapping := s.lookup(r.Name, r.Status)
		if mapping == nil {
			continue
		}

		analysis.Needs = append(analysis.Needs, domain.NutrientNeed{
			Biomarker: r.Name,
			Status:    r.Status,
			Nutrient:  mapping.Nutrient,
			Reason:    mapping.Reason,
		})
		for _, food := range mapping.Foods {
			if !allowedFood(food, profile) {
				continue
			}
			if _, dup := seenFoods[food.Name]; dup {
				continue
			}
			seenFoods[food.Name] = struct{}{}
			analysis.Foods = append(analysis.Foods, food)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"readings": len(readings),
		"needs":    len(analysis.Needs),
		"foods":    len(analysis.Foods),
	}).Debug("Completed nutrition analysis")

	return analysis
}

// lookup finds the mapping for a marker name and status: exact normalized
// match first, then substring match in table order.
func (s *NutritionService) lookup(name string, status domain.BiomarkerStatus) *nutrientMapping {
	normalized := normalizeMarker(name)
	for i := range s.mappings {
		m := &s.mappings[i]
		if m.Status == status && m.Marker == normalized {
			return m
		}
	}
	for i := range s.mappings {
		m := &s.mappings[i]
		if m.Status == status && strings.Contains(normalized, m.Marker) {
			return m
		}
	}
	return nil
}

// dietExclusions maps a diet to the food tags it rules out.
var dietExclusions = map[string][]string{
	"vegetarian":  {"meat", "fish"},
	"vegan":       {"meat", "fish", "vegetarian"},
	"pescatarian": {"meat"},
}

// allowedFood applies the diet and allergy filter. The "vegetarian" tag
// marks foods containing eggs or dairy, which a vegan diet also excludes.
func allowedFood(food domain.FoodSuggestion, profile *domain.DietProfile) bool {
	if profile == nil {
		return true
	}
	for _, excluded := range dietExclusions[strings.ToLower(profile.Diet)] {
		for _, tag := range food.Tags {
			if tag == excluded {
				return false
			}
		}
	}
	for _, allergy := range profile.Allergies {
		for _, allergen := range food.Allergens {
			if strings.EqualFold(allergy, allergen) {
				return false
			}
		}
	}
	return true
}
