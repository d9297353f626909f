package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitality-score-server/internal/domain"
)

func statusReading(name string, status domain.BiomarkerStatus) domain.BiomarkerReading {
	r := reading(name, 50, 30, 100)
	r.Status = status
	return r
}

func TestNutritionService_Analyze_LowFerritin(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("Ferritin", domain.STATUS_LOW),
	}

	analysis := service.Analyze(readings, nil)

	require.Len(t, analysis.Needs, 1)
	need := analysis.Needs[0]
	assert.Equal(t, "Ferritin", need.Biomarker)
	assert.Equal(t, domain.STATUS_LOW, need.Status)
	assert.Equal(t, "iron", need.Nutrient)

	names := foodNames(analysis.Foods)
	assert.Contains(t, names, "Beef")
	assert.Contains(t, names, "Lentils")
	assert.Contains(t, names, "Spinach")
}

func TestNutritionService_Analyze_OptimalReadingsIgnored(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("Ferritin", domain.STATUS_OPTIMAL),
		statusReading("Glucose", domain.STATUS_OPTIMAL),
	}

	analysis := service.Analyze(readings, nil)

	assert.Empty(t, analysis.Needs)
	assert.Empty(t, analysis.Foods)
}

func TestNutritionService_Analyze_UnknownMarkerNoMatch(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("Creatinine", domain.STATUS_HIGH),
	}

	analysis := service.Analyze(readings, nil)

	assert.Empty(t, analysis.Needs)
	assert.Empty(t, analysis.Foods)
}

func TestNutritionService_Analyze_SubstringLookup(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("Vitamin D (25-OH)", domain.STATUS_LOW),
		statusReading("LDL Cholesterol", domain.STATUS_HIGH),
	}

	analysis := service.Analyze(readings, nil)

	require.Len(t, analysis.Needs, 2)
	assert.Equal(t, "vitamin d", analysis.Needs[0].Nutrient)
	assert.Equal(t, "soluble fiber", analysis.Needs[1].Nutrient)
}

func TestNutritionService_Analyze_StatusMustMatch(t *testing.T) {
	service := NewNutritionService(testLogger())

	// Ferritin maps only when low; a high ferritin has no entry.
	readings := []domain.BiomarkerReading{
		statusReading("Ferritin", domain.STATUS_HIGH),
	}

	analysis := service.Analyze(readings, nil)

	assert.Empty(t, analysis.Needs)
}

func TestNutritionService_Analyze_NeedsNotDeduplicated(t *testing.T) {
	service := NewNutritionService(testLogger())

	// Ferritin and hemoglobin both map to iron: two needs, but shared
	// foods appear once.
	readings := []domain.BiomarkerReading{
		statusReading("Ferritin", domain.STATUS_LOW),
		statusReading("Hemoglobin", domain.STATUS_LOW),
	}

	analysis := service.Analyze(readings, nil)

	require.Len(t, analysis.Needs, 2)
	assert.Equal(t, "iron", analysis.Needs[0].Nutrient)
	assert.Equal(t, "iron", analysis.Needs[1].Nutrient)

	beefCount := 0
	for _, food := range analysis.Foods {
		if food.Name == "Beef" {
			beefCount++
		}
	}
	assert.Equal(t, 1, beefCount)
}

func TestNutritionService_Analyze_VeganFilter(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("B12", domain.STATUS_LOW),
	}
	profile := &domain.DietProfile{Diet: "vegan"}

	analysis := service.Analyze(readings, profile)

	require.Len(t, analysis.Needs, 1)
	names := foodNames(analysis.Foods)
	assert.Equal(t, []string{"Nutritional yeast"}, names)
}

func TestNutritionService_Analyze_PescatarianFilter(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("B12", domain.STATUS_LOW),
	}
	profile := &domain.DietProfile{Diet: "pescatarian"}

	analysis := service.Analyze(readings, profile)

	names := foodNames(analysis.Foods)
	assert.Contains(t, names, "Clams")
	assert.Contains(t, names, "Eggs")
	assert.NotContains(t, names, "Beef liver")
}

func TestNutritionService_Analyze_AllergyFilter(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("HDL", domain.STATUS_LOW),
	}
	profile := &domain.DietProfile{Allergies: []string{"Tree Nuts"}}

	analysis := service.Analyze(readings, profile)

	names := foodNames(analysis.Foods)
	assert.Contains(t, names, "Salmon")
	assert.Contains(t, names, "Olive oil")
	assert.NotContains(t, names, "Walnuts")
}

func TestNutritionService_Analyze_UnclassifiedSkipped(t *testing.T) {
	service := NewNutritionService(testLogger())

	readings := []domain.BiomarkerReading{
		statusReading("Ferritin", ""),
	}

	analysis := service.Analyze(readings, nil)

	assert.Empty(t, analysis.Needs)
}

func foodNames(foods []domain.FoodSuggestion) []string {
	names := make([]string, 0, len(foods))
	for _, food := range foods {
		names = append(names, food.Name)
	}
	return names
}
