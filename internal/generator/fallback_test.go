package generator

import (
	"encoding/json"
	"testing"
)

func TestFallbackDietPlanShape(t *testing.T) {
	req := Request{
		Kind:    KindDiet,
		Profile: Profile{Age: 30, Sex: "masculino", WeightKg: 80, HeightCm: 180, ActivityLevel: "moderado", Goal: "emagrecer"},
	}
	raw, errPlan := FallbackPlan(req)
	if errPlan != nil {
		t.Fatalf("fallback plan: %v", errPlan)
	}

	var doc map[string]any
	if errUnmarshal := json.Unmarshal(raw, &doc); errUnmarshal != nil {
		t.Fatalf("fallback plan not valid json: %v", errUnmarshal)
	}
	if doc["resumo"] == "" {
		t.Fatalf("missing resumo")
	}
	mealPlan, ok := doc["plano_alimentar"].(map[string]any)
	if !ok {
		t.Fatalf("missing plano_alimentar: %v", doc)
	}
	meals, ok := mealPlan["refeicoes"].([]any)
	if !ok || len(meals) != 5 {
		t.Fatalf("expected 5 meals, got %v", mealPlan["refeicoes"])
	}
}

func TestFallbackWorkoutPlanShape(t *testing.T) {
	req := Request{
		Kind:    KindWorkout,
		Profile: Profile{Age: 25, Sex: "feminino", WeightKg: 60, HeightCm: 165, ActivityLevel: "leve", Goal: "ganhar-massa"},
	}
	raw, errPlan := FallbackPlan(req)
	if errPlan != nil {
		t.Fatalf("fallback plan: %v", errPlan)
	}

	var doc map[string]any
	if errUnmarshal := json.Unmarshal(raw, &doc); errUnmarshal != nil {
		t.Fatalf("fallback plan not valid json: %v", errUnmarshal)
	}
	days, ok := doc["dias"].([]any)
	if !ok || len(days) != 5 {
		t.Fatalf("expected 5 training days, got %v", doc["dias"])
	}
}

func TestExtractJSONObject(t *testing.T) {
	content := "Claro! Aqui está o plano:\n```json\n{\"resumo\": \"ok\"}\n```\nBons treinos!"
	doc, ok := extractJSONObject(content)
	if !ok {
		t.Fatalf("expected extraction to succeed")
	}
	var parsed map[string]any
	if errUnmarshal := json.Unmarshal(doc, &parsed); errUnmarshal != nil {
		t.Fatalf("extracted document invalid: %v", errUnmarshal)
	}
	if parsed["resumo"] != "ok" {
		t.Fatalf("unexpected document: %v", parsed)
	}

	if _, ok := extractJSONObject("no json here"); ok {
		t.Fatalf("expected extraction to fail without an object")
	}
}
