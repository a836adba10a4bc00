// Package generator produces diet and workout plan documents. The default
// implementation calls an OpenAI-compatible chat-completions endpoint and
// falls back to a deterministic template when the provider is unreachable or
// returns something unparseable.
package generator

import (
	"context"
	"encoding/json"
)

// Plan kinds accepted by a Generator.
const (
	// KindDiet requests a meal plan document.
	KindDiet = "diet"
	// KindWorkout requests a training plan document.
	KindWorkout = "workout"
)

// Profile carries the account attributes a plan is personalized with.
type Profile struct {
	Age           int      `json:"age"`
	Sex           string   `json:"sex"`
	WeightKg      float64  `json:"weightKg"`
	HeightCm      float64  `json:"heightCm"`
	ActivityLevel string   `json:"activityLevel"`
	Goal          string   `json:"goal"`
	Restrictions  []string `json:"restrictions,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Targets are precomputed nutrition targets attached to diet requests.
type Targets struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
	WaterML  int `json:"waterMl"`
}

// Request describes one plan generation.
type Request struct {
	Kind    string   // KindDiet or KindWorkout.
	Profile Profile  // Account attributes.
	Targets *Targets // Nutrition targets, diet requests only.
}

// Generator produces a plan document for a request. The returned bytes are a
// JSON object ready to store and serve as-is.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}
