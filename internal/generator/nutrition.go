package generator

import "math"

// Activity multipliers applied to basal metabolic rate.
var activityFactor = map[string]float64{
	"sedentario":    1.2,
	"leve":          1.375,
	"moderado":      1.55,
	"intenso":       1.725,
	"muito-intenso": 1.9,
}

// Goal adjustments in kcal/day applied to total daily energy expenditure.
var goalAdjustment = map[string]float64{
	"emagrecer":       -500,
	"emagrecer-massa": -300,
	"definicao-massa": 0,
	"ganhar-massa":    300,
	"manutencao":      0,
}

// Meal shares of the daily calorie target, in serving order.
var mealShares = []struct {
	Name  string
	Share float64
}{
	{"cafe-manha", 0.25},
	{"lanche-manha", 0.10},
	{"almoco", 0.35},
	{"lanche-tarde", 0.10},
	{"jantar", 0.20},
}

// BMR computes basal metabolic rate with the Harris-Benedict equations.
func BMR(sex string, weightKg, heightCm float64, age int) float64 {
	if sex == "masculino" {
		return 88.362 + 13.397*weightKg + 4.799*heightCm - 5.677*float64(age)
	}
	return 447.593 + 9.247*weightKg + 3.098*heightCm - 4.330*float64(age)
}

// TDEE scales basal metabolic rate by the activity multiplier. Unknown
// activity levels assume moderate activity.
func TDEE(bmr float64, activityLevel string) float64 {
	factor, ok := activityFactor[activityLevel]
	if !ok {
		factor = 1.55
	}
	return bmr * factor
}

// ComputeTargets derives the daily nutrition targets for a profile: calorie
// goal from BMR/TDEE plus the goal adjustment, a 30/40/30 macro split, and
// water at 35ml per kg of body weight.
func ComputeTargets(p Profile) Targets {
	bmr := BMR(p.Sex, p.WeightKg, p.HeightCm, p.Age)
	tdee := TDEE(bmr, p.ActivityLevel)
	calories := tdee + goalAdjustment[p.Goal]

	return Targets{
		Calories: int(math.Round(calories)),
		Protein:  int(math.Round(calories * 0.30 / 4)),
		Carbs:    int(math.Round(calories * 0.40 / 4)),
		Fat:      int(math.Round(calories * 0.30 / 9)),
		WaterML:  int(math.Round(p.WeightKg * 35)),
	}
}

// MealCalories distributes a daily calorie target over the five standard
// meals.
func MealCalories(calories int) map[string]int {
	out := make(map[string]int, len(mealShares))
	for _, meal := range mealShares {
		out[meal.Name] = int(math.Round(float64(calories) * meal.Share))
	}
	return out
}
