package generator

import (
	"encoding/json"
	"fmt"
)

// fallbackMeal is one meal entry of the deterministic diet plan.
type fallbackMeal struct {
	Name     string `json:"nome"`
	Calories int    `json:"calorias"`
	Protein  string `json:"proteinas"`
	Carbs    string `json:"carboidratos"`
	Fat      string `json:"gorduras"`
	Tip      string `json:"dica"`
}

// mealTitles maps meal identifiers to display names.
var mealTitles = map[string]string{
	"cafe-manha":   "Café da Manhã",
	"lanche-manha": "Lanche da Manhã",
	"almoco":       "Almoço",
	"lanche-tarde": "Lanche da Tarde",
	"jantar":       "Jantar",
}

// FallbackPlan builds a deterministic plan document from the profile alone,
// used when the AI provider is unavailable. The document shape matches what
// the provider is prompted to return, so clients render both the same way.
func FallbackPlan(req Request) (json.RawMessage, error) {
	if req.Kind == KindWorkout {
		return fallbackWorkout(req)
	}
	return fallbackDiet(req)
}

func fallbackDiet(req Request) (json.RawMessage, error) {
	targets := req.Targets
	if targets == nil {
		t := ComputeTargets(req.Profile)
		targets = &t
	}

	meals := make([]fallbackMeal, 0, len(mealShares))
	for name, calories := range MealCalories(targets.Calories) {
		meals = append(meals, fallbackMeal{
			Name:     mealTitles[name],
			Calories: calories,
			Protein:  fmt.Sprintf("%dg", calories*30/100/4),
			Carbs:    fmt.Sprintf("%dg", calories*40/100/4),
			Fat:      fmt.Sprintf("%dg", calories*30/100/9),
			Tip:      "Prefira preparos simples: grelhados, cozidos e saladas frescas",
		})
	}
	// Map iteration order is random; restore serving order.
	ordered := make([]fallbackMeal, 0, len(meals))
	for _, share := range mealShares {
		for _, meal := range meals {
			if meal.Name == mealTitles[share.Name] {
				ordered = append(ordered, meal)
			}
		}
	}

	doc := map[string]any{
		"resumo": fmt.Sprintf("Plano alimentar com %d kcal/dia distribuídas em %d refeições, alinhado ao seu objetivo.",
			targets.Calories, len(ordered)),
		"objetivos": map[string]any{
			"principal":        req.Profile.Goal,
			"calorias_diarias": targets.Calories,
			"distribuicao_macros": map[string]string{
				"proteinas":    fmt.Sprintf("%dg por dia", targets.Protein),
				"carboidratos": fmt.Sprintf("%dg por dia", targets.Carbs),
				"gorduras":     fmt.Sprintf("%dg por dia", targets.Fat),
			},
		},
		"plano_alimentar": map[string]any{
			"total_calorias": targets.Calories,
			"refeicoes":      ordered,
		},
		"dicas_gerais": []string{
			fmt.Sprintf("Beba pelo menos %.1f litros de água ao longo do dia", float64(targets.WaterML)/1000),
			"Mantenha os horários das refeições consistentes",
			"Ajuste as porções conforme sua fome e saciedade",
			"Inclua atividade física regular na sua rotina",
		},
		"observacoes_importantes": []string{
			"Este plano foi gerado automaticamente a partir do seu perfil",
			"Consulte um nutricionista para acompanhamento personalizado",
			"Monitore seu progresso e ajuste conforme necessário",
		},
	}
	return json.Marshal(doc)
}

func fallbackWorkout(req Request) (json.RawMessage, error) {
	days := []map[string]any{
		{"dia": "Segunda", "foco": "Peito e tríceps", "exercicios": []string{"Supino reto 4x10", "Supino inclinado 3x12", "Tríceps corda 3x15", "Flexão 3x até a falha"}},
		{"dia": "Terça", "foco": "Costas e bíceps", "exercicios": []string{"Puxada frontal 4x10", "Remada curvada 3x12", "Rosca direta 3x12", "Rosca martelo 3x12"}},
		{"dia": "Quarta", "foco": "Cardio e core", "exercicios": []string{"Caminhada rápida 30min", "Prancha 3x45s", "Abdominal 3x20"}},
		{"dia": "Quinta", "foco": "Pernas", "exercicios": []string{"Agachamento livre 4x10", "Leg press 3x12", "Cadeira extensora 3x15", "Panturrilha 4x20"}},
		{"dia": "Sexta", "foco": "Ombros e abdômen", "exercicios": []string{"Desenvolvimento 4x10", "Elevação lateral 3x12", "Encolhimento 3x15", "Abdominal infra 3x20"}},
	}

	doc := map[string]any{
		"resumo": fmt.Sprintf("Plano de treino semanal para nível %s, alinhado ao seu objetivo.",
			labelOr(activityText, req.Profile.ActivityLevel)),
		"objetivo":     labelOr(goalText, req.Profile.Goal),
		"dias":         days,
		"aquecimento":  "5-10 minutos de cardio leve antes de cada sessão",
		"alongamento":  "Alongue os grupos trabalhados ao final de cada sessão",
		"dicas_gerais": []string{"Descanse 60-90s entre séries", "Aumente a carga progressivamente", "Priorize a execução correta"},
	}
	return json.Marshal(doc)
}
