package generator

import (
	"fmt"
	"strings"
)

// activityText maps activity levels to the prompt wording.
var activityText = map[string]string{
	"sedentario":    "Sedentário (nenhum exercício)",
	"leve":          "Leve (1-3 vezes por semana)",
	"moderado":      "Moderado (3-5 vezes por semana)",
	"intenso":       "Intenso (6-7 vezes por semana)",
	"muito-intenso": "Muito Intenso (2x por dia ou atleta)",
}

// goalText maps goal identifiers to the prompt wording.
var goalText = map[string]string{
	"emagrecer":       "Emagrecer",
	"emagrecer-massa": "Emagrecer e Ganhar Massa Muscular",
	"definicao-massa": "Definição Muscular e Ganho de Massa",
	"ganhar-massa":    "Ganhar Massa Muscular",
}

// BuildPrompt renders the user prompt sent to the plan provider.
func BuildPrompt(req Request) string {
	var b strings.Builder

	if req.Kind == KindWorkout {
		b.WriteString("Crie um plano de treino semanal personalizado, detalhado e prático.\n\n")
	} else {
		b.WriteString("Crie um plano alimentar personalizado, detalhado e prático.\n\n")
	}

	p := req.Profile
	b.WriteString("DADOS PESSOAIS:\n")
	fmt.Fprintf(&b, "- Gênero: %s\n", p.Sex)
	fmt.Fprintf(&b, "- Idade: %d anos\n", p.Age)
	fmt.Fprintf(&b, "- Peso: %.1fkg\n", p.WeightKg)
	fmt.Fprintf(&b, "- Altura: %.0fcm\n", p.HeightCm)
	fmt.Fprintf(&b, "- Objetivo: %s\n", labelOr(goalText, p.Goal))
	fmt.Fprintf(&b, "- Rotina de atividade: %s\n", labelOr(activityText, p.ActivityLevel))
	if len(p.Restrictions) > 0 {
		fmt.Fprintf(&b, "- Restrições: %s\n", strings.Join(p.Restrictions, ", "))
	}
	if strings.TrimSpace(p.Notes) != "" {
		fmt.Fprintf(&b, "- Observações: %s\n", p.Notes)
	}

	if req.Kind == KindDiet && req.Targets != nil {
		t := req.Targets
		b.WriteString("\nMETAS CALCULADAS:\n")
		fmt.Fprintf(&b, "- Meta calórica: %d kcal/dia\n", t.Calories)
		fmt.Fprintf(&b, "- Proteínas: %dg/dia\n", t.Protein)
		fmt.Fprintf(&b, "- Carboidratos: %dg/dia\n", t.Carbs)
		fmt.Fprintf(&b, "- Gorduras: %dg/dia\n", t.Fat)
		fmt.Fprintf(&b, "- Água: %dml/dia\n", t.WaterML)
	}

	b.WriteString("\nINSTRUÇÕES:\n")
	if req.Kind == KindWorkout {
		b.WriteString("1. Estruture a semana em dias de treino com exercícios, séries, repetições e descanso\n")
		b.WriteString("2. Ajuste a intensidade à experiência e rotina informadas\n")
		b.WriteString("3. Inclua aquecimento e alongamento\n")
		b.WriteString("4. Use linguagem brasileira e seja motivacional\n")
	} else {
		b.WriteString("1. Distribua as calorias em 5 refeições ao longo do dia\n")
		b.WriteString("2. Inclua quantidades específicas (gramas, unidades, colheres)\n")
		b.WriteString("3. Ajuste as porções para bater a meta calórica\n")
		b.WriteString("4. Respeite as restrições alimentares informadas\n")
		b.WriteString("5. Use linguagem brasileira e seja motivacional\n")
	}
	b.WriteString("\nResponda com um único objeto JSON válido, sem texto adicional.")

	return b.String()
}

// labelOr resolves an identifier to its display label, keeping the raw value
// for unknown identifiers.
func labelOr(m map[string]string, key string) string {
	if label, ok := m[key]; ok {
		return label
	}
	if strings.TrimSpace(key) == "" {
		return "Não informado"
	}
	return key
}
