package mailer

import (
	"fmt"

	"github.com/gymmind/coach-api/internal/models"
)

// PlanReady builds the notification sent after a plan is generated.
func PlanReady(account *models.Account, planType string) Message {
	kind := "plano de dieta"
	if planType == models.PlanTypeWorkout {
		kind = "plano de treino"
	}
	return Message{
		To:      account.Email,
		Subject: "Seu Plano Personalizado GymMind está pronto!",
		Body: fmt.Sprintf("Olá %s,\n\nSeu %s personalizado acabou de ficar pronto. Acesse sua conta para visualizar e exportar em PDF.\n\nBons treinos!\nEquipe GymMind",
			account.Name, kind),
	}
}

// Welcome builds the registration notification.
func Welcome(account *models.Account) Message {
	return Message{
		To:      account.Email,
		Subject: "Bem-vindo ao GymMind!",
		Body: fmt.Sprintf("Olá %s,\n\nSua conta foi criada com sucesso no plano gratuito. Gere seu primeiro plano personalizado quando quiser.\n\nEquipe GymMind",
			account.Name),
	}
}
