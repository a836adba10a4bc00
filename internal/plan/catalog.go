// Package plan defines the subscription tier catalog and per-tier limits.
package plan

import (
	"sort"

	"github.com/gymmind/coach-api/internal/models"
)

// Unlimited is the sentinel limit meaning no numeric cap applies.
const Unlimited = -1

// Limits defines the monthly consumption caps for a tier.
type Limits struct {
	PlansPerMonth      int // Generated plans per calendar month, -1 = unlimited.
	PDFExportsPerMonth int // PDF exports per calendar month, -1 = unlimited.
}

// Tier describes one subscription plan offering.
type Tier struct {
	Name       string   // Tier identifier (free, basic, premium, pro).
	Title      string   // Display title.
	MonthPrice float64  // Monthly price in the catalog currency.
	Currency   string   // Currency code.
	Features   []string // Marketing feature lines.
	Limits     Limits   // Monthly consumption caps.
	SortOrder  int      // Display ordering weight.
}

var catalog = map[string]Tier{
	models.PlanFree: {
		Name:       models.PlanFree,
		Title:      "Plano Gratuito",
		MonthPrice: 0,
		Currency:   "brl",
		Features:   []string{"3 planos de dieta por mês", "1 export PDF", "Suporte básico"},
		Limits:     Limits{PlansPerMonth: 3, PDFExportsPerMonth: 1},
		SortOrder:  0,
	},
	models.PlanBasic: {
		Name:       models.PlanBasic,
		Title:      "Dieta Personalizada",
		MonthPrice: 9.99,
		Currency:   "brl",
		Features:   []string{"10 planos por mês", "5 exports PDF", "Suporte por email"},
		Limits:     Limits{PlansPerMonth: 10, PDFExportsPerMonth: 5},
		SortOrder:  1,
	},
	models.PlanPremium: {
		Name:       models.PlanPremium,
		Title:      "Dieta + Treino",
		MonthPrice: 14.99,
		Currency:   "brl",
		Features:   []string{"Planos ilimitados", "PDF ilimitado", "Suporte prioritário", "Treinos personalizados"},
		Limits:     Limits{PlansPerMonth: Unlimited, PDFExportsPerMonth: Unlimited},
		SortOrder:  2,
	},
	models.PlanPro: {
		Name:       models.PlanPro,
		Title:      "Acompanhamento Nutricionista",
		MonthPrice: 19.99,
		Currency:   "brl",
		Features:   []string{"Tudo do Premium", "Acompanhamento nutricional", "Consultas por WhatsApp", "Ajustes personalizados"},
		Limits:     Limits{PlansPerMonth: Unlimited, PDFExportsPerMonth: Unlimited},
		SortOrder:  3,
	},
}

// Resolve returns the tier for a name, falling back to the free tier for
// unknown names.
func Resolve(name string) Tier {
	if tier, ok := catalog[name]; ok {
		return tier
	}
	return catalog[models.PlanFree]
}

// Known reports whether the name identifies a catalog tier.
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// LimitsFor returns the monthly limits for a tier name.
func LimitsFor(name string) Limits {
	return Resolve(name).Limits
}

// Catalog returns all tiers in display order.
func Catalog() []Tier {
	tiers := make([]Tier, 0, len(catalog))
	for _, tier := range catalog {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].SortOrder < tiers[j].SortOrder })
	return tiers
}
