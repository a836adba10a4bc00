package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/gymmind/coach-api/internal/models"
)

// HTMLRenderer renders plan documents into a print-ready A4 HTML page.
type HTMLRenderer struct {
	tmpl  *template.Template
	nowFn func() time.Time
}

// NewHTMLRenderer constructs the default HTML renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		tmpl:  template.Must(template.New("plan").Parse(planTemplate)),
		nowFn: time.Now,
	}
}

// templateData is what the plan template renders.
type templateData struct {
	Title       string
	AccountName string
	PlanType    string
	Date        string
	Summary     string
	Sections    []section
}

// section is one labelled block of the rendered document.
type section struct {
	Label string
	Lines []string
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(_ context.Context, account *models.Account, plan *models.GeneratedPlan) (*Document, error) {
	var content map[string]any
	if errUnmarshal := json.Unmarshal(plan.Content, &content); errUnmarshal != nil {
		return nil, fmt.Errorf("renderer: decode plan content: %w", errUnmarshal)
	}

	data := templateData{
		Title:       "GymMind — Plano de Dieta",
		AccountName: account.Name,
		PlanType:    "Dieta",
		Date:        r.nowFn().Format("02/01/2006"),
		Summary:     stringField(content, "resumo"),
	}
	if plan.Type == models.PlanTypeWorkout {
		data.Title = "GymMind — Plano de Treino"
		data.PlanType = "Treino"
	}
	data.Sections = buildSections(content)

	var buf bytes.Buffer
	if errExec := r.tmpl.Execute(&buf, data); errExec != nil {
		return nil, fmt.Errorf("renderer: execute template: %w", errExec)
	}
	return &Document{
		Filename:    fmt.Sprintf("gymmind-%s-%s.html", plan.Type, plan.ID),
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// buildSections flattens the free-form plan document into labelled line
// blocks. The document shape is provider-defined, so rendering is tolerant:
// unknown value shapes fall back to compact JSON.
func buildSections(content map[string]any) []section {
	var sections []section
	for _, key := range []string{"objetivos", "plano_alimentar", "dias", "dicas_gerais", "observacoes_importantes", "aquecimento", "alongamento"} {
		value, ok := content[key]
		if !ok {
			continue
		}
		sections = append(sections, section{Label: sectionLabel(key), Lines: flatten(value)})
	}
	return sections
}

// sectionLabel maps document keys to display headings.
func sectionLabel(key string) string {
	labels := map[string]string{
		"objetivos":               "Objetivos",
		"plano_alimentar":         "Plano Alimentar",
		"dias":                    "Treinos da Semana",
		"dicas_gerais":            "Dicas Gerais",
		"observacoes_importantes": "Observações Importantes",
		"aquecimento":             "Aquecimento",
		"alongamento":             "Alongamento",
	}
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}

// flatten renders an arbitrary JSON value as display lines.
func flatten(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		var lines []string
		for _, item := range v {
			lines = append(lines, flatten(item)...)
		}
		return lines
	case map[string]any:
		var lines []string
		for key, item := range v {
			sub := flatten(item)
			if len(sub) == 1 {
				lines = append(lines, fmt.Sprintf("%s: %s", key, sub[0]))
				continue
			}
			lines = append(lines, key+":")
			lines = append(lines, sub...)
		}
		return lines
	case float64:
		if v == float64(int64(v)) {
			return []string{fmt.Sprintf("%d", int64(v))}
		}
		return []string{fmt.Sprintf("%.1f", v)}
	default:
		raw, errMarshal := json.Marshal(v)
		if errMarshal != nil {
			return nil
		}
		return []string{string(raw)}
	}
}

const planTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  @page { size: A4; margin: 20mm; }
  body { font-family: Helvetica, Arial, sans-serif; color: #1f2430; margin: 0; }
  header { border-bottom: 3px solid #2e7d32; padding-bottom: 12px; margin-bottom: 24px; }
  h1 { font-size: 22px; margin: 0 0 4px; color: #2e7d32; }
  .meta { font-size: 12px; color: #5a6270; }
  .summary { background: #f1f8e9; border-radius: 6px; padding: 12px 16px; font-size: 13px; margin-bottom: 24px; }
  section { margin-bottom: 20px; page-break-inside: avoid; }
  h2 { font-size: 15px; color: #2e7d32; border-bottom: 1px solid #dfe3e8; padding-bottom: 4px; }
  li { font-size: 12px; line-height: 1.6; }
  footer { margin-top: 32px; font-size: 10px; color: #8a91a0; text-align: center; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.AccountName}} &middot; {{.PlanType}} &middot; {{.Date}}</div>
</header>
{{if .Summary}}<div class="summary">{{.Summary}}</div>{{end}}
{{range .Sections}}
<section>
  <h2>{{.Label}}</h2>
  <ul>
  {{range .Lines}}<li>{{.}}</li>
  {{end}}</ul>
</section>
{{end}}
<footer>Documento gerado automaticamente. Consulte um profissional para acompanhamento personalizado.</footer>
</body>
</html>
`

// stringField reads a top-level string field from the document.
func stringField(content map[string]any, key string) string {
	if v, ok := content[key].(string); ok {
		return v
	}
	return ""
}
