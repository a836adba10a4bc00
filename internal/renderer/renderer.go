// Package renderer turns stored plan documents into downloadable files. The
// default implementation renders a print-ready HTML document; clients print
// it to PDF on their side.
package renderer

import (
	"context"

	"github.com/gymmind/coach-api/internal/models"
)

// Document is a rendered, downloadable plan export.
type Document struct {
	Filename    string // Suggested download filename.
	ContentType string // MIME type of Data.
	Data        []byte // Rendered document bytes.
}

// Renderer produces an export document for a generated plan.
type Renderer interface {
	Render(ctx context.Context, account *models.Account, plan *models.GeneratedPlan) (*Document, error)
}
