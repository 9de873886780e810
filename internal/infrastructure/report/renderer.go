package report

import (
	"context"

	"github.com/qcdash/backend/internal/application/analytics"
)

// PDFPrinter turns an HTML document into PDF bytes
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer satisfies analytics.ReportRenderer with the template engine and a PDF printer
type Renderer struct {
	engine  *TemplateEngine
	printer PDFPrinter
}

// NewRenderer combines engine and printer. A nil printer disables PDF output.
func NewRenderer(engine *TemplateEngine, printer PDFPrinter) *Renderer {
	return &Renderer{engine: engine, printer: printer}
}

func (r *Renderer) RenderHTML(doc analytics.ReportDocument) ([]byte, error) {
	return r.engine.RenderHTML(doc)
}

func (r *Renderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	if r.printer == nil {
		return nil, analytics.ErrReportUnavailable
	}
	return r.printer.PrintPDF(ctx, html)
}

var _ analytics.ReportRenderer = (*Renderer)(nil)
