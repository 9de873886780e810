// Package report renders the analytics dashboard as an HTML or PDF document.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/qcdash/backend/internal/application/analytics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const dashboardTemplate = "dashboard.html.tmpl"

// TemplateEngine renders report documents with html/template
type TemplateEngine struct {
	tmpl *template.Template
}

// NewTemplateEngine parses the embedded report templates
func NewTemplateEngine() (*TemplateEngine, error) {
	tmpl, err := template.New(dashboardTemplate).Funcs(funcMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report templates: %w", err)
	}
	return &TemplateEngine{tmpl: tmpl}, nil
}

// RenderHTML executes the dashboard template for doc
func (e *TemplateEngine) RenderHTML(doc analytics.ReportDocument) ([]byte, error) {
	if doc.Dashboard == nil {
		return nil, fmt.Errorf("report document has no dashboard")
	}
	var buf bytes.Buffer
	if err := e.tmpl.ExecuteTemplate(&buf, dashboardTemplate, doc); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,
		"percent":        formatPercent,
		"title":          titleCase,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// titleCase turns "surface_finish" into "Surface Finish"
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
