package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/application/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() analytics.ReportDocument {
	return analytics.ReportDocument{
		Title:       "Quality Control Report",
		GeneratedAt: time.Date(2024, 6, 4, 9, 30, 0, 0, time.UTC),
		From:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ProductName: "Widget <A>",
		Dashboard: &analytics.DashboardResponse{
			OverallMetrics: analytics.OverallMetricsResponse{
				TotalInspections:    3,
				TotalItemsInspected: 300,
				TotalDefectsFound:   15,
				OverallDefectRate:   "5.00",
			},
			DefectsByType: []analytics.CountResponse{{ID: "surface_finish", Count: 9}},
			ProductDefectRates: []analytics.ProductRateResponse{
				{ProductID: uuid.New(), ProductName: "Widget", TotalInspected: 300, TotalDefects: 15, DefectRate: 5},
			},
			DefectTrend: []analytics.TrendResponse{{Period: "2024-06-03", InspectionCount: 1, DefectRate: 7.5}},
			AIMetrics:   analytics.AIMetricsResponse{TotalAIDetections: 2, AvgAIConfidence: "76.75"},
		},
	}
}

func TestTemplateEngine_RenderHTML(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	out, err := engine.RenderHTML(sampleDocument())
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<title>Quality Control Report</title>")
	assert.Contains(t, html, "Generated 2024-06-04 09:30 UTC")
	assert.Contains(t, html, "from 2024-06-01")
	assert.NotContains(t, html, "to 0001")
	assert.Contains(t, html, "Widget &lt;A&gt;", "product name is escaped")
	assert.Contains(t, html, "5.00%")
	assert.Contains(t, html, "Surface Finish")
	assert.Contains(t, html, "7.50%")
	assert.Contains(t, html, "avg 76.75%")
	assert.Contains(t, html, "No defects", "empty severity table")
}

func TestTemplateEngine_RenderHTML_NoDashboard(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	_, err = engine.RenderHTML(analytics.ReportDocument{Title: "x"})
	assert.Error(t, err)
}

func TestBuildPrintParams_A4(t *testing.T) {
	params := buildPrintParams()

	assert.InDelta(t, 8.27, params.PaperWidth, 0.01)
	assert.InDelta(t, 11.69, params.PaperHeight, 0.01)
	assert.InDelta(t, mmToInches(marginMM), params.MarginTop, 0.001)
	assert.InDelta(t, mmToInches(marginMM), params.MarginLeft, 0.001)
	assert.True(t, params.PrintBackground)
	assert.False(t, params.Landscape)
}

func TestNewChromedpPrinter_Defaults(t *testing.T) {
	p := NewChromedpPrinter(ChromedpConfig{})
	defer p.Close()

	assert.Equal(t, defaultChromeTimeout, p.config.Timeout)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.allocCtx)
}

func TestChromedpPrinter_RejectsEmptyHTML(t *testing.T) {
	p := NewChromedpPrinter(ChromedpConfig{})
	defer p.Close()

	_, err := p.PrintPDF(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRenderFailed)
}

type stubPrinter struct {
	got []byte
}

func (s *stubPrinter) PrintPDF(_ context.Context, html []byte) ([]byte, error) {
	s.got = html
	return []byte("%PDF-1.4"), nil
}

func TestRenderer(t *testing.T) {
	engine, err := NewTemplateEngine()
	require.NoError(t, err)

	t.Run("pdf goes through the printer", func(t *testing.T) {
		printer := &stubPrinter{}
		r := NewRenderer(engine, printer)

		html, err := r.RenderHTML(sampleDocument())
		require.NoError(t, err)
		pdf, err := r.RenderPDF(context.Background(), html)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(pdf))
		assert.Equal(t, html, printer.got)
	})

	t.Run("no printer", func(t *testing.T) {
		r := NewRenderer(engine, nil)
		_, err := r.RenderPDF(context.Background(), []byte("<html></html>"))
		assert.ErrorIs(t, err, analytics.ErrReportUnavailable)
	})
}
