package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockFactsRepository struct {
	mock.Mock
}

func (m *MockFactsRepository) InspectionFacts(ctx context.Context, q analytics.Query) ([]analytics.InspectionFact, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]analytics.InspectionFact), args.Error(1)
}

func (m *MockFactsRepository) DefectFacts(ctx context.Context, q analytics.Query) ([]analytics.DefectFact, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]analytics.DefectFact), args.Error(1)
}

func (m *MockFactsRepository) InspectionFactsSince(ctx context.Context, since time.Time) ([]analytics.InspectionFact, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]analytics.InspectionFact), args.Error(1)
}

func (m *MockFactsRepository) AIDefectFactsSince(ctx context.Context, since time.Time) ([]analytics.DefectFact, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]analytics.DefectFact), args.Error(1)
}

type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*identity.User), args.Error(1)
}

// mapCache stores JSON like the real caches do
type mapCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *mapCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type stubRenderer struct {
	doc    ReportDocument
	pdfErr error
}

func (r *stubRenderer) RenderHTML(doc ReportDocument) ([]byte, error) {
	r.doc = doc
	return []byte("<html>" + doc.Title + "</html>"), nil
}

func (r *stubRenderer) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	if r.pdfErr != nil {
		return nil, r.pdfErr
	}
	return append([]byte("%PDF-"), html...), nil
}

type fixture struct {
	facts    *MockFactsRepository
	products *MockProductLookup
	users    *MockUserLookup
	cache    *mapCache
	renderer *stubRenderer
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		facts:    new(MockFactsRepository),
		products: new(MockProductLookup),
		users:    new(MockUserLookup),
		cache:    newMapCache(),
		renderer: &stubRenderer{},
	}
	f.svc = NewService(f.facts, f.products, f.users, f.cache, time.Minute, f.renderer, zap.NewNop())
	return f
}

func seedDashboard(t *testing.T, f *fixture, q analytics.Query) (uuid.UUID, uuid.UUID) {
	t.Helper()
	product, err := catalog.NewProduct("Gear", "Drive")
	require.NoError(t, err)
	inspector := &identity.User{Name: "lee", Department: "QA"}
	inspector.ID = uuid.New()
	june := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	f.facts.On("InspectionFacts", mock.Anything, q).Return([]analytics.InspectionFact{
		{ProductID: product.ID, InspectorID: inspector.ID, Date: june, Status: "failed", DefectsFound: 3, TotalInspected: 40},
		{ProductID: product.ID, InspectorID: inspector.ID, Date: june.AddDate(0, 0, 1), Status: "completed", DefectsFound: 0, TotalInspected: 20},
	}, nil)
	f.facts.On("DefectFacts", mock.Anything, q).Return([]analytics.DefectFact{
		{ProductID: product.ID, Type: "visual", Severity: "minor", DetectedBy: "manual", CreatedAt: june},
		{ProductID: product.ID, Type: "visual", Severity: "major", DetectedBy: "ai", AIConfidence: 81.5, CreatedAt: june},
		{ProductID: product.ID, Type: "finish", Severity: "minor", DetectedBy: "ai", AIConfidence: 72, CreatedAt: june},
	}, nil)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{*product}, nil)
	f.users.On("FindByIDs", mock.Anything, []uuid.UUID{inspector.ID}).Return([]*identity.User{inspector}, nil)
	return product.ID, inspector.ID
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID, inspectorID := seedDashboard(t, f, analytics.Query{})

	d, err := f.svc.Dashboard(ctx, DashboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, OverallMetricsResponse{
		TotalInspections:    2,
		TotalItemsInspected: 60,
		TotalDefectsFound:   3,
		OverallDefectRate:   "5.00",
	}, d.OverallMetrics)
	assert.Equal(t, []CountResponse{{ID: "visual", Count: 2}, {ID: "finish", Count: 1}}, d.DefectsByType)
	assert.Equal(t, []CountResponse{{ID: "minor", Count: 2}, {ID: "major", Count: 1}}, d.DefectsBySeverity)

	require.Len(t, d.DefectTrend, 2)
	assert.Equal(t, "2024-06-01", d.DefectTrend[0].Period)
	assert.Equal(t, 7.5, d.DefectTrend[0].DefectRate)
	require.Len(t, d.MonthlyTrend, 1)
	assert.Equal(t, "2024-6", d.MonthlyTrend[0].Period)

	require.Len(t, d.ProductDefectRates, 1)
	assert.Equal(t, productID, d.ProductDefectRates[0].ProductID)
	assert.Equal(t, "Gear", d.ProductDefectRates[0].ProductName)
	assert.Equal(t, 5.0, d.ProductDefectRates[0].DefectRate)

	require.Len(t, d.InspectorPerformance, 1)
	perf := d.InspectorPerformance[0]
	assert.Equal(t, inspectorID, perf.InspectorID)
	assert.Equal(t, "lee", perf.InspectorName)
	assert.Equal(t, "QA", perf.InspectorDepartment)
	assert.Equal(t, int64(2), perf.InspectionCount)
	assert.Equal(t, 30.0, perf.AverageInspectionSize)

	assert.Equal(t, AIMetricsResponse{TotalAIDetections: 2, AvgAIConfidence: "76.75"}, d.AIMetrics)
}

func TestService_Dashboard_UsesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	productID := uuid.New()
	q := analytics.Query{Range: shared.DateRange{From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}, ProductID: &productID}
	seedDashboard(t, f, q)

	query := DashboardQuery{From: q.Range.From, ProductID: &productID}
	first, err := f.svc.Dashboard(ctx, query)
	require.NoError(t, err)
	second, err := f.svc.Dashboard(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	f.facts.AssertNumberOfCalls(t, "InspectionFacts", 1)
	_, cached := f.cache.entries[q.CacheKey()]
	assert.True(t, cached)
}

func TestService_Dashboard_FactsError(t *testing.T) {
	f := newFixture()
	f.facts.On("InspectionFacts", mock.Anything, mock.Anything).Return([]analytics.InspectionFact(nil), errors.New("db down"))

	_, err := f.svc.Dashboard(context.Background(), DashboardQuery{})
	assert.Error(t, err)
	assert.Empty(t, f.cache.entries)
}

func TestService_InspectionStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC) // a Wednesday
	f.svc.now = func() time.Time { return now }
	sunday := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	f.facts.On("InspectionFactsSince", ctx, sunday).Return([]analytics.InspectionFact{
		{Date: sunday.Add(9 * time.Hour), Status: "completed"},
		{Date: sunday.Add(10 * time.Hour), Status: "failed"},
		{Date: now, Status: "pending"},
	}, nil)

	r, err := f.svc.InspectionStatus(ctx, "bogus")
	require.NoError(t, err)
	assert.Equal(t, "week", r.Period)
	assert.Equal(t, int64(3), r.Total)
	assert.Equal(t, map[string]int64{"pending": 1, "completed": 1, "failed": 1}, r.StatusCounts)
	require.Len(t, r.DailyBreakdown, 2)
	assert.Equal(t, "2024-06-02", r.DailyBreakdown[0].Date)
	assert.Equal(t, int64(2), r.DailyBreakdown[0].TotalCount)
	assert.Equal(t, "2024-06-05", r.DailyBreakdown[1].Date)
}

func TestService_Report(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seedDashboard(t, f, analytics.Query{})
	f.svc.now = func() time.Time { return time.Date(2024, 6, 5, 15, 4, 5, 0, time.UTC) }

	html, err := f.svc.Report(ctx, DashboardQuery{}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", html.ContentType)
	assert.Equal(t, "quality-report-20240605-150405.html", html.Filename)
	assert.Equal(t, "Quality Control Report", f.renderer.doc.Title)
	assert.Equal(t, "5.00", f.renderer.doc.Dashboard.OverallMetrics.OverallDefectRate)

	pdf, err := f.svc.Report(ctx, DashboardQuery{}, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF-"))
}

func TestService_Report_Errors(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Report(context.Background(), DashboardQuery{}, "docx")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	seedDashboard(t, f, analytics.Query{})
	f.renderer.pdfErr = errors.New("chrome missing")
	_, err = f.svc.Report(context.Background(), DashboardQuery{}, FormatPDF)
	assert.ErrorContains(t, err, "chrome missing")
}

func TestCacheInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.cache.entries["analytics:quality"] = []byte("{}")
	f.cache.entries["other"] = []byte("{}")
	h := NewCacheInvalidationHandler(f.svc, zap.NewNop())

	insp, err := inspection.NewInspection(uuid.New(), uuid.New(), "B-1", 10, time.Now())
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, inspection.NewInspectionDeletedEvent(insp)))

	assert.Equal(t, []string{CachePrefix}, f.cache.invalidated)
	assert.NotContains(t, f.cache.entries, "analytics:quality")
	assert.Contains(t, f.cache.entries, "other")
	assert.Contains(t, h.EventTypes(), inspection.EventTypeInspectionCompleted)
}
