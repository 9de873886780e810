// Package analytics serves the quality dashboard, the inspection status
// report and the rendered dashboard report.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qcdash/backend/internal/domain/analytics"
	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CachePrefix scopes every cached dashboard
const CachePrefix = "analytics:"

const topProducts = 5

var (
	ErrInvalidFormat     = shared.NewDomainError("INVALID_FORMAT", "Format must be html or pdf")
	ErrReportUnavailable = shared.NewDomainError("REPORT_UNAVAILABLE", "Report rendering is not configured")
)

// Cache stores computed dashboards
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// ProductLookup resolves product names
type ProductLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
}

// UserLookup resolves inspector names and departments
type UserLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error)
}

// ReportRenderer turns a report document into HTML and HTML into PDF
type ReportRenderer interface {
	RenderHTML(doc ReportDocument) ([]byte, error)
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Service computes analytics
type Service struct {
	facts    analytics.Repository
	products ProductLookup
	users    UserLookup
	cache    Cache
	ttl      time.Duration
	renderer ReportRenderer
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new analytics service. cache and renderer may be nil.
func NewService(
	facts analytics.Repository,
	products ProductLookup,
	users UserLookup,
	cache Cache,
	ttl time.Duration,
	renderer ReportRenderer,
	logger *zap.Logger,
) *Service {
	return &Service{
		facts:    facts,
		products: products,
		users:    users,
		cache:    cache,
		ttl:      ttl,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard returns the quality metrics for the query, from cache when fresh
func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (*DashboardResponse, error) {
	query := q.toDomain()
	key := query.CacheKey()
	if s.cache != nil {
		var cached DashboardResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Analytics cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	inspections, err := s.facts.InspectionFacts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load inspection facts: %w", err)
	}
	defects, err := s.facts.DefectFacts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load defect facts: %w", err)
	}

	dashboard := toDashboard(
		analytics.Overall(inspections),
		analytics.CountBy(defects, analytics.ByType),
		analytics.CountBy(defects, analytics.BySeverity),
		analytics.DailyTrend(inspections),
		analytics.MonthlyTrend(inspections),
		analytics.TopProductRates(inspections, s.productNames(ctx, inspections), topProducts),
		analytics.InspectorPerformances(inspections, s.inspectors(ctx, inspections)),
		analytics.AI(defects),
	)

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
			s.logger.Warn("Analytics cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return dashboard, nil
}

// InspectionStatus breaks down inspections since the start of the period
func (s *Service) InspectionStatus(ctx context.Context, period string) (*InspectionStatusResponse, error) {
	p := analytics.ParsePeriod(period)
	facts, err := s.facts.InspectionFactsSince(ctx, p.Start(s.now()))
	if err != nil {
		return nil, fmt.Errorf("load inspection facts: %w", err)
	}
	return toStatusReport(analytics.BuildStatusReport(p, facts)), nil
}

// Report renders the dashboard for the query as HTML or PDF
func (s *Service) Report(ctx context.Context, q DashboardQuery, format string) (*RenderedReport, error) {
	if format == "" {
		format = FormatHTML
	}
	if format != FormatHTML && format != FormatPDF {
		return nil, ErrInvalidFormat
	}
	if s.renderer == nil {
		return nil, ErrReportUnavailable
	}

	dashboard, err := s.Dashboard(ctx, q)
	if err != nil {
		return nil, err
	}
	doc := ReportDocument{
		Title:       "Quality Control Report",
		GeneratedAt: s.now(),
		From:        q.From,
		To:          q.To,
		Dashboard:   dashboard,
	}
	if q.ProductID != nil {
		p, err := s.products.FindByID(ctx, *q.ProductID)
		if err != nil {
			return nil, err
		}
		doc.ProductName = p.Name
	}

	html, err := s.renderer.RenderHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	stamp := doc.GeneratedAt.Format("20060102-150405")
	if format == FormatHTML {
		return &RenderedReport{ContentType: "text/html; charset=utf-8", Filename: "quality-report-" + stamp + ".html", Body: html}, nil
	}

	pdf, err := s.renderer.RenderPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	s.logger.Info("Quality report rendered", zap.Int("bytes", len(pdf)))
	return &RenderedReport{ContentType: "application/pdf", Filename: "quality-report-" + stamp + ".pdf", Body: pdf}, nil
}

// Invalidate drops every cached dashboard
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidatePrefix(ctx, CachePrefix)
}

func (s *Service) productNames(ctx context.Context, facts []analytics.InspectionFact) map[uuid.UUID]string {
	ids := uniqueIDs(facts, func(f analytics.InspectionFact) uuid.UUID { return f.ProductID })
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load product names", zap.Error(err))
		return names
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names
}

func (s *Service) inspectors(ctx context.Context, facts []analytics.InspectionFact) map[uuid.UUID]analytics.Inspector {
	ids := uniqueIDs(facts, func(f analytics.InspectionFact) uuid.UUID { return f.InspectorID })
	people := make(map[uuid.UUID]analytics.Inspector, len(ids))
	if len(ids) == 0 {
		return people
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load inspectors", zap.Error(err))
		return people
	}
	for _, u := range users {
		people[u.ID] = analytics.Inspector{Name: u.Name, Department: u.Department}
	}
	return people
}

func uniqueIDs(facts []analytics.InspectionFact, id func(analytics.InspectionFact) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	out := make([]uuid.UUID, 0)
	for _, f := range facts {
		v := id(f)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
