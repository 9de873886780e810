package analytics

import (
	"context"
	"time"
)

// Repository loads the facts the dashboard aggregates
type Repository interface {
	// InspectionFacts returns inspections dated within the query
	InspectionFacts(ctx context.Context, q Query) ([]InspectionFact, error)
	// DefectFacts returns defects created within the query
	DefectFacts(ctx context.Context, q Query) ([]DefectFact, error)
	// InspectionFactsSince returns inspections dated at or after since
	InspectionFactsSince(ctx context.Context, since time.Time) ([]InspectionFact, error)
	// AIDefectFactsSince returns AI-detected defects created at or after since
	AIDefectFactsSince(ctx context.Context, since time.Time) ([]DefectFact, error)
}
