package inspection

import (
	"context"

	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
)

// TransactionScope runs repository work in one database transaction.
// If fn returns an error everything it wrote is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current transaction
type TransactionalRepositories interface {
	Inspections() inspection.Repository
	Defects() defect.Repository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction
type NoOpTransactionScope struct {
	inspections inspection.Repository
	defects     defect.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(inspections inspection.Repository, defects defect.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{inspections: inspections, defects: defects}
}

// Execute calls fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Inspections returns the inspection repository
func (s *NoOpTransactionScope) Inspections() inspection.Repository {
	return s.inspections
}

// Defects returns the defect repository
func (s *NoOpTransactionScope) Defects() defect.Repository {
	return s.defects
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)
