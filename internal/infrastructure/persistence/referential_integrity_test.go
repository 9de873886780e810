package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/qcdash/backend/internal/domain/catalog"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/identity"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelete_ReferencedRowsAreInUse(t *testing.T) {
	db := setupMigratedTestDB(t)
	ctx := context.Background()

	users := NewGormUserRepository(db)
	products := NewGormProductRepository(db)
	inspections := NewGormInspectionRepository(db)
	defects := NewGormDefectRepository(db)

	inspector := createTestUser(t, users, "ivy", "ivy@example.com", identity.RoleInspector)
	reporter := createTestUser(t, users, "rex", "rex@example.com", identity.RoleInspector)
	product := createTestProduct(t, products, "Bracket", "hardware")

	insp, err := inspection.NewInspection(product.ID, inspector.ID, "B-7", 20, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, inspections.Save(ctx, insp))

	d, err := defect.NewDefect(defect.Report{
		InspectionID: insp.ID,
		ProductID:    product.ID,
		ReportedByID: reporter.ID,
		Type:         defect.TypeFinish,
		Severity:     defect.SeverityMinor,
		Description:  "paint run",
	}, insp.BatchNumber)
	require.NoError(t, err)
	require.NoError(t, defects.Save(ctx, d))

	assert.ErrorIs(t, products.Delete(ctx, product.ID), catalog.ErrProductInUse)
	assert.ErrorIs(t, users.Delete(ctx, inspector.ID), identity.ErrUserInUse)
	assert.ErrorIs(t, users.Delete(ctx, reporter.ID), identity.ErrUserInUse, "defect reporter is referenced")

	// removing the inspection cascades to its defects and frees the references
	require.NoError(t, inspections.Delete(ctx, insp.ID))
	count, err := defects.CountByInspection(ctx, insp.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, products.Delete(ctx, product.ID))
	assert.NoError(t, users.Delete(ctx, inspector.ID))
	assert.NoError(t, users.Delete(ctx, reporter.ID))
}

func TestDelete_UnreferencedRowsOnMigratedSchema(t *testing.T) {
	db := setupMigratedTestDB(t)
	ctx := context.Background()

	users := NewGormUserRepository(db)
	products := NewGormProductRepository(db)

	u := createTestUser(t, users, "una", "una@example.com", identity.RoleManager)
	p := createTestProduct(t, products, "Hinge", "hardware")

	assert.NoError(t, products.Delete(ctx, p.ID))
	assert.NoError(t, users.Delete(ctx, u.ID))
}
