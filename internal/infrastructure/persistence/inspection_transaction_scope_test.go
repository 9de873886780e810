package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	inspectionapp "github.com/qcdash/backend/internal/application/inspection"
	"github.com/qcdash/backend/internal/domain/defect"
	"github.com/qcdash/backend/internal/domain/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInspectionTransactionScope(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	inspections := NewGormInspectionRepository(db)
	defects := NewGormDefectRepository(db)
	scope := NewGormInspectionTransactionScope(db)

	insp := createTestInspection(t, inspections, uuid.New(), "B-9", time.Now().UTC())
	createTestDefect(t, defects, insp.ID, insp.ProductID, defect.SeverityMajor, nil)

	t.Run("rolls back when fn fails", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos inspectionapp.TransactionalRepositories) error {
			if _, err := repos.Defects().DeleteByInspection(ctx, insp.ID); err != nil {
				return err
			}
			return errors.New("inspection delete failed")
		})
		require.Error(t, err)

		count, err := defects.CountByInspection(ctx, insp.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "defects are restored")
	})

	t.Run("commits when fn succeeds", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos inspectionapp.TransactionalRepositories) error {
			if _, err := repos.Defects().DeleteByInspection(ctx, insp.ID); err != nil {
				return err
			}
			return repos.Inspections().Delete(ctx, insp.ID)
		})
		require.NoError(t, err)

		_, err = inspections.FindByID(ctx, insp.ID)
		assert.ErrorIs(t, err, inspection.ErrInspectionNotFound)
		count, err := defects.CountByInspection(ctx, insp.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
