package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFoundError("Product"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
}

func TestBaseAggregateRoot_PullDomainEvents(t *testing.T) {
	root := NewBaseAggregateRoot()
	evt := NewBaseDomainEvent("Thing", "Aggregate", uuid.New())
	root.AddDomainEvent(&evt)

	events := root.PullDomainEvents()
	assert.Len(t, events, 1)
	assert.Empty(t, root.GetDomainEvents())
}

func TestBaseAggregateRoot_IncrementVersion(t *testing.T) {
	root := NewBaseAggregateRoot()
	before := root.UpdatedAt
	time.Sleep(time.Millisecond)
	root.IncrementVersion()
	assert.Equal(t, 2, root.Version)
	assert.True(t, root.UpdatedAt.After(before))
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestDateRange_Contains(t *testing.T) {
	now := time.Now()
	r := DateRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
	assert.True(t, r.Contains(now))
	assert.False(t, r.Contains(now.Add(2*time.Hour)))
	assert.True(t, DateRange{}.Contains(now))
	assert.True(t, DateRange{}.IsZero())
}

func TestFilter_Offset(t *testing.T) {
	f := DefaultFilter()
	f.Page = 3
	assert.Equal(t, 20, f.Offset())
	f.Page = 0
	assert.Equal(t, 0, f.Offset())
}
