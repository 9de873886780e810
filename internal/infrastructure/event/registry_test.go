package event

import (
	"context"
	"testing"

	"github.com/qcdash/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	types []string
}

func (h *recordingHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (h *recordingHandler) EventTypes() []string                           { return h.types }

func TestHandlerRegistry_Register(t *testing.T) {
	registry := NewHandlerRegistry()
	h := &recordingHandler{}

	registry.Register(h, "DefectReported", "InspectionCompleted")
	registry.Register(h, "DefectReported")

	assert.Len(t, registry.GetHandlers("DefectReported"), 1)
	assert.Len(t, registry.GetHandlers("InspectionCompleted"), 1)
	assert.Empty(t, registry.GetHandlers("ProductCreated"))
	assert.Equal(t, []string{"DefectReported", "InspectionCompleted"}, registry.EventTypes())
}

func TestHandlerRegistry_WildcardFollowsTyped(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := &recordingHandler{}
	all := &recordingHandler{}

	registry.Register(all)
	registry.Register(typed, "DefectReported")

	handlers := registry.GetHandlers("DefectReported")
	assert.Equal(t, []shared.EventHandler{typed, all}, handlers)
	assert.Equal(t, []shared.EventHandler{all}, registry.GetHandlers("Other"))
	assert.Equal(t, []string{"DefectReported"}, registry.EventTypes())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := &recordingHandler{}
	b := &recordingHandler{}

	registry.Register(a, "DefectReported")
	registry.Register(b, "DefectReported")
	registry.Register(a)

	registry.Unregister(a)

	assert.Equal(t, []shared.EventHandler{b}, registry.GetHandlers("DefectReported"))
	registry.Unregister(b)
	assert.Empty(t, registry.GetHandlers("DefectReported"))
	assert.Empty(t, registry.EventTypes())
}
