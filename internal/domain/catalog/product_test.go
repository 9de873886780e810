package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("trims name and derives key", func(t *testing.T) {
		p, err := NewProduct("  Widget A  ", "Electronics")
		require.NoError(t, err)
		assert.Equal(t, "Widget A", p.Name)
		assert.Equal(t, "widget a", p.NameKey)
		assert.Equal(t, "Electronics", p.Category)
		assert.NotNil(t, p.Specifications)
		assert.Len(t, p.GetDomainEvents(), 1)
	})

	t.Run("requires name", func(t *testing.T) {
		_, err := NewProduct("  ", "Electronics")
		assert.Error(t, err)
	})

	t.Run("requires category", func(t *testing.T) {
		_, err := NewProduct("Widget", "")
		assert.Error(t, err)
	})
}

func TestNameKeyFor(t *testing.T) {
	// composed and decomposed forms of the same name collide
	assert.Equal(t, NameKeyFor("Caf\u00e9"), NameKeyFor("Cafe\u0301"))
	assert.Equal(t, NameKeyFor("STRASSE"), NameKeyFor("strasse"))
}

func TestProduct_Update(t *testing.T) {
	p, err := NewProduct("Widget", "Tools")
	require.NoError(t, err)

	require.NoError(t, p.Update("", "", "A sturdy widget"))
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "Tools", p.Category)
	assert.Equal(t, "A sturdy widget", p.Description)

	require.NoError(t, p.Update("Gadget", "Gear", ""))
	assert.Equal(t, "Gadget", p.Name)
	assert.Equal(t, "gadget", p.NameKey)
}

func TestProduct_SetImage(t *testing.T) {
	p, err := NewProduct("Widget", "Tools")
	require.NoError(t, err)

	assert.Empty(t, p.SetImage("https://cdn/x.png", "quality-control/products/x.png"))
	prev := p.SetImage("https://cdn/y.png", "quality-control/products/y.png")
	assert.Equal(t, "quality-control/products/x.png", prev)
	assert.Equal(t, "https://cdn/y.png", p.ImageURL)
}

func TestProduct_SetSpecifications(t *testing.T) {
	p, err := NewProduct("Widget", "Tools")
	require.NoError(t, err)

	p.SetSpecifications(map[string]string{" weight ": " 2kg ", "": "skip"})
	assert.Equal(t, map[string]string{"weight": "2kg"}, p.Specifications)
}
