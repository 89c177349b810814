package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-pipeline-engine/internal/model"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&model.Pipeline{ID: "b"}))
	require.NoError(t, reg.Register(&model.Pipeline{ID: "a"}))

	assert.ErrorIs(t, reg.Register(&model.Pipeline{ID: "a"}), ErrDuplicate)
	assert.Error(t, reg.Register(&model.Pipeline{}))

	p, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", p.ID)
	_, ok = reg.Get("missing")
	assert.False(t, ok)

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	reg.Freeze()
	assert.ErrorIs(t, reg.Register(&model.Pipeline{ID: "c"}), ErrRegistryFrozen)
	assert.Len(t, reg.List(), 2)
}

func TestInitCatalogRunsOnce(t *testing.T) {
	calls := 0
	populate := func(r *Registry) error {
		calls++
		return r.Register(&model.Pipeline{ID: "only"})
	}

	first, err := InitCatalog(populate)
	require.NoError(t, err)
	second, err := InitCatalog(func(*Registry) error { return errors.New("not called") })
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
	assert.Same(t, first, Catalog())
	assert.ErrorIs(t, Catalog().Register(&model.Pipeline{ID: "late"}), ErrRegistryFrozen)
}
