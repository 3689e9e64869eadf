package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ReelsAutoposter/internal/domain"
)

type stubSource struct {
	name string
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) FetchNext(_ context.Context, cursor int64) (*domain.MediaItem, int64, error) {
	return nil, cursor, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubSource{name: "telegram"})
	reg.Register(stubSource{name: "youtube"})

	src, err := reg.Resolve("youtube")
	require.NoError(t, err)
	require.Equal(t, "youtube", src.Name())
	require.Equal(t, []string{"telegram", "youtube"}, reg.Names())

	_, err = reg.Resolve("tiktok")
	require.ErrorIs(t, err, domain.ErrUnknownSource)
	require.Contains(t, err.Error(), "tiktok")
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubSource{name: "telegram"})
	_, err := reg.Resolve("telegram")
	require.NoError(t, err)
}
