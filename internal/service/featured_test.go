package service

import (
	"testing"
	"time"

	"github.com/Geometrically/fabricate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qv(id models.ID, featured bool, published time.Time, gameVersions, loaders []string) models.QueryVersion {
	return models.QueryVersion{
		Version: models.Version{
			ID:            id,
			Featured:      featured,
			DatePublished: published,
		},
		GameVersions: gameVersions,
		Loaders:      loaders,
	}
}

func TestSelectFeaturedExplicitFlagsWin(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	versions := []models.QueryVersion{
		qv(1, false, base, []string{"1.19"}, []string{"fabric"}),
		qv(2, true, base.Add(time.Hour), []string{"1.19"}, []string{"fabric"}),
		qv(3, true, base.Add(2*time.Hour), []string{"1.20"}, []string{"forge"}),
	}

	picked := selectFeatured(versions)
	require.Len(t, picked, 2)
	assert.Equal(t, models.ID(3), picked[0].ID)
	assert.Equal(t, models.ID(2), picked[1].ID)
}

func TestSelectFeaturedFallsBackToNewestPerPair(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	versions := []models.QueryVersion{
		qv(1, false, base, []string{"1.19"}, []string{"fabric"}),
		qv(2, false, base.Add(time.Hour), []string{"1.19"}, []string{"fabric"}),
		qv(3, false, base.Add(2*time.Hour), []string{"1.20"}, []string{"forge"}),
	}

	picked := selectFeatured(versions)
	require.Len(t, picked, 2)
	// Version 1 is shadowed by version 2 on the (1.19, fabric) pair.
	assert.Equal(t, models.ID(3), picked[0].ID)
	assert.Equal(t, models.ID(2), picked[1].ID)
}

func TestSelectFeaturedDeduplicatesAcrossPairs(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	versions := []models.QueryVersion{
		qv(1, false, base, []string{"1.19", "1.20"}, []string{"fabric", "forge"}),
	}

	picked := selectFeatured(versions)
	// One version covering four pairs still appears once.
	require.Len(t, picked, 1)
	assert.Equal(t, models.ID(1), picked[0].ID)
}

func TestSelectFeaturedUntaggedVersionsFallBackToAll(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	versions := []models.QueryVersion{
		qv(1, false, base, nil, nil),
		qv(2, false, base.Add(time.Hour), nil, nil),
	}

	picked := selectFeatured(versions)
	require.Len(t, picked, 2)
	assert.Equal(t, models.ID(2), picked[0].ID)
	assert.Equal(t, models.ID(1), picked[1].ID)
}

func TestSelectFeaturedEmptyInput(t *testing.T) {
	assert.Empty(t, selectFeatured(nil))
}
