package service

import (
	"sort"

	"github.com/Geometrically/fabricate/internal/models"
)

// selectFeatured picks the versions shown in a project's featured list.
// Explicitly featured versions win; with none flagged, the newest version of
// each (game version, loader) pair stands in; a project whose versions carry
// no tags at all falls back to every version. The result is deduplicated and
// ordered newest first.
func selectFeatured(versions []models.QueryVersion) []models.QueryVersion {
	var picked []models.QueryVersion
	for _, v := range versions {
		if v.Featured {
			picked = append(picked, v)
		}
	}

	if len(picked) == 0 {
		picked = newestPerPair(versions)
	}
	if len(picked) == 0 {
		picked = versions
	}

	picked = dedupeVersions(picked)
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].DatePublished.After(picked[j].DatePublished)
	})
	return picked
}

func newestPerPair(versions []models.QueryVersion) []models.QueryVersion {
	type pair struct {
		gameVersion string
		loader      string
	}
	newest := make(map[pair]models.QueryVersion)
	for _, v := range versions {
		for _, gv := range v.GameVersions {
			for _, loader := range v.Loaders {
				key := pair{gameVersion: gv, loader: loader}
				current, ok := newest[key]
				if !ok || v.DatePublished.After(current.DatePublished) {
					newest[key] = v
				}
			}
		}
	}
	out := make([]models.QueryVersion, 0, len(newest))
	for _, v := range newest {
		out = append(out, v)
	}
	return out
}

func dedupeVersions(versions []models.QueryVersion) []models.QueryVersion {
	seen := make(map[models.ID]bool, len(versions))
	out := versions[:0:0]
	for _, v := range versions {
		if !seen[v.ID] {
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	return out
}
