// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"

	"github.com/Geometrically/fabricate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	categories = []string{
		"technology", "adventure", "magic", "utility", "decoration",
		"library", "worldgen", "storage", "food", "equipment",
		"misc", "cursed", "fabric", "forge",
	}

	loaders = []string{"fabric", "forge", "quilt"}

	gameVersions = []string{
		"1.12.2", "1.14.4", "1.15.2", "1.16.1", "1.16.2", "1.16.3",
		"1.16.4", "1.16.5", "1.17", "1.17.1", "1.18", "1.18.1",
		"1.18.2", "1.19", "1.19.2", "1.19.4", "1.20", "1.20.1",
	}

	channels = []string{"release", "beta", "alpha"}

	licenses = map[string]string{
		"mit":       "MIT License",
		"apache":    "Apache License 2.0",
		"gpl-3":     "GNU General Public License v3",
		"lgpl-3":    "GNU Lesser General Public License v3",
		"mpl-2":     "Mozilla Public License 2.0",
		"bsd-2":     "BSD 2-Clause License",
		"bsd-3":     "BSD 3-Clause License",
		"unlicense": "The Unlicense",
		"arr":       "All Rights Reserved",
		"custom":    "Custom License",
	}

	donationPlatforms = map[string]string{
		"patreon":  "Patreon",
		"bmac":     "Buy Me A Coffee",
		"paypal":   "PayPal",
		"github":   "GitHub Sponsors",
		"ko-fi":    "Ko-fi",
		"other":    "Other",
	}

	statuses = []models.ProjectStatus{
		models.StatusDraft, models.StatusProcessing, models.StatusApproved,
		models.StatusRejected, models.StatusUnlisted,
	}

	sideTypes = []models.SideType{
		models.SideRequired, models.SideOptional,
		models.SideUnsupported, models.SideUnknown,
	}

	projectTypes = []string{"mod", "modpack"}

	reportTypes = []string{
		"spam", "copyright", "inappropriate", "malicious", "name-squatting", "other",
	}
)

// SeedLookups inserts the static lookup rows the application expects. It is
// idempotent: existing rows are left untouched.
func SeedLookups(db *gorm.DB) error {
	onConflict := clause.OnConflict{DoNothing: true}

	for _, c := range categories {
		if err := db.Clauses(onConflict).Create(&models.Category{Category: c}).Error; err != nil {
			return fmt.Errorf("seeding category %q: %w", c, err)
		}
	}
	for _, l := range loaders {
		if err := db.Clauses(onConflict).Create(&models.Loader{Loader: l}).Error; err != nil {
			return fmt.Errorf("seeding loader %q: %w", l, err)
		}
	}
	for _, v := range gameVersions {
		if err := db.Clauses(onConflict).Create(&models.GameVersion{Version: v}).Error; err != nil {
			return fmt.Errorf("seeding game version %q: %w", v, err)
		}
	}
	for _, ch := range channels {
		if err := db.Clauses(onConflict).Create(&models.ReleaseChannel{Channel: ch}).Error; err != nil {
			return fmt.Errorf("seeding channel %q: %w", ch, err)
		}
	}
	for short, name := range licenses {
		if err := db.Clauses(onConflict).Create(&models.License{Short: short, Name: name}).Error; err != nil {
			return fmt.Errorf("seeding license %q: %w", short, err)
		}
	}
	for short, name := range donationPlatforms {
		if err := db.Clauses(onConflict).Create(&models.DonationPlatform{Short: short, Name: name}).Error; err != nil {
			return fmt.Errorf("seeding donation platform %q: %w", short, err)
		}
	}
	for _, st := range statuses {
		if err := db.Clauses(onConflict).Create(&models.Status{Status: string(st)}).Error; err != nil {
			return fmt.Errorf("seeding status %q: %w", st, err)
		}
	}
	for _, side := range sideTypes {
		if err := db.Clauses(onConflict).Create(&models.SideTypeRow{Name: string(side)}).Error; err != nil {
			return fmt.Errorf("seeding side type %q: %w", side, err)
		}
	}
	for _, pt := range projectTypes {
		if err := db.Clauses(onConflict).Create(&models.ProjectType{Name: pt}).Error; err != nil {
			return fmt.Errorf("seeding project type %q: %w", pt, err)
		}
	}
	for _, rt := range reportTypes {
		if err := db.Clauses(onConflict).Create(&models.ReportType{Name: rt}).Error; err != nil {
			return fmt.Errorf("seeding report type %q: %w", rt, err)
		}
	}

	return nil
}
