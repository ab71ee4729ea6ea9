package models

// Lookup tables: static or near-static name to id mappings. The core only
// needs get-id-by-name and list semantics for these; they are seeded, not
// managed through the API.

// Category is a project tag, optionally scoped to a project type.
type Category struct {
	ID            int    `gorm:"primaryKey" json:"-"`
	Category      string `gorm:"uniqueIndex;size:64" json:"name"`
	ProjectTypeID *int   `json:"-"`
}

// Loader is a supported mod loader tag.
type Loader struct {
	ID     int    `gorm:"primaryKey" json:"-"`
	Loader string `gorm:"uniqueIndex;size:64" json:"name"`
}

// GameVersion is a supported game version tag.
type GameVersion struct {
	ID      int    `gorm:"primaryKey" json:"-"`
	Version string `gorm:"uniqueIndex;size:64" json:"name"`
}

// ReleaseChannel maps channel names (release/beta/alpha) to ids.
type ReleaseChannel struct {
	ID      int    `gorm:"primaryKey" json:"-"`
	Channel string `gorm:"uniqueIndex;size:32" json:"name"`
}

// License is a known license with its display name.
type License struct {
	ID    int    `gorm:"primaryKey" json:"-"`
	Short string `gorm:"uniqueIndex;size:64" json:"short"`
	Name  string `gorm:"size:256" json:"name"`
}

// DonationPlatform is a known donation site.
type DonationPlatform struct {
	ID    int    `gorm:"primaryKey" json:"-"`
	Short string `gorm:"uniqueIndex;size:64" json:"short"`
	Name  string `gorm:"size:256" json:"name"`
}

// Status maps project status names to ids.
type Status struct {
	ID     int    `gorm:"primaryKey" json:"-"`
	Status string `gorm:"uniqueIndex;size:64" json:"name"`
}

// SideTypeRow maps side support names to ids.
type SideTypeRow struct {
	ID   int    `gorm:"primaryKey" json:"-"`
	Name string `gorm:"uniqueIndex;size:64" json:"name"`
}

func (SideTypeRow) TableName() string { return "side_types" }

// ProjectType maps project type names (mod, modpack, ...) to ids.
type ProjectType struct {
	ID   int    `gorm:"primaryKey" json:"-"`
	Name string `gorm:"uniqueIndex;size:64" json:"name"`
}

// ReportType maps report reasons to ids.
type ReportType struct {
	ID   int    `gorm:"primaryKey" json:"-"`
	Name string `gorm:"uniqueIndex;size:64" json:"name"`
}
