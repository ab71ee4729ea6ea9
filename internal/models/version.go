package models

import "time"

// Version is a single release of a project.
type Version struct {
	ID            ID        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProjectID     ID        `gorm:"index" json:"project_id"`
	AuthorID      ID        `json:"author_id"`
	Name          string    `gorm:"size:256" json:"name"`
	VersionNumber string    `gorm:"size:256" json:"version_number"`
	Changelog     string    `json:"changelog"`
	ChangelogURL  *string   `gorm:"size:2048" json:"changelog_url"`
	ChannelID     int       `json:"-"`
	Featured      bool      `json:"featured"`
	Downloads     int64     `json:"downloads"`
	DatePublished time.Time `json:"date_published"`
}

// VersionFile is one downloadable artifact of a version. At most one file
// per version carries the primary flag.
type VersionFile struct {
	ID        ID     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	VersionID ID     `gorm:"index" json:"-"`
	URL       string `gorm:"size:2048" json:"url"`
	Filename  string `gorm:"size:1024" json:"filename"`
	Primary   bool   `gorm:"column:is_primary" json:"primary"`
}

// FileHash is one (algorithm, digest) pair of a file. Digests are stored as
// ascii hex bytes for content-addressed lookup.
type FileHash struct {
	FileID    ID     `gorm:"primaryKey;autoIncrement:false"`
	Algorithm string `gorm:"primaryKey;size:32"`
	Hash      []byte
}

// VersionDependency is an edge from a dependent version to the version it
// depends on.
type VersionDependency struct {
	DependentID    ID             `gorm:"primaryKey;autoIncrement:false" json:"-"`
	DependencyID   ID             `gorm:"primaryKey;autoIncrement:false" json:"version_id"`
	DependencyType DependencyType `gorm:"size:32" json:"dependency_type"`
}

// VersionLoader joins versions to supported loaders.
type VersionLoader struct {
	VersionID ID  `gorm:"primaryKey;autoIncrement:false"`
	LoaderID  int `gorm:"primaryKey"`
}

// VersionGameVersion joins versions to supported game versions.
type VersionGameVersion struct {
	VersionID     ID  `gorm:"primaryKey;autoIncrement:false"`
	GameVersionID int `gorm:"primaryKey"`
}

// QueryFile is the denormalized file of a version view, hashes keyed by
// algorithm.
type QueryFile struct {
	ID       ID                `json:"-"`
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Hashes   map[string]string `json:"hashes"`
}

// QueryVersion is the fully denormalized version aggregate.
type QueryVersion struct {
	Version
	VersionType  VersionType         `json:"version_type"`
	Files        []QueryFile         `json:"files"`
	Dependencies []VersionDependency `json:"dependencies"`
	GameVersions []string            `json:"game_versions"`
	Loaders      []string            `json:"loaders"`
}

// DownloadLog deduplicates download counting: one row per (version,
// anonymized requester) hit, consulted over a 30 minute sliding window. The
// identifier is a keyed hash of the requester ip, never the raw address.
type DownloadLog struct {
	ID         int64  `gorm:"primaryKey"`
	VersionID  ID     `gorm:"index:idx_downloads_version_ident"`
	Identifier string `gorm:"index:idx_downloads_version_ident;size:64"`
	Date       time.Time
}

func (DownloadLog) TableName() string { return "downloads" }
