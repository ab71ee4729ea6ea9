package models

import "time"

// Project is the top-level hosted entity (historically "mod"). Ids are
// randomly generated, never autoincremented, so encoded ids stay opaque.
type Project struct {
	ID            ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Slug          *string `gorm:"uniqueIndex;size:64" json:"slug"`
	ProjectTypeID int     `json:"-"`
	TeamID        ID      `gorm:"index" json:"team"`
	Title         string  `gorm:"size:256" json:"title"`
	Description   string  `gorm:"size:2048" json:"description"`
	Body          string  `json:"body"`
	BodyURL       *string `gorm:"size:2048" json:"body_url"`

	StatusID     int     `json:"-"`
	ClientSideID int     `json:"-"`
	ServerSideID int     `json:"-"`
	LicenseID    int     `json:"-"`
	LicenseURL   *string `gorm:"size:2048" json:"-"`

	IconURL    *string `gorm:"size:2048" json:"icon_url"`
	IssuesURL  *string `gorm:"size:2048" json:"issues_url"`
	SourceURL  *string `gorm:"size:2048" json:"source_url"`
	WikiURL    *string `gorm:"size:2048" json:"wiki_url"`
	DiscordURL *string `gorm:"size:2048" json:"discord_url"`

	Downloads int64     `json:"downloads"`
	Follows   int64     `json:"followers"`
	Published time.Time `json:"published"`
	Updated   time.Time `json:"updated"`
}

// ProjectCategory joins projects to categories, at most three per project.
type ProjectCategory struct {
	ProjectID  ID  `gorm:"primaryKey;autoIncrement:false"`
	CategoryID int `gorm:"primaryKey"`
}

// ProjectDonation joins projects to donation platforms with the target url.
type ProjectDonation struct {
	ProjectID  ID     `gorm:"primaryKey;autoIncrement:false"`
	PlatformID int    `gorm:"primaryKey"`
	URL        string `gorm:"size:2048"`
}

// ProjectFollow records one user following one project.
type ProjectFollow struct {
	FollowerID ID `gorm:"primaryKey;autoIncrement:false"`
	ProjectID  ID `gorm:"primaryKey;autoIncrement:false"`
}

// LicenseInfo is the denormalized license block of a project view.
type LicenseInfo struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	URL  *string `json:"url"`
}

// DonationLink is the denormalized donation entry of a project view. ID is
// the platform short-code and Platform its display name.
type DonationLink struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// QueryProject is the fully denormalized project aggregate assembled by the
// reader from several relational queries.
type QueryProject struct {
	Project
	ProjectType  string         `json:"project_type"`
	Status       ProjectStatus  `json:"status"`
	ClientSide   SideType       `json:"client_side"`
	ServerSide   SideType       `json:"server_side"`
	License      LicenseInfo    `json:"license"`
	Categories   []string       `json:"categories"`
	Versions     []ID           `json:"versions"`
	DonationURLs []DonationLink `json:"donation_urls"`
}
