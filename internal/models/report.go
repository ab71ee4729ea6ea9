package models

// Report is a user-submitted report against a project, version or user;
// exactly the relevant target ids are populated.
type Report struct {
	ID           ID     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ReportTypeID int    `json:"-"`
	ProjectID    *ID    `json:"project_id,omitempty"`
	VersionID    *ID    `json:"version_id,omitempty"`
	UserID       *ID    `json:"user_id,omitempty"`
	Body         string `json:"body"`
	Reporter     ID     `json:"reporter"`
}

// QueryReport is a report with its type name resolved.
type QueryReport struct {
	Report
	ReportType string `json:"report_type"`
}
