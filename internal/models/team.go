package models

// Team is the authorization boundary owning a project.
type Team struct {
	ID ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
}

// TeamMember is one user's membership in a team. accepted=false means
// invited but not yet joined; such members may only join or leave, not be
// granted wider permissions than the grantor holds.
type TeamMember struct {
	ID          ID          `gorm:"primaryKey;autoIncrement:false" json:"-"`
	TeamID      ID          `gorm:"index:idx_team_members_team_user,unique" json:"-"`
	UserID      ID          `gorm:"index:idx_team_members_team_user,unique" json:"user_id"`
	Name        string      `gorm:"size:256" json:"name"`
	Role        string      `gorm:"size:256" json:"role"`
	Permissions Permissions `json:"permissions"`
	Accepted    bool        `json:"accepted"`
}
