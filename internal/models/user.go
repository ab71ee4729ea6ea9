package models

import "time"

// User is a registered account. Email is only serialized for the user
// themself; handlers blank it for everyone else.
type User struct {
	ID        ID        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	GithubID  *int64    `gorm:"uniqueIndex" json:"github_id,omitempty"`
	Username  string    `gorm:"uniqueIndex;size:64" json:"username"`
	Name      string    `gorm:"size:256" json:"name"`
	Email     *string   `gorm:"size:256" json:"email,omitempty"`
	AvatarURL *string   `gorm:"size:2048" json:"avatar_url"`
	Bio       string    `gorm:"size:2048" json:"bio"`
	Created   time.Time `json:"created"`
	Role      Role      `gorm:"size:32" json:"role"`
}

// CallerIdentity is what the auth resolver yields for a request. The core
// never inspects tokens; it only consumes this pair.
type CallerIdentity struct {
	UserID ID
	Role   Role
}
