package models

import "time"

// Notification is a message to one user, created transactionally with its
// actions.
type Notification struct {
	ID      ID                   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID  ID                   `gorm:"index" json:"user_id"`
	Title   string               `gorm:"size:256" json:"title"`
	Text    string               `gorm:"size:2048" json:"text"`
	Read    bool                 `json:"read"`
	Created time.Time            `json:"created"`
	Actions []NotificationAction `gorm:"-" json:"actions"`
}

// NotificationAction is one clickable action of a notification. Actions
// never exist without a parent.
type NotificationAction struct {
	ID             int64  `gorm:"primaryKey" json:"-"`
	NotificationID ID     `gorm:"index" json:"-"`
	Title          string `gorm:"size:256" json:"title"`
	ActionRoute    string `gorm:"size:2048" json:"action_route"`
}
