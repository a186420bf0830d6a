package models

import "time"

// User mirrors the wiki's user table. Column names follow the MediaWiki
// schema so the reattribution SQL and any external tooling agree on naming.
type User struct {
	ID                 int64      `gorm:"column:user_id;primaryKey;autoIncrement"`
	Name               string     `gorm:"column:user_name;size:255;not null;uniqueIndex"`
	Password           string     `gorm:"column:user_password;type:text;not null;default:''"`
	Email              string     `gorm:"column:user_email;size:320;not null;default:''"`
	EmailAuthenticated *time.Time `gorm:"column:user_email_authenticated"`
	EmailToken         *string    `gorm:"column:user_email_token;size:32"`
	EmailTokenExpires  *time.Time `gorm:"column:user_email_token_expires"`
	EditCount          int64      `gorm:"column:user_editcount;not null;default:0"`
	Registration       *time.Time `gorm:"column:user_registration"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (User) TableName() string {
	return "users"
}

// UserGroup is one explicit group membership, optionally expiring.
type UserGroup struct {
	UserID int64      `gorm:"column:ug_user;primaryKey"`
	Group  string     `gorm:"column:ug_group;size:255;primaryKey"`
	Expiry *time.Time `gorm:"column:ug_expiry"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}

// UserProperty is one stored preference override; keys absent here fall back
// to the configured defaults.
type UserProperty struct {
	UserID   int64  `gorm:"column:up_user;primaryKey"`
	Property string `gorm:"column:up_property;size:255;primaryKey"`
	Value    string `gorm:"column:up_value;type:text;not null;default:''"`
}

func (UserProperty) TableName() string {
	return "user_properties"
}

// WatchlistItem is one watched page, unique per (user, namespace, title).
type WatchlistItem struct {
	ID        int64      `gorm:"column:wl_id;primaryKey;autoIncrement"`
	UserID    int64      `gorm:"column:wl_user;not null;uniqueIndex:wl_user_ns_title,priority:1"`
	Namespace int        `gorm:"column:wl_namespace;not null;uniqueIndex:wl_user_ns_title,priority:2"`
	Title     string     `gorm:"column:wl_title;size:255;not null;uniqueIndex:wl_user_ns_title,priority:3"`
	Changed   *time.Time `gorm:"column:wl_notificationtimestamp"`
}

func (WatchlistItem) TableName() string {
	return "watchlist"
}

// Actor is a stable authorship identity. Stub actors (UserID null) predate
// the local account; a second row with UserID set appears once the account
// is imported.
type Actor struct {
	ID     int64  `gorm:"column:actor_id;primaryKey;autoIncrement"`
	UserID *int64 `gorm:"column:actor_user;index"`
	Name   string `gorm:"column:actor_name;size:255;not null;index"`
}

func (Actor) TableName() string {
	return "actor"
}
