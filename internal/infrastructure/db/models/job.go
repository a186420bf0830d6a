package models

import "time"

// Job is one queued unit of deferred import work. Payload is a JSON document
// whose shape depends on Kind.
type Job struct {
	ID             string  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Kind           string  `gorm:"type:text;not null"`
	Payload        []byte  `gorm:"type:jsonb;not null"`
	Status         string  `gorm:"type:text;not null"`
	Attempts       int     `gorm:"not null;default:0"`
	MaxAttempts    int     `gorm:"not null;default:5"`
	ErrorMessage   *string `gorm:"type:text"`
	HeartbeatAt    *time.Time
	LeaseExpiresAt *time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Job) TableName() string {
	return "jobs"
}
