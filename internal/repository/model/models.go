package model

import (
	"time"
)

type Room struct {
	Code            string     `gorm:"size:32;primaryKey"`
	CreatorName     string     `gorm:"size:255;not null"`
	CreatorEmail    string     `gorm:"size:255;index;not null"`
	ParticipantsRef string     `gorm:"size:128;not null"`
	CreatedAt       time.Time  `gorm:"not null"`
	ExpiresAt       *time.Time `gorm:"index"`
}
