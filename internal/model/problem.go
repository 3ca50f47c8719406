package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProblemStatus string

const (
	ProblemStatusOpen      ProblemStatus = "OPEN"
	ProblemStatusConverted ProblemStatus = "CONVERTED"
	ProblemStatusDismissed ProblemStatus = "DISMISSED"
)

// Problem is an inspector-filed report. An admin either converts it into a
// task or dismisses it.
type Problem struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string        `gorm:"type:varchar(255);not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	PropertyID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"property_id"`
	Priority    TaskPriority  `gorm:"type:varchar(16);not null;default:medium" json:"priority"`
	Status      ProblemStatus `gorm:"type:varchar(16);not null;default:OPEN;index" json:"status"`
	ReportedBy  uuid.UUID     `gorm:"type:uuid;not null;index" json:"reported_by"`
	TaskID      *uuid.UUID    `gorm:"type:uuid" json:"task_id"`
	ImageURLs   StringList    `gorm:"type:jsonb" json:"image_urls"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Problem) TableName() string {
	return "problems"
}

func (p *Problem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
