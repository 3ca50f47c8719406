package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusNew             TaskStatus = "NEW"
	TaskStatusScheduled       TaskStatus = "SCHEDULED"
	TaskStatusPendingApproval TaskStatus = "PENDING_APPROVAL"
	TaskStatusApproved        TaskStatus = "APPROVED"
	TaskStatusRejected        TaskStatus = "REJECTED"
	TaskStatusDone            TaskStatus = "DONE"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Timeslot is a handyman-proposed maintenance window on a single day.
// Hours are whole-hour slots ("09:00"), ascending. Rejected slots are never
// deleted; re-proposing marks them superseded so they stop counting toward
// the task status while staying visible as history.
type Timeslot struct {
	Date           string         `json:"date"`
	Hours          []string       `json:"hours"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Superseded     bool           `json:"superseded,omitempty"`
}

// Timeslots is stored as a single JSON column so the whole collection is
// read and written as one unit under the task's version check.
type Timeslots []Timeslot

func (t Timeslots) Value() (driver.Value, error) {
	if t == nil {
		t = Timeslots{}
	}
	return json.Marshal(t)
}

func (t *Timeslots) Scan(value interface{}) error {
	if value == nil {
		*t = Timeslots{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported timeslots column type %T", value)
	}
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported string list column type")
	}
}

type Task struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	TicketNumber string       `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket_number"`
	PropertyID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"property_id"`
	PropertyName string       `gorm:"type:varchar(255);not null" json:"property"`
	Address      string       `gorm:"type:text;not null" json:"address"`
	Description  string       `gorm:"type:text" json:"description"`
	Priority     TaskPriority `gorm:"type:varchar(16);not null;default:medium" json:"priority"`
	Status       TaskStatus   `gorm:"type:varchar(32);not null;default:NEW;index" json:"status"`
	HandymanID   *uuid.UUID   `gorm:"type:uuid;index" json:"handyman_id"`
	CreatedByID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"created_by_id"`

	ScheduledTimeslots Timeslots  `gorm:"type:jsonb" json:"scheduled_timeslots"`
	ImageURLs          StringList `gorm:"type:jsonb" json:"image_urls"`

	// Optimistic lock; bumped on every timeslot/status write.
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
