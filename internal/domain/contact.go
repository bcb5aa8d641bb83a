package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactStatus is the triage state of a contact submission
type ContactStatus string

const (
	StatusNew      ContactStatus = "new"
	StatusRead     ContactStatus = "read"
	StatusReplied  ContactStatus = "replied"
	StatusArchived ContactStatus = "archived"
)

// ContactStatuses lists every accepted status
var ContactStatuses = []ContactStatus{StatusNew, StatusRead, StatusReplied, StatusArchived}

// Valid reports whether s is one of ContactStatuses
func (s ContactStatus) Valid() bool {
	switch s {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
		return true
	}
	return false
}

// ContactSubmission represents a contact form submission
type ContactSubmission struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string        `gorm:"not null" json:"name"`
	Email     string        `gorm:"not null;index" json:"email"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	Status    ContactStatus `gorm:"type:text;not null;index" json:"status"`
	CreatedAt time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for ContactSubmission
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}

// BeforeCreate hook
func (c *ContactSubmission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusNew
	}
	return nil
}
