package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamMember is one entry of the public team roster
type TeamMember struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	Role       string    `gorm:"not null" json:"role"`
	Company    string    `gorm:"not null" json:"company"`
	ImageURL   string    `gorm:"column:image_url;not null" json:"image_url"`
	OrderIndex int       `gorm:"not null;index" json:"order_index"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for TeamMember
func (TeamMember) TableName() string {
	return "teams"
}

// BeforeCreate assigns the primary key
func (t *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
