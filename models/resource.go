package models

import "time"

const ResourceTable = "lsb_resources"

// Resource is an item listed for loan. Price is kept as the text the owner
// typed and is only interpreted when a loan is billed.
type Resource struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"size:100;not null;index" json:"category"`
	Price       string    `gorm:"size:32;not null" json:"price"`
	OwnerEmail  string    `gorm:"size:255;not null;index" json:"owner_email"`
	Image       *string   `gorm:"size:255" json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Resource) TableName() string { return ResourceTable }
