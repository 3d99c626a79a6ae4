package models

import "time"

const RequestTable = "lsb_requests"

type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusApproved RequestStatus = "Approved"
	StatusRejected RequestStatus = "Rejected"
	StatusReturned RequestStatus = "Returned"
)

// ActiveStatuses are the states that block a second request for the same
// resource by the same borrower.
var ActiveStatuses = []RequestStatus{StatusPending, StatusApproved}

// Request is a borrow request. ResourceTitle and OwnerEmail are copied from
// the resource at creation and never refreshed.
type Request struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	ResourceID    string        `gorm:"size:64;not null;index" json:"resource_id"`
	ResourceTitle string        `gorm:"size:200;not null" json:"resource_title"`
	OwnerEmail    string        `gorm:"size:255;not null;index" json:"owner_email"`
	BorrowerEmail string        `gorm:"size:255;not null;index" json:"borrower_email"`
	Status        RequestStatus `gorm:"size:20;not null;index" json:"status"`

	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Days       *int       `json:"days,omitempty"`
	TotalDue   *float64   `json:"total_due,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Request) TableName() string { return RequestTable }
