package events

import (
	"context"
	"time"
)

// Routing keys published on the lending exchange.
const (
	RKRequestCreated   = "request.created"
	RKRequestApproved  = "request.approved"
	RKRequestRejected  = "request.rejected"
	RKRequestReturned  = "request.returned"
	RKResourcesCleared = "resources.cleared"
)

// RequestChanged carries enough of a request for a notifier to build a message.
type RequestChanged struct {
	RequestID     string    `json:"request_id"`
	ResourceID    string    `json:"resource_id"`
	ResourceTitle string    `json:"resource_title"`
	OwnerEmail    string    `json:"owner_email"`
	BorrowerEmail string    `json:"borrower_email"`
	Status        string    `json:"status"`
	Days          *int      `json:"days,omitempty"`
	TotalDue      *float64  `json:"total_due,omitempty"`
	At            time.Time `json:"at"`
}

type ResourcesCleared struct {
	OwnerEmail         string    `json:"owner_email"`
	Resources          int64     `json:"resources"`
	RequestsAsOwner    int64     `json:"requests_as_owner"`
	RequestsAsBorrower int64     `json:"requests_as_borrower"`
	At                 time.Time `json:"at"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }
func (Nop) Close() error                                   { return nil }
