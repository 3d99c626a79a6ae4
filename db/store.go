package db

import (
	"Gin_postgres_redis_lend_tool/models"
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrEmptyFilter guards bulk deletes from matching a whole collection.
	ErrEmptyFilter = errors.New("refusing bulk delete without a filter")
)

// RequestFilter selects requests; empty fields are not constrained.
type RequestFilter struct {
	ResourceID    string
	OwnerEmail    string
	BorrowerEmail string
	Statuses      []models.RequestStatus
}

func (f RequestFilter) IsZero() bool {
	return f.ResourceID == "" && f.OwnerEmail == "" && f.BorrowerEmail == "" && len(f.Statuses) == 0
}

// StatusStrings returns the status set as plain strings for query drivers.
func (f RequestFilter) StatusStrings() []string {
	out := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		out = append(out, string(s))
	}
	return out
}

// ResourceFilter selects resources. ExcludeOwner hides one owner's listings.
type ResourceFilter struct {
	OwnerEmail   string
	ExcludeOwner string
}

func (f ResourceFilter) IsZero() bool { return f.OwnerEmail == "" && f.ExcludeOwner == "" }

// Update keys accepted by UpdateRequest. Both backends use these names as
// column / field names.
const (
	FieldStatus     = "status"
	FieldApprovedAt = "approved_at"
	FieldReturnedAt = "returned_at"
	FieldDays       = "days"
	FieldTotalDue   = "total_due"
)

// Store is the document-store surface the application runs on. Every call
// is a single independent read or write; nothing here spans documents
// atomically.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	TouchUserLogin(ctx context.Context, userID string) error
	TouchUserSeen(ctx context.Context, email string) error

	AddCredential(ctx context.Context, c *models.Credential) error
	LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error)
	UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error
	FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error)

	CreateResource(ctx context.Context, res *models.Resource) error
	FindResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context, f ResourceFilter) ([]models.Resource, error)
	DeleteResources(ctx context.Context, f ResourceFilter) (int64, error)

	InsertRequest(ctx context.Context, req *models.Request) error
	FindRequest(ctx context.Context, id string) (*models.Request, error)
	FindOneRequest(ctx context.Context, f RequestFilter) (*models.Request, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]models.Request, error)
	UpdateRequest(ctx context.Context, id string, fields map[string]any) error
	DeleteRequests(ctx context.Context, f RequestFilter) (int64, error)
	CountRequests(ctx context.Context, f RequestFilter) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
