package mongostore

import (
	"Gin_postgres_redis_lend_tool/models"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDoc struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	Name         string     `bson:"name"`
	Phone        string     `bson:"phone"`
	PasswordHash []byte     `bson:"password"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
	LastSeenAt   *time.Time `bson:"last_seen_at,omitempty"`
	LoginCount   int64      `bson:"login_count"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func newUserDoc(u *models.User) userDoc {
	return userDoc{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone,
		PasswordHash: u.PasswordHash, LastLoginAt: u.LastLoginAt, LastSeenAt: u.LastSeenAt,
		LoginCount: u.LoginCount, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID: d.ID, Email: d.Email, Name: d.Name, Phone: d.Phone,
		PasswordHash: d.PasswordHash, LastLoginAt: d.LastLoginAt, LastSeenAt: d.LastSeenAt,
		LoginCount: d.LoginCount, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

type credentialDoc struct {
	UserID          string     `bson:"user_id"`
	CredentialID    []byte     `bson:"credential_id"`
	PublicKey       []byte     `bson:"public_key"`
	AttestationType string     `bson:"attestation_type"`
	AAGUID          []byte     `bson:"aaguid"`
	SignCount       uint32     `bson:"sign_count"`
	CloneWarning    bool       `bson:"clone_warning"`
	BackupEligible  bool       `bson:"backup_eligible"`
	BackupState     bool       `bson:"backup_state"`
	CreatedAt       time.Time  `bson:"created_at"`
	LastUsedAt      *time.Time `bson:"last_used_at,omitempty"`
}

func newCredentialDoc(c *models.Credential) credentialDoc {
	return credentialDoc{
		UserID: c.UserID, CredentialID: c.CredentialID, PublicKey: c.PublicKey,
		AttestationType: c.AttestationType, AAGUID: c.AAGUID, SignCount: c.SignCount,
		CloneWarning: c.CloneWarning, BackupEligible: c.BackupEligible, BackupState: c.BackupState,
		CreatedAt: c.CreatedAt, LastUsedAt: c.LastUsedAt,
	}
}

func (d credentialDoc) model() models.Credential {
	return models.Credential{
		UserID: d.UserID, CredentialID: d.CredentialID, PublicKey: d.PublicKey,
		AttestationType: d.AttestationType, AAGUID: d.AAGUID, SignCount: d.SignCount,
		CloneWarning: d.CloneWarning, BackupEligible: d.BackupEligible, BackupState: d.BackupState,
		CreatedAt: d.CreatedAt, LastUsedAt: d.LastUsedAt,
	}
}

type resourceDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	Price       string             `bson:"price"`
	OwnerEmail  string             `bson:"owner_email"`
	Image       *string            `bson:"image"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d resourceDoc) model() models.Resource {
	return models.Resource{
		ID: d.ID.Hex(), Title: d.Title, Description: d.Description, Category: d.Category,
		Price: d.Price, OwnerEmail: d.OwnerEmail, Image: d.Image, CreatedAt: d.CreatedAt,
	}
}

type requestDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ResourceID    string             `bson:"resource_id"`
	ResourceTitle string             `bson:"resource_title"`
	OwnerEmail    string             `bson:"owner_email"`
	BorrowerEmail string             `bson:"borrower_email"`
	Status        string             `bson:"status"`
	ApprovedAt    *time.Time         `bson:"approved_at,omitempty"`
	ReturnedAt    *time.Time         `bson:"returned_at,omitempty"`
	Days          *int               `bson:"days,omitempty"`
	TotalDue      *float64           `bson:"total_due,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d requestDoc) model() models.Request {
	return models.Request{
		ID: d.ID.Hex(), ResourceID: d.ResourceID, ResourceTitle: d.ResourceTitle,
		OwnerEmail: d.OwnerEmail, BorrowerEmail: d.BorrowerEmail, Status: models.RequestStatus(d.Status),
		ApprovedAt: d.ApprovedAt, ReturnedAt: d.ReturnedAt, Days: d.Days, TotalDue: d.TotalDue,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}
