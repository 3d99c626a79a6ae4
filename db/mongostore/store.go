package mongostore

import (
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection       = "users"
	credentialsCollection = "credentials"
	resourcesCollection   = "resources"
	requestsCollection    = "requests"
)

type Store struct {
	client      *mongo.Client
	users       *mongo.Collection
	credentials *mongo.Collection
	resources   *mongo.Collection
	requests    *mongo.Collection
}

var _ db.Store = (*Store)(nil)

// Connect dials MongoDB, checks the primary and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	d := client.Database(database)
	s := &Store{
		client:      client,
		users:       d.Collection(usersCollection),
		credentials: d.Collection(credentialsCollection),
		resources:   d.Collection(resourcesCollection),
		requests:    d.Collection(requestsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := s.credentials.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "credential_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("credentials index: %w", err)
	}
	if _, err := s.resources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_email", Value: 1}},
	}); err != nil {
		return fmt.Errorf("resources index: %w", err)
	}
	if _, err := s.requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_email", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "borrower_email", Value: 1}}},
		{Keys: bson.D{{Key: "resource_id", Value: 1}, {Key: "borrower_email", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("requests index: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, readpref.Primary()) }

func (s *Store) Close() error { return s.client.Disconnect(context.Background()) }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return db.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(db.ErrDuplicate, err)
	}
	return err
}

// objectID maps a malformed hex id to ErrNotFound: such an id can never
// resolve to a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, db.ErrNotFound
	}
	return oid, nil
}

func resourceFilter(f db.ResourceFilter) bson.M {
	m := bson.M{}
	switch {
	case f.OwnerEmail != "" && f.ExcludeOwner != "":
		m["$and"] = bson.A{
			bson.M{"owner_email": f.OwnerEmail},
			bson.M{"owner_email": bson.M{"$ne": f.ExcludeOwner}},
		}
	case f.OwnerEmail != "":
		m["owner_email"] = f.OwnerEmail
	case f.ExcludeOwner != "":
		m["owner_email"] = bson.M{"$ne": f.ExcludeOwner}
	}
	return m
}

func requestFilter(f db.RequestFilter) bson.M {
	m := bson.M{}
	if f.ResourceID != "" {
		m["resource_id"] = f.ResourceID
	}
	if f.OwnerEmail != "" {
		m["owner_email"] = f.OwnerEmail
	}
	if f.BorrowerEmail != "" {
		m["borrower_email"] = f.BorrowerEmail
	}
	if len(f.Statuses) > 0 {
		m["status"] = bson.M{"$in": f.StatusStrings()}
	}
	return m
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.users.InsertOne(ctx, newUserDoc(u))
	return translate(err)
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return d.model(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) TouchUserLogin(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"last_login_at": now, "last_seen_at": now, "updated_at": now},
		"$inc": bson.M{"login_count": 1},
	})
	return err
}

func (s *Store) TouchUserSeen(ctx context.Context, email string) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{"last_seen_at": time.Now().UTC()},
	})
	return err
}

// Credentials

func (s *Store) AddCredential(ctx context.Context, c *models.Credential) error {
	c.CreatedAt = time.Now().UTC()
	_, err := s.credentials.InsertOne(ctx, newCredentialDoc(c))
	return translate(err)
}

func (s *Store) LoadUserCredentials(ctx context.Context, userID string) ([]models.Credential, error) {
	cur, err := s.credentials.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var docs []credentialDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Credential, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) UpdateCredentialCounter(ctx context.Context, credID []byte, newCount uint32, cloneWarn bool) error {
	_, err := s.credentials.UpdateOne(ctx, bson.M{"credential_id": credID}, bson.M{
		"$set": bson.M{"sign_count": newCount, "clone_warning": cloneWarn, "last_used_at": time.Now().UTC()},
	})
	return err
}

func (s *Store) FindUserByCredentialID(ctx context.Context, credID []byte) (*models.User, *models.Credential, error) {
	var d credentialDoc
	if err := s.credentials.FindOne(ctx, bson.M{"credential_id": credID}).Decode(&d); err != nil {
		return nil, nil, translate(err)
	}
	u, err := s.FindUserByID(ctx, d.UserID)
	if err != nil {
		return nil, nil, err
	}
	c := d.model()
	return u, &c, nil
}

// Resources

func (s *Store) CreateResource(ctx context.Context, res *models.Resource) error {
	d := resourceDoc{
		Title: res.Title, Description: res.Description, Category: res.Category,
		Price: res.Price, OwnerEmail: res.OwnerEmail, Image: res.Image,
		CreatedAt: time.Now().UTC(),
	}
	out, err := s.resources.InsertOne(ctx, d)
	if err != nil {
		return translate(err)
	}
	if oid, ok := out.InsertedID.(primitive.ObjectID); ok {
		res.ID = oid.Hex()
	}
	res.CreatedAt = d.CreatedAt
	return nil
}

func (s *Store) FindResource(ctx context.Context, id string) (*models.Resource, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d resourceDoc
	if err := s.resources.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	res := d.model()
	return &res, nil
}

func (s *Store) ListResources(ctx context.Context, f db.ResourceFilter) ([]models.Resource, error) {
	cur, err := s.resources.Find(ctx, resourceFilter(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []resourceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Resource, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) DeleteResources(ctx context.Context, f db.ResourceFilter) (int64, error) {
	if f.IsZero() {
		return 0, db.ErrEmptyFilter
	}
	res, err := s.resources.DeleteMany(ctx, resourceFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Requests

func (s *Store) InsertRequest(ctx context.Context, req *models.Request) error {
	now := time.Now().UTC()
	d := requestDoc{
		ResourceID: req.ResourceID, ResourceTitle: req.ResourceTitle,
		OwnerEmail: req.OwnerEmail, BorrowerEmail: req.BorrowerEmail, Status: string(req.Status),
		ApprovedAt: req.ApprovedAt, ReturnedAt: req.ReturnedAt, Days: req.Days, TotalDue: req.TotalDue,
		CreatedAt: now, UpdatedAt: now,
	}
	out, err := s.requests.InsertOne(ctx, d)
	if err != nil {
		return translate(err)
	}
	if oid, ok := out.InsertedID.(primitive.ObjectID); ok {
		req.ID = oid.Hex()
	}
	req.CreatedAt, req.UpdatedAt = now, now
	return nil
}

func (s *Store) FindRequest(ctx context.Context, id string) (*models.Request, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findRequest(ctx, bson.M{"_id": oid})
}

func (s *Store) FindOneRequest(ctx context.Context, f db.RequestFilter) (*models.Request, error) {
	return s.findRequest(ctx, requestFilter(f))
}

func (s *Store) findRequest(ctx context.Context, filter bson.M) (*models.Request, error) {
	var d requestDoc
	if err := s.requests.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate(err)
	}
	req := d.model()
	return &req, nil
}

func (s *Store) ListRequests(ctx context.Context, f db.RequestFilter) ([]models.Request, error) {
	cur, err := s.requests.Find(ctx, requestFilter(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Request, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) UpdateRequest(ctx context.Context, id string, fields map[string]any) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.requests.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRequests(ctx context.Context, f db.RequestFilter) (int64, error) {
	if f.IsZero() {
		return 0, db.ErrEmptyFilter
	}
	res, err := s.requests.DeleteMany(ctx, requestFilter(f))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) CountRequests(ctx context.Context, f db.RequestFilter) (int64, error) {
	return s.requests.CountDocuments(ctx, requestFilter(f))
}
