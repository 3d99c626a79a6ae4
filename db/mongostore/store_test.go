package mongostore

import (
	"Gin_postgres_redis_lend_tool/db"
	"Gin_postgres_redis_lend_tool/models"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	for _, bad := range []string{"", "123", "zzzzzzzzzzzzzzzzzzzzzzzz", uuid.NewString()} {
		_, err := objectID(bad)
		assert.ErrorIs(t, err, db.ErrNotFound, bad)
	}
}

func TestResourceFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, resourceFilter(db.ResourceFilter{}))
	assert.Equal(t, bson.M{"owner_email": "a@x"}, resourceFilter(db.ResourceFilter{OwnerEmail: "a@x"}))
	assert.Equal(t, bson.M{"owner_email": bson.M{"$ne": "a@x"}}, resourceFilter(db.ResourceFilter{ExcludeOwner: "a@x"}))
	assert.Contains(t, resourceFilter(db.ResourceFilter{OwnerEmail: "a@x", ExcludeOwner: "b@x"}), "$and")
}

func TestRequestFilter(t *testing.T) {
	got := requestFilter(db.RequestFilter{
		ResourceID:    "r1",
		BorrowerEmail: "b@x",
		Statuses:      models.ActiveStatuses,
	})
	assert.Equal(t, bson.M{
		"resource_id":    "r1",
		"borrower_email": "b@x",
		"status":         bson.M{"$in": []string{"Pending", "Approved"}},
	}, got)
	assert.Equal(t, bson.M{"owner_email": "a@x"}, requestFilter(db.RequestFilter{OwnerEmail: "a@x"}))
}

// Needs a live server: TEST_MONGO_URI=mongodb://127.0.0.1:27017 go test ./db/mongostore
func TestStoreAgainstMongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	s, err := Connect(ctx, uri, "lend_test_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.users.Database().Drop(context.Background())
		_ = s.Close()
	})

	res := &models.Resource{Title: "Drill", Description: "d", Category: "tools", Price: "2.50", OwnerEmail: "a@x"}
	require.NoError(t, s.CreateResource(ctx, res))
	require.NotEmpty(t, res.ID)

	req := &models.Request{ResourceID: res.ID, ResourceTitle: res.Title, OwnerEmail: "a@x", BorrowerEmail: "b@x", Status: models.StatusPending}
	require.NoError(t, s.InsertRequest(ctx, req))

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.UpdateRequest(ctx, req.ID, map[string]any{
		db.FieldStatus: string(models.StatusApproved), db.FieldApprovedAt: now,
	}))
	got, err := s.FindOneRequest(ctx, db.RequestFilter{ResourceID: res.ID, BorrowerEmail: "b@x", Statuses: models.ActiveStatuses})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, now.Equal(*got.ApprovedAt))

	n, err := s.CountRequests(ctx, db.RequestFilter{OwnerEmail: "a@x", Statuses: []models.RequestStatus{models.StatusPending}})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.FindRequest(ctx, "not-an-id")
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.ErrorIs(t, s.UpdateRequest(ctx, primitive.NewObjectID().Hex(), map[string]any{db.FieldStatus: "x"}), db.ErrNotFound)

	deleted, err := s.DeleteResources(ctx, db.ResourceFilter{OwnerEmail: "a@x"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
