package db

import (
	"Gin_postgres_redis_lend_tool/models"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (f RequestFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.OwnerEmail != "" {
		q = q.Where("owner_email = ?", f.OwnerEmail)
	}
	if f.BorrowerEmail != "" {
		q = q.Where("borrower_email = ?", f.BorrowerEmail)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.StatusStrings())
	}
	return q
}

// InsertRequest relies on the partial unique index from Migrate: a second
// active request for the same (resource, borrower) fails with ErrDuplicate.
func (r *Repo) InsertRequest(ctx context.Context, req *models.Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return translate(r.DB.WithContext(ctx).Create(req).Error)
}

func (r *Repo) FindRequest(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	if err := r.DB.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *Repo) FindOneRequest(ctx context.Context, f RequestFilter) (*models.Request, error) {
	var req models.Request
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Request{})).Take(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *Repo) ListRequests(ctx context.Context, f RequestFilter) ([]models.Request, error) {
	var out []models.Request
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Request{}))
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRequest sets only the given fields on one request.
func (r *Repo) UpdateRequest(ctx context.Context, id string, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteRequests(ctx context.Context, f RequestFilter) (int64, error) {
	if f.IsZero() {
		return 0, ErrEmptyFilter
	}
	res := f.apply(r.DB.WithContext(ctx)).Delete(&models.Request{})
	return res.RowsAffected, res.Error
}

func (r *Repo) CountRequests(ctx context.Context, f RequestFilter) (int64, error) {
	var n int64
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Request{})).Count(&n).Error
	return n, err
}
