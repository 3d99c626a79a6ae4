package db

import (
	"Gin_postgres_redis_lend_tool/models"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (f ResourceFilter) apply(q *gorm.DB) *gorm.DB {
	if f.OwnerEmail != "" {
		q = q.Where("owner_email = ?", f.OwnerEmail)
	}
	if f.ExcludeOwner != "" {
		q = q.Where("owner_email <> ?", f.ExcludeOwner)
	}
	return q
}

func (r *Repo) CreateResource(ctx context.Context, res *models.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	return translate(r.DB.WithContext(ctx).Create(res).Error)
}

func (r *Repo) FindResource(ctx context.Context, id string) (*models.Resource, error) {
	var res models.Resource
	if err := r.DB.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &res, nil
}

func (r *Repo) ListResources(ctx context.Context, f ResourceFilter) ([]models.Resource, error) {
	var out []models.Resource
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Resource{}))
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) DeleteResources(ctx context.Context, f ResourceFilter) (int64, error) {
	if f.IsZero() {
		return 0, ErrEmptyFilter
	}
	res := f.apply(r.DB.WithContext(ctx)).Delete(&models.Resource{})
	return res.RowsAffected, res.Error
}
