package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
)

type BuildRepository interface {
	Create(ctx context.Context, build *models.Build) error
	Save(ctx context.Context, build *models.Build) error
	UpdateStatus(ctx context.Context, id string, status models.BuildStatus) error
	GetByID(ctx context.Context, id string) (*models.Build, error)
	MarkExpired(ctx context.Context, ids []string) (int64, error)
}

type buildRepository struct {
	db *gorm.DB
}

func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{db: db}
}

func (r *buildRepository) Create(ctx context.Context, build *models.Build) error {
	return r.db.WithContext(ctx).Create(build).Error
}

func (r *buildRepository) Save(ctx context.Context, build *models.Build) error {
	return r.db.WithContext(ctx).Save(build).Error
}

func (r *buildRepository) UpdateStatus(ctx context.Context, id string, status models.BuildStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Build{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// GetByID geeft nil, nil terug als de build niet bestaat.
func (r *buildRepository) GetByID(ctx context.Context, id string) (*models.Build, error) {
	var build models.Build
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&build).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &build, nil
}

// MarkExpired sets status expired on the given builds. Builds that are
// already expired are left alone, so repeated calls report 0.
func (r *buildRepository) MarkExpired(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Build{}).
		Where("id IN ? AND status <> ?", ids, models.BuildExpired).
		Update("status", models.BuildExpired)
	return res.RowsAffected, res.Error
}
