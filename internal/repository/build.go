package repository

import (
	"context"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

type BuildRepository interface {
	Create(ctx context.Context, b *entity.Build) (*entity.Build, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Build, error)
	MarkCompleted(ctx context.Context, id entity.ID, successful bool, reason string, at time.Time) error
	MarkFailed(ctx context.Context, id entity.ID, reason string) error
}

type buildRepositoryImpl struct {
	db *gorm.DB
}

func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepositoryImpl{db: db}
}

func (r *buildRepositoryImpl) Create(ctx context.Context, b *entity.Build) (*entity.Build, error) {
	var model Build
	model.FromEntity(b)
	if err := gorm.G[Build](r.db).Create(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *buildRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Build, error) {
	found, err := gorm.G[Build](r.db).Where("id = ?", id.String()).First(ctx)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return found.ToEntity(), nil
}

func (r *buildRepositoryImpl) MarkCompleted(ctx context.Context, id entity.ID, successful bool, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Build{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"successful":    successful,
			"failed_reason": reason,
			"completed_at":  at,
		})
	return res.Error
}

func (r *buildRepositoryImpl) MarkFailed(ctx context.Context, id entity.ID, reason string) error {
	return r.MarkCompleted(ctx, id, false, reason, time.Now())
}
