package repository

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

type IsolationGroupRepository interface {
	Create(ctx context.Context, g *entity.IsolationGroup) (*entity.IsolationGroup, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.IsolationGroup, error)
}

type isolationGroupRepositoryImpl struct {
	db *gorm.DB
}

func NewIsolationGroupRepository(db *gorm.DB) IsolationGroupRepository {
	return &isolationGroupRepositoryImpl{db: db}
}

func (r *isolationGroupRepositoryImpl) Create(ctx context.Context, g *entity.IsolationGroup) (*entity.IsolationGroup, error) {
	var model IsolationGroup
	model.FromEntity(g)
	if err := gorm.G[IsolationGroup](r.db).Create(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *isolationGroupRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.IsolationGroup, error) {
	found, err := gorm.G[IsolationGroup](r.db).Where("id = ?", id.String()).First(ctx)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return found.ToEntity(), nil
}
