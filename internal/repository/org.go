package repository

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrgRepository interface {
	Get(ctx context.Context, orgID int64) (*entity.OrgRecord, error)
	Upsert(ctx context.Context, org *entity.OrgRecord) error
}

type orgRepositoryImpl struct {
	db *gorm.DB
}

func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepositoryImpl{db: db}
}

func (r *orgRepositoryImpl) Get(ctx context.Context, orgID int64) (*entity.OrgRecord, error) {
	found, err := gorm.G[Org](r.db).Where("org_id = ?", orgID).First(ctx)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return found.ToEntity(), nil
}

func (r *orgRepositoryImpl) Upsert(ctx context.Context, org *entity.OrgRecord) error {
	var model Org
	model.FromEntity(org)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "allowed"}),
		}).
		Create(&model).Error
}
