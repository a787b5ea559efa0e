package repository

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

type HostRecordRepository interface {
	// ReplaceForInstance swaps the instance's service-discovery entries in
	// one transaction. Replaying a start event just writes the same records
	// again.
	ReplaceForInstance(ctx context.Context, instanceID entity.ID, records []entity.HostRecord) error
	DeleteForInstance(ctx context.Context, instanceID entity.ID) error
	// DeleteForContainer removes only the records of one container, so
	// tearing down an old container never touches its replacement's entries.
	DeleteForContainer(ctx context.Context, containerID string) error
	ListForInstance(ctx context.Context, instanceID entity.ID) ([]*entity.HostRecord, error)
}

type hostRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewHostRecordRepository(db *gorm.DB) HostRecordRepository {
	return &hostRecordRepositoryImpl{db: db}
}

func (r *hostRecordRepositoryImpl) ReplaceForInstance(ctx context.Context, instanceID entity.ID, records []entity.HostRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("instance_id = ?", instanceID.String()).Delete(&HostRecord{}).Error; err != nil {
			return err
		}
		for i := range records {
			var model HostRecord
			model.FromEntity(&records[i])
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *hostRecordRepositoryImpl) DeleteForInstance(ctx context.Context, instanceID entity.ID) error {
	return r.db.WithContext(ctx).Where("instance_id = ?", instanceID.String()).Delete(&HostRecord{}).Error
}

func (r *hostRecordRepositoryImpl) DeleteForContainer(ctx context.Context, containerID string) error {
	return r.db.WithContext(ctx).Where("container_id = ?", containerID).Delete(&HostRecord{}).Error
}

func (r *hostRecordRepositoryImpl) ListForInstance(ctx context.Context, instanceID entity.ID) ([]*entity.HostRecord, error) {
	founds, err := gorm.G[HostRecord](r.db).Where("instance_id = ?", instanceID.String()).Find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.HostRecord, len(founds))
	for i := range founds {
		out[i] = founds[i].ToEntity()
	}
	return out, nil
}
