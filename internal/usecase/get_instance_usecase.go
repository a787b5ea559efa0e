package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/samber/do"
)

type GetInstanceUsecase interface {
	Execute(ctx context.Context, id entity.ID) (*entity.Instance, error)
}

type getInstanceUsecaseImpl struct {
	instances repository.InstanceRepository
}

// Execute implements GetInstanceUsecase.
func (u *getInstanceUsecaseImpl) Execute(ctx context.Context, id entity.ID) (*entity.Instance, error) {
	return u.instances.GetByID(ctx, id)
}

func NewGetInstanceUsecase(injector *do.Injector) (GetInstanceUsecase, error) {
	return &getInstanceUsecaseImpl{
		instances: do.MustInvoke[repository.InstanceRepository](injector),
	}, nil
}
