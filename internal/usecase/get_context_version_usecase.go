package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/samber/do"
)

type GetContextVersionUsecase interface {
	Execute(ctx context.Context, id entity.ID) (*entity.ContextVersion, error)
}

type getContextVersionUsecaseImpl struct {
	cvs repository.ContextVersionRepository
}

// Execute implements GetContextVersionUsecase.
func (u *getContextVersionUsecaseImpl) Execute(ctx context.Context, id entity.ID) (*entity.ContextVersion, error) {
	return u.cvs.GetByID(ctx, id)
}

func NewGetContextVersionUsecase(injector *do.Injector) (GetContextVersionUsecase, error) {
	return &getContextVersionUsecaseImpl{
		cvs: do.MustInvoke[repository.ContextVersionRepository](injector),
	}, nil
}
