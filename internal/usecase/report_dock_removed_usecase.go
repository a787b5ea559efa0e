package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/samber/do"
)

// ReportDockRemovedUsecase feeds a lost-host report into the cascade.
type ReportDockRemovedUsecase interface {
	Execute(ctx context.Context, host string) error
}

type reportDockRemovedUsecaseImpl struct {
	bus job.Publisher
}

// Execute implements ReportDockRemovedUsecase.
func (u *reportDockRemovedUsecaseImpl) Execute(ctx context.Context, host string) error {
	if host == "" {
		return entity.ErrInvalid
	}
	return u.bus.Publish(ctx, job.TypeDockRemoved, job.DockRemoved{Host: host})
}

func NewReportDockRemovedUsecase(injector *do.Injector) (ReportDockRemovedUsecase, error) {
	return &reportDockRemovedUsecaseImpl{
		bus: do.MustInvoke[job.Publisher](injector),
	}, nil
}
