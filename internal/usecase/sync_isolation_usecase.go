package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/samber/do"
)

// SyncIsolationUsecase propagates an instance's commit to its isolation
// group. With no instance given, the group's master is the source.
type SyncIsolationUsecase interface {
	Execute(ctx context.Context, isolationID, instanceID entity.ID, triggeredByID int64) error
}

type syncIsolationUsecaseImpl struct {
	isolations repository.IsolationGroupRepository
	bus        job.Publisher
}

// Execute implements SyncIsolationUsecase.
func (u *syncIsolationUsecaseImpl) Execute(ctx context.Context, isolationID, instanceID entity.ID, triggeredByID int64) error {
	if isolationID.Empty() || triggeredByID == 0 {
		return entity.ErrInvalid
	}
	group, err := u.isolations.GetByID(ctx, isolationID)
	if err != nil {
		return err
	}
	if instanceID.Empty() {
		instanceID = group.MasterInstanceID
	}
	return u.bus.Publish(ctx, job.TypeIsolationMatchCommit, job.IsolationMatchCommit{
		IsolationID:   isolationID.String(),
		InstanceID:    instanceID.String(),
		TriggeredByID: triggeredByID,
	})
}

func NewSyncIsolationUsecase(injector *do.Injector) (SyncIsolationUsecase, error) {
	return &syncIsolationUsecaseImpl{
		isolations: do.MustInvoke[repository.IsolationGroupRepository](injector),
		bus:        do.MustInvoke[job.Publisher](injector),
	}, nil
}
