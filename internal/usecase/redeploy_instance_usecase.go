package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/google/uuid"
	"github.com/samber/do"
)

// RedeployInstanceUsecase enqueues a redeploy and returns the deployment
// correlation id the caller can follow through the event feed.
type RedeployInstanceUsecase interface {
	Execute(ctx context.Context, instanceID entity.ID, triggeredByID int64) (string, error)
}

type redeployInstanceUsecaseImpl struct {
	instances repository.InstanceRepository
	bus       job.Publisher
}

// Execute implements RedeployInstanceUsecase.
func (u *redeployInstanceUsecaseImpl) Execute(ctx context.Context, instanceID entity.ID, triggeredByID int64) (string, error) {
	if instanceID.Empty() || triggeredByID == 0 {
		return "", entity.ErrInvalid
	}
	if _, err := u.instances.GetByID(ctx, instanceID); err != nil {
		return "", err
	}
	deploymentID := uuid.NewString()
	err := u.bus.Publish(ctx, job.TypeInstanceContainerRedeploy, job.InstanceContainerRedeploy{
		InstanceID:    instanceID.String(),
		TriggeredByID: triggeredByID,
		DeploymentID:  deploymentID,
	})
	if err != nil {
		return "", err
	}
	return deploymentID, nil
}

func NewRedeployInstanceUsecase(injector *do.Injector) (RedeployInstanceUsecase, error) {
	return &redeployInstanceUsecaseImpl{
		instances: do.MustInvoke[repository.InstanceRepository](injector),
		bus:       do.MustInvoke[job.Publisher](injector),
	}, nil
}
