package worker

import (
	"context"
	"errors"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// InstanceContainerRedeploy replaces an instance's container with a fresh one
// from its current build. The container field is cleared atomically before
// anything is enqueued, so two racing redeploys can never both claim the old
// container: the loser's clear matches zero rows and its teardown is skipped.
type InstanceContainerRedeploy struct {
	*Deps
}

func (h *InstanceContainerRedeploy) Type() string     { return job.TypeInstanceContainerRedeploy }
func (h *InstanceContainerRedeploy) MaxAttempts() int { return 3 }
func (h *InstanceContainerRedeploy) NewPayload() any  { return &job.InstanceContainerRedeploy{} }

func (h *InstanceContainerRedeploy) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerRedeploy)
	log := zerolog.Ctx(ctx)

	inst, err := h.Instances.GetByID(ctx, entity.ID(p.InstanceID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance not found", err)
		}
		return err
	}
	build, err := h.Builds.GetByID(ctx, inst.BuildID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("build not found", err)
		}
		return err
	}
	if !build.Successful {
		return job.Terminal("cannot redeploy an unsuccessful build", nil)
	}
	cv, err := h.CVs.GetByID(ctx, build.ContextVersionID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("context version not found", err)
		}
		return err
	}

	owner, err := h.Identity.UsernameForOwner(ctx, inst.OrgID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("owner account is gone", err)
		}
		return err
	}

	old, err := h.Instances.ClearContainer(ctx, inst.ID)
	if err != nil {
		return err
	}
	if old != nil && old.ID != "" {
		if err := h.Bus.Publish(ctx, job.TypeInstanceContainerDelete, job.InstanceContainerDelete{
			InstanceID:  p.InstanceID,
			ContainerID: old.ID,
			Host:        old.Host,
		}); err != nil {
			return err
		}
	}

	if err := h.Bus.Publish(ctx, job.TypeInstanceContainerCreate, job.InstanceContainerCreate{
		InstanceID:       p.InstanceID,
		ContextVersionID: cv.ID.String(),
		OwnerUsername:    owner,
		TriggeredByID:    p.TriggeredByID,
		DeploymentID:     p.DeploymentID,
	}); err != nil {
		return err
	}

	h.Notifier.InstanceUpdate(inst, p.TriggeredByID, "redeploy", p.DeploymentID != "")
	log.Info().
		Str("instance", p.InstanceID).
		Str("deployment", p.DeploymentID).
		Bool("had_container", old != nil).
		Msg("redeploy enqueued")
	return nil
}
