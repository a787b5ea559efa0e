package worker

import (
	"context"
	"errors"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// InstanceRebuild rebuilds an instance's artifact from source instead of
// reusing its image: allocate a fresh build record, reset the context
// version onto it (optionally at a new commit), repoint the instance and
// enqueue a build container create. The old container, if any, is torn down
// the same way a redeploy would.
type InstanceRebuild struct {
	*Deps
}

func (h *InstanceRebuild) Type() string     { return job.TypeInstanceRebuild }
func (h *InstanceRebuild) MaxAttempts() int { return 3 }
func (h *InstanceRebuild) NewPayload() any  { return &job.InstanceRebuild{} }

func (h *InstanceRebuild) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceRebuild)
	log := zerolog.Ctx(ctx)

	inst, err := h.Instances.GetByID(ctx, entity.ID(p.InstanceID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance not found", err)
		}
		return err
	}
	cv, err := h.CVs.GetByID(ctx, inst.ContextVersionID)
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

	buildID := entity.NewID()
	now := h.now()
	if err := h.CVs.ResetBuild(ctx, cv.ID, buildID, p.Commit, now); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("context version vanished during rebuild", err)
		}
		return err
	}
	if _, err := h.Builds.Create(ctx, &entity.Build{
		ID:               buildID,
		OrgID:            inst.OrgID,
		ContextVersionID: cv.ID,
		StartedAt:        &now,
	}); err != nil {
		return err
	}
	if p.Commit != "" {
		if _, err := h.Instances.SetCommit(ctx, inst.ID, p.Commit); err != nil {
			return err
		}
	}
	if err := h.Instances.SetBuild(ctx, inst.ID, buildID, cv.ID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance vanished during rebuild", err)
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

	triggeredBy := p.TriggeredByID
	if triggeredBy == 0 {
		triggeredBy = inst.CreatedByID
	}
	if err := h.Bus.Publish(ctx, job.TypeBuildContainerCreate, job.BuildContainerCreate{
		ContextVersionID: cv.ID.String(),
		BuildID:          buildID.String(),
		OwnerUsername:    owner,
		TriggeredByID:    triggeredBy,
	}); err != nil {
		return err
	}

	h.Notifier.InstanceUpdate(inst, triggeredBy, "rebuild", p.DeploymentID != "")
	log.Info().
		Str("instance", p.InstanceID).
		Str("build", buildID.String()).
		Str("deployment", p.DeploymentID).
		Str("commit", p.Commit).
		Msg("rebuild enqueued")
	return nil
}
