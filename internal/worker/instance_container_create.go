package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/utils"
	"github.com/rs/zerolog"
)

// InstanceContainerCreate asks a dock to create the application container for
// an instance. The image-not-found special case splits on the build's age:
// younger than the grace window the image is still propagating and the job
// retries; older, the image is gone for good and the instance gets a rebuild
// instead of more retries.
type InstanceContainerCreate struct {
	*Deps
}

func (h *InstanceContainerCreate) Type() string     { return job.TypeInstanceContainerCreate }
func (h *InstanceContainerCreate) MaxAttempts() int { return 5 }
func (h *InstanceContainerCreate) NewPayload() any  { return &job.InstanceContainerCreate{} }

func (h *InstanceContainerCreate) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerCreate)
	log := zerolog.Ctx(ctx)

	inst, err := h.Instances.GetByID(ctx, entity.ID(p.InstanceID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance not found", err)
		}
		return err
	}
	if err := h.checkOwner(ctx, inst.OrgID); err != nil {
		return err
	}

	cv, err := h.CVs.GetByID(ctx, entity.ID(p.ContextVersionID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("context version not found", err)
		}
		return err
	}

	image := cv.Build.ContainerTag
	if image == "" {
		image = h.imageTag(p.OwnerUsername, cv.ID)
	}
	client, err := h.Docks.For(h.dockFor(cv))
	if err != nil {
		return err
	}
	ref, err := client.CreateRunContainer(ctx, dock.RunContainerSpec{
		InstanceID:       p.InstanceID,
		ContextVersionID: p.ContextVersionID,
		OwnerUsername:    p.OwnerUsername,
		Image:            image,
		Name:             fmt.Sprintf("%s-%s", utils.SanitizeName(inst.Name), inst.ShortHash),
		Env:              instanceEnv(inst),
	})
	if err != nil {
		switch {
		case dock.IsImageNotFound(err):
			if !cv.BuildCompletedBefore(h.now(), h.Config.ImageGraceWindow) {
				return fmt.Errorf("image %s still propagating: %w", image, err)
			}
			log.Warn().
				Str("instance", p.InstanceID).
				Str("image", image).
				Msg("image gone past grace window, requesting rebuild")
			return h.Bus.Publish(ctx, job.TypeInstanceRebuild, job.InstanceRebuild{
				InstanceID:    p.InstanceID,
				TriggeredByID: p.TriggeredByID,
				DeploymentID:  p.DeploymentID,
			})
		case dock.IsClientError(err):
			if serr := h.Instances.SetContainerError(ctx, inst.ID, cv.ID, err.Error()); serr != nil {
				log.Error().Err(serr).Str("instance", p.InstanceID).Msg("record container error")
			}
			return job.Terminal("container create rejected", err)
		default:
			return err
		}
	}

	log.Info().
		Str("instance", p.InstanceID).
		Str("container", ref.ID).
		Str("dock", ref.Host).
		Msg("requested instance container")
	return nil
}

func (h *InstanceContainerCreate) FinalRetry(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerCreate)
	return h.Instances.SetContainerError(ctx,
		entity.ID(p.InstanceID), entity.ID(p.ContextVersionID),
		"container could not be created")
}

// instanceEnv is the environment an application container starts with.
func instanceEnv(inst *entity.Instance) []string {
	return []string{
		"DRYDOCK_INSTANCE=" + inst.ID.String(),
		"DRYDOCK_REPO=" + inst.AppCode.Repo,
		"DRYDOCK_BRANCH=" + inst.AppCode.Branch,
		"DRYDOCK_COMMIT=" + inst.AppCode.Commit,
	}
}
