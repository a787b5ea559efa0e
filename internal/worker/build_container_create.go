package worker

import (
	"context"
	"errors"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// BuildContainerCreate asks a dock to create the image-builder container for
// a context version. No local state changes here: the daemon's own
// container-created event drives the next transition.
type BuildContainerCreate struct {
	*Deps
}

func (h *BuildContainerCreate) Type() string     { return job.TypeBuildContainerCreate }
func (h *BuildContainerCreate) MaxAttempts() int { return 5 }
func (h *BuildContainerCreate) NewPayload() any  { return &job.BuildContainerCreate{} }

func (h *BuildContainerCreate) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerCreate)
	log := zerolog.Ctx(ctx)
	buildID := entity.ID(p.BuildID)

	cv, err := h.CVs.GetByID(ctx, entity.ID(p.ContextVersionID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			h.failBuild(ctx, buildID, "context version not found")
			return job.Terminal("context version not found", err)
		}
		return err
	}

	if err := h.checkOwner(ctx, cv.OrgID); err != nil {
		if job.IsTerminal(err) {
			h.failBuild(ctx, buildID, "organization is not allowed to build")
		}
		return err
	}

	client, err := h.Docks.For(h.Config.SchedulerHost)
	if err != nil {
		return err
	}
	ref, err := client.CreateBuildContainer(ctx, dock.BuildContainerSpec{
		BuildID:          p.BuildID,
		ContextVersionID: p.ContextVersionID,
		OwnerUsername:    p.OwnerUsername,
		Tag:              h.imageTag(p.OwnerUsername, cv.ID),
		Manifest:         cv.Manifest,
		NoCache:          p.NoCache,
		Manual:           p.Manual,
	})
	if err != nil {
		if dock.IsClientError(err) {
			h.failBuild(ctx, buildID, "build container create rejected: "+err.Error())
			return job.Terminal("build container create rejected", err)
		}
		return err
	}

	log.Info().
		Str("build", p.BuildID).
		Str("container", ref.ID).
		Str("dock", ref.Host).
		Msg("requested build container")
	return nil
}

func (h *BuildContainerCreate) FinalRetry(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerCreate)
	h.failBuild(ctx, entity.ID(p.BuildID), "build container could not be created")
	return nil
}
