package worker

import (
	"context"
	"fmt"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// BuildContainerStart starts the build container and advances the build's
// context versions to buildStarted. A 404 from the dock is split on the
// container's age: the daemon may simply not have registered a young
// container yet, while an old one is never coming.
type BuildContainerStart struct {
	*Deps
}

func (h *BuildContainerStart) Type() string     { return job.TypeBuildContainerStart }
func (h *BuildContainerStart) MaxAttempts() int { return 4 }
func (h *BuildContainerStart) NewPayload() any  { return &job.BuildContainerStart{} }

func (h *BuildContainerStart) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerStart)
	log := zerolog.Ctx(ctx)
	buildID := entity.ID(p.BuildID)

	client, err := h.Docks.For(p.Host)
	if err != nil {
		return err
	}
	if err := client.StartContainer(ctx, p.ContainerID); err != nil {
		switch {
		case dock.IsNotFound(err):
			age := h.now().Sub(p.CreatedAt)
			if age < h.Config.RegisterGraceWindow {
				return fmt.Errorf("container %s not registered yet (age %s): %w", p.ContainerID, age, err)
			}
			h.failBuild(ctx, buildID, "build container disappeared before start")
			return job.Terminal("build container disappeared before start", err)
		case dock.IsClientError(err):
			h.failBuild(ctx, buildID, "build container start rejected: "+err.Error())
			return job.Terminal("build container start rejected", err)
		default:
			return err
		}
	}

	now := h.now()
	cvs, err := h.CVs.MarkBuildStarted(ctx, buildID, now)
	if err != nil {
		return err
	}
	for _, cv := range cvs {
		h.Notifier.ArtifactUpdate(cv, "build_started")
		if err := h.CVs.MarkRecovered(ctx, cv.ID); err != nil {
			log.Error().Err(err).Str("context_version", cv.ID.String()).Msg("mark recovered")
		}
	}
	h.Notifier.BuildUpdate(buildID, "build_started")

	log.Info().Str("build", p.BuildID).Int("artifacts", len(cvs)).Msg("build container started")
	return nil
}

func (h *BuildContainerStart) FinalRetry(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerStart)
	h.failBuild(ctx, entity.ID(p.BuildID), "build container could not be started")
	return nil
}
