package worker

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// BuildContainerCreated reacts to the daemon reporting the build container
// exists: advance every context version of the build to buildStarting, then
// enqueue the start. The multi-update's filter is the dedupe guard against a
// second created-event racing this one; matching nothing means another
// delivery already advanced the build (or it never validly started), and
// retrying cannot change that.
type BuildContainerCreated struct {
	*Deps
}

func (h *BuildContainerCreated) Type() string     { return job.TypeBuildContainerCreated }
func (h *BuildContainerCreated) MaxAttempts() int { return 3 }
func (h *BuildContainerCreated) NewPayload() any  { return &job.BuildContainerCreated{} }

func (h *BuildContainerCreated) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerCreated)
	log := zerolog.Ctx(ctx)
	buildID := entity.ID(p.BuildID)

	n, err := h.CVs.MarkBuildStarting(ctx, buildID, p.Host, p.ContainerID, p.ContainerTag)
	if err != nil {
		return err
	}
	if n == 0 {
		h.failBuild(ctx, buildID, "no valid artifact found to start")
		return job.Terminal("no valid artifact found to start", nil)
	}
	log.Info().Str("build", p.BuildID).Int64("artifacts", n).Msg("build container registered")

	return h.Bus.Publish(ctx, job.TypeBuildContainerStart, job.BuildContainerStart{
		BuildID:     p.BuildID,
		Host:        p.Host,
		ContainerID: p.ContainerID,
		CreatedAt:   p.CreatedAt,
	})
}
