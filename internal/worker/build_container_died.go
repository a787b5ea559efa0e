package worker

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// BuildContainerDied finishes a build when its container exits. A zero exit
// code with no reported error means the image was built and pushed.
type BuildContainerDied struct {
	*Deps
}

func (h *BuildContainerDied) Type() string     { return job.TypeBuildContainerDied }
func (h *BuildContainerDied) MaxAttempts() int { return 3 }
func (h *BuildContainerDied) NewPayload() any  { return &job.BuildContainerDied{} }

func (h *BuildContainerDied) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.BuildContainerDied)
	log := zerolog.Ctx(ctx)
	buildID := entity.ID(p.BuildID)

	successful := p.ExitCode == 0 && p.Error == ""
	reason := p.Error
	if !successful && reason == "" {
		reason = "image build exited non-zero"
	}

	n, err := h.CVs.MarkBuildCompleted(ctx, buildID, successful, reason, p.DiedAt)
	if err != nil {
		return err
	}
	if n == 0 {
		// Redelivery of an already-finished build.
		log.Debug().Str("build", p.BuildID).Msg("build already completed")
		return nil
	}
	if err := h.Builds.MarkCompleted(ctx, buildID, successful, reason, p.DiedAt); err != nil {
		return err
	}

	event := "build_completed"
	if !successful {
		event = "build_failed"
	}
	h.Notifier.BuildUpdate(buildID, event)

	log.Info().
		Str("build", p.BuildID).
		Bool("successful", successful).
		Int64("artifacts", n).
		Msg("build finished")
	return nil
}
