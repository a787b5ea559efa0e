package worker

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// InstanceContainerCreated records the daemon-reported container against its
// instance, conditional on the instance still targeting the context version
// the container was built for. Zero matched rows means the instance was
// deleted or moved to a newer artifact; overwriting would resurrect stale
// state, so that outcome is terminal.
type InstanceContainerCreated struct {
	*Deps
}

func (h *InstanceContainerCreated) Type() string     { return job.TypeInstanceContainerCreated }
func (h *InstanceContainerCreated) MaxAttempts() int { return 3 }
func (h *InstanceContainerCreated) NewPayload() any  { return &job.InstanceContainerCreated{} }

func (h *InstanceContainerCreated) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerCreated)
	log := zerolog.Ctx(ctx)

	n, err := h.Instances.SetContainerOnCreate(ctx,
		entity.ID(p.InstanceID), entity.ID(p.ContextVersionID),
		entity.Container{
			ID:      p.ContainerID,
			Host:    p.Host,
			Inspect: p.Inspect,
			Ports:   p.Ports,
		})
	if err != nil {
		return err
	}
	if n == 0 {
		return job.Terminal("instance no longer targets this context version", nil)
	}
	log.Info().Str("instance", p.InstanceID).Str("container", p.ContainerID).Msg("instance container registered")

	return h.Bus.Publish(ctx, job.TypeInstanceContainerStart, job.InstanceContainerStart{
		InstanceID:    p.InstanceID,
		ContainerID:   p.ContainerID,
		Host:          p.Host,
		OwnerUsername: p.OwnerUsername,
		TriggeredByID: p.TriggeredByID,
	})
}
