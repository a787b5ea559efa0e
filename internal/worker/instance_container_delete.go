package worker

import (
	"context"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// InstanceContainerDelete tears down a detached container and its
// service-discovery records. The container may already be gone; that is the
// common case after a dock loss and counts as success.
type InstanceContainerDelete struct {
	*Deps
}

func (h *InstanceContainerDelete) Type() string     { return job.TypeInstanceContainerDelete }
func (h *InstanceContainerDelete) MaxAttempts() int { return 4 }
func (h *InstanceContainerDelete) NewPayload() any  { return &job.InstanceContainerDelete{} }

func (h *InstanceContainerDelete) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerDelete)
	log := zerolog.Ctx(ctx)

	client, err := h.Docks.For(p.Host)
	if err != nil {
		return err
	}
	if err := client.StopContainer(ctx, p.ContainerID); err != nil && !dock.IsNotFound(err) {
		if dock.IsClientError(err) {
			return job.Terminal("container stop rejected", err)
		}
		return err
	}
	if err := client.RemoveContainer(ctx, p.ContainerID); err != nil && !dock.IsNotFound(err) {
		if dock.IsClientError(err) {
			return job.Terminal("container remove rejected", err)
		}
		return err
	}

	if err := h.Hosts.DeleteForContainer(ctx, p.ContainerID); err != nil {
		return err
	}
	log.Info().Str("instance", p.InstanceID).Str("container", p.ContainerID).Msg("removed old container")
	return nil
}
