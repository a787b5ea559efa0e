package worker

import (
	"context"
	"errors"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// NetworkAttachFailed captures attach failures reported by docks. The event
// stream carries failures for containers we do not own; those arrive without
// an instance id and are acknowledged with no effect. Everything here is
// best-effort: failures are logged, never escalated.
type NetworkAttachFailed struct {
	*Deps
}

func (h *NetworkAttachFailed) Type() string     { return job.TypeContainerNetworkAttachFailed }
func (h *NetworkAttachFailed) MaxAttempts() int { return 1 }
func (h *NetworkAttachFailed) NewPayload() any  { return &job.ContainerNetworkAttachFailed{} }

func (h *NetworkAttachFailed) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.ContainerNetworkAttachFailed)
	log := zerolog.Ctx(ctx)

	if p.InstanceID == "" {
		// Not one of ours.
		return nil
	}
	instanceID := entity.ID(p.InstanceID)

	n, err := h.Instances.SetNetworkAttachError(ctx, instanceID, p.ContainerID, p.Error)
	if err != nil {
		log.Error().Err(err).Str("instance", p.InstanceID).Msg("record network attach error")
		return nil
	}
	if n == 0 {
		log.Debug().Str("instance", p.InstanceID).Str("container", p.ContainerID).Msg("attach failure for detached container")
		return nil
	}

	inst, err := h.Instances.GetByID(ctx, instanceID)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			log.Error().Err(err).Str("instance", p.InstanceID).Msg("load instance for notification")
		}
		return nil
	}
	h.Notifier.InstanceUpdate(inst, 0, "errored", false)
	return nil
}
