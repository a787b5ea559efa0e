package worker

import (
	"context"
	"errors"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// InstanceContainerStart starts the container, attaches it to the owner's
// network, refreshes inspect data and rewrites the instance's
// service-discovery records. Record replacement is wholesale per container,
// so a redelivered start just writes the same entries again.
type InstanceContainerStart struct {
	*Deps
}

func (h *InstanceContainerStart) Type() string     { return job.TypeInstanceContainerStart }
func (h *InstanceContainerStart) MaxAttempts() int { return 4 }
func (h *InstanceContainerStart) NewPayload() any  { return &job.InstanceContainerStart{} }

func (h *InstanceContainerStart) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerStart)
	log := zerolog.Ctx(ctx)
	instanceID := entity.ID(p.InstanceID)

	client, err := h.Docks.For(p.Host)
	if err != nil {
		return err
	}
	if err := client.StartContainer(ctx, p.ContainerID); err != nil {
		if dock.IsClientError(err) {
			return job.Terminal("container start rejected", err)
		}
		return err
	}
	if err := client.AttachNetwork(ctx, p.ContainerID, h.orgNetwork(p.OwnerUsername)); err != nil {
		if dock.IsClientError(err) {
			return job.Terminal("network attach rejected", err)
		}
		return err
	}

	insp, err := client.InspectContainer(ctx, p.ContainerID)
	if err != nil {
		if dock.IsClientError(err) {
			return job.Terminal("container vanished after start", err)
		}
		return err
	}

	n, err := h.Instances.SetContainerStarted(ctx, instanceID, p.ContainerID, insp.Raw, insp.Ports, h.now())
	if err != nil {
		return err
	}
	if n == 0 {
		// The container was replaced while we were starting it. The replacement
		// owns the instance document now.
		log.Warn().Str("instance", p.InstanceID).Str("container", p.ContainerID).Msg("container detached before start completed")
		return nil
	}

	inst, err := h.Instances.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance not found", err)
		}
		return err
	}
	if err := h.Hosts.ReplaceForInstance(ctx, instanceID,
		h.hostRecords(inst, p.OwnerUsername, p.ContainerID, insp.Ports)); err != nil {
		return err
	}

	h.Notifier.InstanceUpdate(inst, p.TriggeredByID, "start", false)
	log.Info().Str("instance", p.InstanceID).Str("container", p.ContainerID).Msg("instance container started")
	return nil
}

func (h *InstanceContainerStart) FinalRetry(ctx context.Context, payload any) error {
	p := payload.(*job.InstanceContainerStart)
	_, err := h.Instances.SetNetworkAttachError(ctx,
		entity.ID(p.InstanceID), p.ContainerID, "container could not be started")
	return err
}
