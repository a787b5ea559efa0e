package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DockRemoved drains a lost host: running containers get redeployed
// elsewhere, in-flight builds get rebuilt, and the compute behind the host is
// released. The two branches run concurrently and independently; one
// instance failing its permission check is skipped, never fatal, because
// partial evacuation beats no evacuation.
type DockRemoved struct {
	*Deps
}

func (h *DockRemoved) Type() string     { return job.TypeDockRemoved }
func (h *DockRemoved) MaxAttempts() int { return 2 }
func (h *DockRemoved) NewPayload() any  { return &job.DockRemoved{} }

func (h *DockRemoved) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.DockRemoved)
	log := zerolog.Ctx(ctx)

	// The rebuild targets are found through the artifacts' dock host, which
	// the bookkeeping write below clears. Snapshot them first.
	building, err := h.Instances.FindBuildingOnHost(ctx, p.Host)
	if err != nil {
		return err
	}

	if n, err := h.CVs.MarkDockRemoved(ctx, p.Host); err != nil {
		// Bookkeeping only, not gating.
		log.Error().Err(err).Str("dock", p.Host).Msg("mark context versions dock-removed")
	} else {
		log.Info().Str("dock", p.Host).Int64("artifacts", n).Msg("marked artifacts dock-removed")
	}

	// One correlation id ties every job of the cascade together.
	deploymentID := uuid.NewString()

	var wg sync.WaitGroup
	var redeployErr, rebuildErr error
	wg.Go(func() {
		redeployErr = h.redeployBranch(ctx, p.Host, deploymentID)
	})
	wg.Go(func() {
		rebuildErr = h.rebuildBranch(ctx, p.Host, building, deploymentID)
	})
	wg.Wait()

	h.Fleet.TerminateComputeResource(ctx, p.Host)
	return errors.Join(redeployErr, rebuildErr)
}

func (h *DockRemoved) redeployBranch(ctx context.Context, host, deploymentID string) error {
	log := zerolog.Ctx(ctx)
	insts, err := h.Instances.FindRunningOrStartingOnHost(ctx, host)
	if err != nil {
		return err
	}
	enqueued := make([]*entity.Instance, 0, len(insts))
	for _, inst := range insts {
		if !h.permitted(ctx, inst, "redeploy") {
			continue
		}
		if err := h.Bus.Publish(ctx, job.TypeInstanceContainerRedeploy, job.InstanceContainerRedeploy{
			InstanceID:    inst.ID.String(),
			TriggeredByID: inst.CreatedByID,
			DeploymentID:  deploymentID,
		}); err != nil {
			log.Error().Err(err).Str("instance", inst.ID.String()).Msg("enqueue cascade redeploy")
			continue
		}
		enqueued = append(enqueued, inst)
	}
	for _, inst := range enqueued {
		h.Notifier.InstanceUpdate(inst, inst.CreatedByID, "redeploy", true)
	}
	log.Info().Str("dock", host).Int("instances", len(enqueued)).Msg("cascade redeploys enqueued")
	return nil
}

func (h *DockRemoved) rebuildBranch(ctx context.Context, host string, insts []*entity.Instance, deploymentID string) error {
	log := zerolog.Ctx(ctx)
	enqueued := make([]*entity.Instance, 0, len(insts))
	for _, inst := range insts {
		if !h.permitted(ctx, inst, "rebuild") {
			continue
		}
		if err := h.Bus.Publish(ctx, job.TypeInstanceRebuild, job.InstanceRebuild{
			InstanceID:    inst.ID.String(),
			TriggeredByID: inst.CreatedByID,
			DeploymentID:  deploymentID,
		}); err != nil {
			log.Error().Err(err).Str("instance", inst.ID.String()).Msg("enqueue cascade rebuild")
			continue
		}
		enqueued = append(enqueued, inst)
	}
	for _, inst := range enqueued {
		h.Notifier.InstanceUpdate(inst, inst.CreatedByID, "rebuild", true)
	}
	log.Info().Str("dock", host).Int("instances", len(enqueued)).Msg("cascade rebuilds enqueued")
	return nil
}

// permitted applies the cascade's permission filter. Denied and unknown orgs
// are skipped with a log line; the cascade carries on.
func (h *DockRemoved) permitted(ctx context.Context, inst *entity.Instance, action string) bool {
	err := h.Gate.CheckOwnerAllowed(ctx, inst.OrgID)
	if err == nil {
		return true
	}
	zerolog.Ctx(ctx).Warn().Err(err).
		Str("instance", inst.ID.String()).
		Int64("org", inst.OrgID).
		Str("action", action).
		Msg("skipping instance in dock-loss cascade")
	return false
}
