package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// IsolationMatchCommit brings the members of an isolation group that share
// the changed instance's repo and branch up to its commit. Siblings already
// at the commit are skipped, so a retried job re-resolves current state and
// only touches what is still behind.
type IsolationMatchCommit struct {
	*Deps
}

func (h *IsolationMatchCommit) Type() string     { return job.TypeIsolationMatchCommit }
func (h *IsolationMatchCommit) MaxAttempts() int { return 3 }
func (h *IsolationMatchCommit) NewPayload() any  { return &job.IsolationMatchCommit{} }

func (h *IsolationMatchCommit) Handle(ctx context.Context, payload any) error {
	p := payload.(*job.IsolationMatchCommit)
	log := zerolog.Ctx(ctx)

	inst, err := h.Instances.GetByID(ctx, entity.ID(p.InstanceID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return job.Terminal("instance not found", err)
		}
		return err
	}

	members, err := h.Instances.FindIsolationSiblings(ctx,
		entity.ID(p.IsolationID), inst.AppCode.Repo, inst.AppCode.Branch)
	if err != nil {
		return err
	}
	siblings := lo.Filter(members, func(m *entity.Instance, _ int) bool {
		return m.ID != inst.ID
	})
	if len(siblings) == 0 {
		return job.Terminal("no siblings share this repo and branch", nil)
	}

	target := inst.AppCode.Commit
	behind := lo.Filter(siblings, func(m *entity.Instance, _ int) bool {
		return m.AppCode.Commit != target
	})
	if len(behind) == 0 {
		log.Debug().Str("isolation", p.IsolationID).Str("commit", target).Msg("all siblings already at commit")
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(behind))
	for i, sib := range behind {
		wg.Go(func() {
			errs[i] = h.updateSibling(ctx, sib, target, p.TriggeredByID)
		})
	}
	wg.Wait()

	for _, err := range errs {
		// A vanished sibling means the group is inconsistent and needs an
		// operator; transient failures let the whole job retry.
		if job.IsTerminal(err) {
			return err
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info().
		Str("isolation", p.IsolationID).
		Str("commit", target).
		Int("siblings", len(behind)).
		Msg("isolation commit propagated")
	return nil
}

func (h *IsolationMatchCommit) updateSibling(ctx context.Context, sib *entity.Instance, commit string, triggeredBy int64) error {
	n, err := h.Instances.SetCommit(ctx, sib.ID, commit)
	if err != nil {
		return err
	}
	if n == 0 {
		return job.Terminal("isolation sibling vanished", nil)
	}
	return h.Bus.Publish(ctx, job.TypeInstanceRebuild, job.InstanceRebuild{
		InstanceID:    sib.ID.String(),
		TriggeredByID: triggeredBy,
		Commit:        commit,
	})
}
