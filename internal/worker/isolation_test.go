package worker

import (
	"context"
	"testing"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
)

func seedIsolationGroup(t *testing.T, h *harness, master *entity.Instance) entity.ID {
	t.Helper()
	group, err := h.deps.Isolations.Create(context.Background(), &entity.IsolationGroup{
		ID:               entity.NewID(),
		MasterInstanceID: master.ID,
	})
	if err != nil {
		t.Fatalf("seed isolation group: %v", err)
	}
	return group.ID
}

func inGroup(groupID entity.ID, commit string) instOpt {
	return func(inst *entity.Instance) {
		inst.IsolationID = groupID
		inst.AppCode.Commit = commit
	}
}

func TestIsolationMatchCommitNoSiblingsIsTerminal(t *testing.T) {
	h := newHarness(t)
	cv := h.seedContextVersion(t)
	groupID := entity.NewID()
	master := h.seedInstance(t, cv, inGroup(groupID, "abc123"), func(i *entity.Instance) {
		i.IsolationMaster = true
	})

	handler := &IsolationMatchCommit{h.deps}
	err := handler.Handle(context.Background(), &job.IsolationMatchCommit{
		IsolationID:   groupID.String(),
		InstanceID:    master.ID.String(),
		TriggeredByID: testUserID,
	})
	if !job.IsTerminal(err) {
		t.Fatalf("Handle() error = %v; want terminal", err)
	}
}

func TestIsolationMatchCommitNoopWhenAllCurrent(t *testing.T) {
	h := newHarness(t)
	cv := h.seedContextVersion(t)
	groupID := entity.NewID()
	master := h.seedInstance(t, cv, inGroup(groupID, "abc123"), func(i *entity.Instance) {
		i.IsolationMaster = true
	})
	h.seedInstance(t, cv, inGroup(groupID, "abc123"))
	h.seedInstance(t, cv, inGroup(groupID, "abc123"))

	handler := &IsolationMatchCommit{h.deps}
	err := handler.Handle(context.Background(), &job.IsolationMatchCommit{
		IsolationID:   groupID.String(),
		InstanceID:    master.ID.String(),
		TriggeredByID: testUserID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v; want nil", err)
	}
	if len(h.pub.all()) != 0 {
		t.Errorf("published %d jobs; want 0", len(h.pub.all()))
	}
}

func TestIsolationMatchCommitFansOutToStaleSiblings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cv := h.seedContextVersion(t)
	groupID := entity.NewID()
	master := h.seedInstance(t, cv, inGroup(groupID, "new999"), func(i *entity.Instance) {
		i.IsolationMaster = true
	})
	stale := []*entity.Instance{
		h.seedInstance(t, cv, inGroup(groupID, "old111")),
		h.seedInstance(t, cv, inGroup(groupID, "old222")),
		h.seedInstance(t, cv, inGroup(groupID, "old333")),
	}
	current := h.seedInstance(t, cv, inGroup(groupID, "new999"))
	// A group member on another branch is not a sibling.
	h.seedInstance(t, cv, inGroup(groupID, "old111"), func(i *entity.Instance) {
		i.AppCode.Branch = "feature"
	})

	handler := &IsolationMatchCommit{h.deps}
	err := handler.Handle(ctx, &job.IsolationMatchCommit{
		IsolationID:   groupID.String(),
		InstanceID:    master.ID.String(),
		TriggeredByID: testUserID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	rebuilds := h.pub.ofType(job.TypeInstanceRebuild)
	if len(rebuilds) != len(stale) {
		t.Fatalf("published %d rebuild jobs; want %d", len(rebuilds), len(stale))
	}
	targets := map[string]bool{}
	for _, j := range rebuilds {
		p := j.Payload.(job.InstanceRebuild)
		if p.Commit != "new999" {
			t.Errorf("rebuild commit = %q; want new999", p.Commit)
		}
		targets[p.InstanceID] = true
	}
	for _, sib := range stale {
		if !targets[sib.ID.String()] {
			t.Errorf("sibling %s got no rebuild", sib.ID)
		}
		got, _ := h.deps.Instances.GetByID(ctx, sib.ID)
		if got.AppCode.Commit != "new999" {
			t.Errorf("sibling %s commit = %q; want new999", sib.ID, got.AppCode.Commit)
		}
	}
	if targets[current.ID.String()] {
		t.Error("sibling already at the commit was rebuilt")
	}
	if targets[master.ID.String()] {
		t.Error("the changed instance itself was rebuilt")
	}
}
