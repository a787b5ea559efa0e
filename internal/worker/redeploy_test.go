package worker

import (
	"context"
	"testing"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/job"
)

func TestRedeployEnqueuesTeardownThenCreate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cv := h.seedContextVersion(t, func(cv *entity.ContextVersion) {
		cv.State = entity.CVStateBuilt
	})
	h.seedBuild(t, cv, true)
	inst := h.seedInstance(t, cv, func(i *entity.Instance) {
		i.Container = &entity.Container{ID: "rc-old", Host: "tcp://dock-1:2375", State: entity.ContainerStateRunning}
	})

	handler := &InstanceContainerRedeploy{h.deps}
	err := handler.Handle(ctx, &job.InstanceContainerRedeploy{
		InstanceID:    inst.ID.String(),
		TriggeredByID: testUserID,
		DeploymentID:  "dep-1",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	jobs := h.pub.all()
	if len(jobs) != 2 {
		t.Fatalf("published %d jobs; want 2", len(jobs))
	}
	if jobs[0].Type != job.TypeInstanceContainerDelete || jobs[1].Type != job.TypeInstanceContainerCreate {
		t.Errorf("job order = [%s %s]; want [delete create]", jobs[0].Type, jobs[1].Type)
	}
	del := jobs[0].Payload.(job.InstanceContainerDelete)
	if del.ContainerID != "rc-old" {
		t.Errorf("delete targets %q; want rc-old", del.ContainerID)
	}
	create := jobs[1].Payload.(job.InstanceContainerCreate)
	if create.DeploymentID != "dep-1" || create.ContextVersionID != cv.ID.String() {
		t.Errorf("unexpected create payload: %+v", create)
	}

	got, _ := h.deps.Instances.GetByID(ctx, inst.ID)
	if got.Container != nil {
		t.Errorf("container not cleared: %+v", got.Container)
	}
}

func TestRedeployTwiceTearsDownOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cv := h.seedContextVersion(t, func(cv *entity.ContextVersion) {
		cv.State = entity.CVStateBuilt
	})
	h.seedBuild(t, cv, true)
	inst := h.seedInstance(t, cv, func(i *entity.Instance) {
		i.Container = &entity.Container{ID: "rc-old", Host: "tcp://dock-1:2375", State: entity.ContainerStateRunning}
	})

	handler := &InstanceContainerRedeploy{h.deps}
	for i := 0; i < 2; i++ {
		if err := handler.Handle(ctx, &job.InstanceContainerRedeploy{
			InstanceID:    inst.ID.String(),
			TriggeredByID: testUserID,
		}); err != nil {
			t.Fatalf("Handle() #%d error = %v", i+1, err)
		}
	}

	// The second invocation finds the container already claimed: one
	// teardown, two creates.
	if deletes := h.pub.ofType(job.TypeInstanceContainerDelete); len(deletes) != 1 {
		t.Errorf("published %d delete jobs; want 1", len(deletes))
	}
	if creates := h.pub.ofType(job.TypeInstanceContainerCreate); len(creates) != 2 {
		t.Errorf("published %d create jobs; want 2", len(creates))
	}
}

func TestRedeployUnsuccessfulBuildIsTerminal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cv := h.seedContextVersion(t, func(cv *entity.ContextVersion) {
		cv.State = entity.CVStateErrored
	})
	h.seedBuild(t, cv, false)
	inst := h.seedInstance(t, cv)

	handler := &InstanceContainerRedeploy{h.deps}
	err := handler.Handle(ctx, &job.InstanceContainerRedeploy{
		InstanceID:    inst.ID.String(),
		TriggeredByID: testUserID,
	})
	if !job.IsTerminal(err) {
		t.Fatalf("Handle() error = %v; want terminal", err)
	}
	if len(h.pub.all()) != 0 {
		t.Errorf("published %d jobs; want 0", len(h.pub.all()))
	}
}

func TestRebuildAllocatesFreshBuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cv := h.seedContextVersion(t, func(cv *entity.ContextVersion) {
		cv.State = entity.CVStateBuilt
	})
	h.seedBuild(t, cv, true)
	inst := h.seedInstance(t, cv, func(i *entity.Instance) {
		i.Container = &entity.Container{ID: "rc-old", Host: "tcp://dock-1:2375", State: entity.ContainerStateRunning}
	})

	handler := &InstanceRebuild{h.deps}
	err := handler.Handle(ctx, &job.InstanceRebuild{
		InstanceID:    inst.ID.String(),
		TriggeredByID: testUserID,
		Commit:        "def456",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	gotCV, _ := h.deps.CVs.GetByID(ctx, cv.ID)
	if gotCV.Build.ID == cv.Build.ID {
		t.Error("context version still points at the old build")
	}
	if gotCV.State != entity.CVStateCreated {
		t.Errorf("state = %q; want %q", gotCV.State, entity.CVStateCreated)
	}
	if gotCV.AppCode.Commit != "def456" {
		t.Errorf("commit = %q; want def456", gotCV.AppCode.Commit)
	}

	gotInst, _ := h.deps.Instances.GetByID(ctx, inst.ID)
	if gotInst.BuildID != gotCV.Build.ID {
		t.Errorf("instance build = %s; want %s", gotInst.BuildID, gotCV.Build.ID)
	}
	if gotInst.AppCode.Commit != "def456" {
		t.Errorf("instance commit = %q; want def456", gotInst.AppCode.Commit)
	}
	if gotInst.Container != nil {
		t.Errorf("old container not cleared: %+v", gotInst.Container)
	}

	if deletes := h.pub.ofType(job.TypeInstanceContainerDelete); len(deletes) != 1 {
		t.Errorf("published %d delete jobs; want 1", len(deletes))
	}
	creates := h.pub.ofType(job.TypeBuildContainerCreate)
	if len(creates) != 1 {
		t.Fatalf("published %d build create jobs; want 1", len(creates))
	}
	p := creates[0].Payload.(job.BuildContainerCreate)
	if p.BuildID != gotCV.Build.ID.String() || p.OwnerUsername != testOwner {
		t.Errorf("unexpected build create payload: %+v", p)
	}
}
