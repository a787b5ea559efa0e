package repository

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
)

func newTestInstanceRepo(t *testing.T) InstanceRepository {
	t.Helper()
	db, err := NewSQLiteDB("")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewInstanceRepository(db)
}

func seedInstance(t *testing.T, repo InstanceRepository, opts ...func(*entity.Instance)) *entity.Instance {
	t.Helper()
	inst := &entity.Instance{
		ID:               entity.NewID(),
		ShortHash:        "a1b2c3",
		Name:             "web",
		OrgID:            1,
		BuildID:          entity.NewID(),
		ContextVersionID: entity.NewID(),
		AppCode:          entity.AppCodeVersion{Repo: "acme/web", Branch: "main", Commit: "abc"},
	}
	for _, opt := range opts {
		opt(inst)
	}
	created, err := repo.Create(context.Background(), inst)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func TestSetContainerOnCreateMatchesCurrentArtifactOnly(t *testing.T) {
	repo := newTestInstanceRepo(t)
	ctx := context.Background()
	inst := seedInstance(t, repo)

	n, err := repo.SetContainerOnCreate(ctx, inst.ID, entity.NewID(), entity.Container{ID: "rc-1", Host: "h"})
	if err != nil {
		t.Fatalf("SetContainerOnCreate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("affected = %d; want 0 for mismatched artifact", n)
	}

	n, err = repo.SetContainerOnCreate(ctx, inst.ID, inst.ContextVersionID, entity.Container{ID: "rc-1", Host: "h"})
	if err != nil {
		t.Fatalf("SetContainerOnCreate() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d; want 1", n)
	}
	got, _ := repo.GetByID(ctx, inst.ID)
	if got.Container == nil || got.Container.ID != "rc-1" || got.Container.State != entity.ContainerStateStarting {
		t.Errorf("container = %+v", got.Container)
	}
}

func TestContainerPortsSurviveConditionalUpdates(t *testing.T) {
	repo := newTestInstanceRepo(t)
	ctx := context.Background()
	inst := seedInstance(t, repo)
	ports := []string{"80/tcp->0.0.0.0:32768", "443/tcp->0.0.0.0:32769"}

	n, err := repo.SetContainerOnCreate(ctx, inst.ID, inst.ContextVersionID, entity.Container{
		ID:    "rc-1",
		Host:  "h",
		Ports: ports,
	})
	if err != nil {
		t.Fatalf("SetContainerOnCreate() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d; want 1", n)
	}
	got, _ := repo.GetByID(ctx, inst.ID)
	if got.Container == nil || !reflect.DeepEqual(got.Container.Ports, ports) {
		t.Errorf("ports after create = %+v; want %v", got.Container, ports)
	}

	n, err = repo.SetContainerStarted(ctx, inst.ID, "rc-1",
		json.RawMessage(`{"State":{"Running":true}}`), ports, time.Now())
	if err != nil {
		t.Fatalf("SetContainerStarted() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("affected = %d; want 1", n)
	}
	got, _ = repo.GetByID(ctx, inst.ID)
	if got.Container == nil || got.Container.State != entity.ContainerStateRunning {
		t.Fatalf("container = %+v; want running", got.Container)
	}
	if !reflect.DeepEqual(got.Container.Ports, ports) {
		t.Errorf("ports after start = %v; want %v", got.Container.Ports, ports)
	}
}

func TestClearContainerReturnsOldExactlyOnce(t *testing.T) {
	repo := newTestInstanceRepo(t)
	ctx := context.Background()
	inst := seedInstance(t, repo, func(i *entity.Instance) {
		i.Container = &entity.Container{ID: "rc-old", Host: "h", State: entity.ContainerStateRunning}
	})

	old, err := repo.ClearContainer(ctx, inst.ID)
	if err != nil {
		t.Fatalf("ClearContainer() error = %v", err)
	}
	if old == nil || old.ID != "rc-old" {
		t.Fatalf("old = %+v; want rc-old", old)
	}

	again, err := repo.ClearContainer(ctx, inst.ID)
	if err != nil {
		t.Fatalf("second ClearContainer() error = %v", err)
	}
	if again != nil {
		t.Errorf("second clear returned %+v; want nil", again)
	}
	got, _ := repo.GetByID(ctx, inst.ID)
	if got.Container != nil {
		t.Errorf("container still present: %+v", got.Container)
	}
}

func TestFindRunningOrStartingOnHost(t *testing.T) {
	repo := newTestInstanceRepo(t)
	ctx := context.Background()
	onHost := func(id, state string) func(*entity.Instance) {
		return func(i *entity.Instance) {
			i.Container = &entity.Container{ID: id, Host: "tcp://dock-1:2375", State: entity.ContainerState(state)}
		}
	}
	running := seedInstance(t, repo, onHost("rc-1", "running"))
	starting := seedInstance(t, repo, onHost("rc-2", "starting"))
	seedInstance(t, repo, onHost("rc-3", "stopped"))
	seedInstance(t, repo, func(i *entity.Instance) {
		i.Container = &entity.Container{ID: "rc-4", Host: "tcp://dock-2:2375", State: entity.ContainerStateRunning}
	})

	found, err := repo.FindRunningOrStartingOnHost(ctx, "tcp://dock-1:2375")
	if err != nil {
		t.Fatalf("FindRunningOrStartingOnHost() error = %v", err)
	}
	ids := map[entity.ID]bool{}
	for _, f := range found {
		ids[f.ID] = true
	}
	if len(found) != 2 || !ids[running.ID] || !ids[starting.ID] {
		t.Errorf("found %v; want running and starting instances only", ids)
	}
}

func TestFindIsolationSiblingsFiltersRepoBranch(t *testing.T) {
	repo := newTestInstanceRepo(t)
	ctx := context.Background()
	groupID := entity.NewID()
	member := func(branch string) func(*entity.Instance) {
		return func(i *entity.Instance) {
			i.IsolationID = groupID
			i.AppCode.Branch = branch
		}
	}
	a := seedInstance(t, repo, member("main"))
	b := seedInstance(t, repo, member("main"))
	seedInstance(t, repo, member("feature"))
	seedInstance(t, repo) // outside the group

	found, err := repo.FindIsolationSiblings(ctx, groupID, "acme/web", "main")
	if err != nil {
		t.Fatalf("FindIsolationSiblings() error = %v", err)
	}
	ids := map[entity.ID]bool{}
	for _, f := range found {
		ids[f.ID] = true
	}
	if len(found) != 2 || !ids[a.ID] || !ids[b.ID] {
		t.Errorf("found %v; want the two main-branch members", ids)
	}
}
