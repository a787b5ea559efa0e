package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/gate"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

const (
	testOrgID     = int64(42)
	testOwner     = "acme"
	testUserID    = int64(7)
	disallowedOrg = int64(66)
	unknownOrg    = int64(99)
)

type published struct {
	Type    string
	Payload any
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []published
}

func (p *fakePublisher) Publish(ctx context.Context, jobType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, published{Type: jobType, Payload: payload})
	return nil
}

func (p *fakePublisher) ofType(jobType string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, j := range p.jobs {
		if j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.jobs...)
}

type fakeIdentity struct {
	users map[int64]string
}

func (f *fakeIdentity) UsernameForOwner(ctx context.Context, ownerID int64) (string, error) {
	name, ok := f.users[ownerID]
	if !ok {
		return "", entity.ErrNotFound
	}
	return name, nil
}

type fakeFleet struct {
	mu         sync.Mutex
	terminated []string
}

func (f *fakeFleet) TerminateComputeResource(ctx context.Context, host string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, host)
}

type fakeClient struct {
	mu sync.Mutex

	createBuildErr error
	createRunErr   error
	startErr       error
	inspect        dock.Inspect

	builds   []dock.BuildContainerSpec
	runs     []dock.RunContainerSpec
	started  []string
	stopped  []string
	removed  []string
	attached []string
}

func (c *fakeClient) CreateBuildContainer(ctx context.Context, spec dock.BuildContainerSpec) (dock.ContainerRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createBuildErr != nil {
		return dock.ContainerRef{}, c.createBuildErr
	}
	c.builds = append(c.builds, spec)
	return dock.ContainerRef{ID: "bc-" + spec.BuildID, Host: "tcp://dock-1:2375"}, nil
}

func (c *fakeClient) CreateRunContainer(ctx context.Context, spec dock.RunContainerSpec) (dock.ContainerRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createRunErr != nil {
		return dock.ContainerRef{}, c.createRunErr
	}
	c.runs = append(c.runs, spec)
	return dock.ContainerRef{ID: "rc-" + spec.InstanceID, Host: "tcp://dock-1:2375"}, nil
}

func (c *fakeClient) StartContainer(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = append(c.started, id)
	return nil
}

func (c *fakeClient) StopContainer(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = append(c.stopped, id)
	return nil
}

func (c *fakeClient) RemoveContainer(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, id)
	return nil
}

func (c *fakeClient) AttachNetwork(ctx context.Context, id, network string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = append(c.attached, id+"@"+network)
	return nil
}

func (c *fakeClient) InspectContainer(ctx context.Context, id string) (dock.Inspect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inspect, nil
}

type fakePool struct {
	client *fakeClient
}

func (p *fakePool) For(host string) (dock.Client, error) { return p.client, nil }

type harness struct {
	deps  *Deps
	pub   *fakePublisher
	dockC *fakeClient
	fleet *fakeFleet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.NewSQLiteDB("")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	pub := &fakePublisher{}
	dockC := &fakeClient{inspect: dock.Inspect{State: "running", Running: true}}
	fleetMgr := &fakeFleet{}
	orgs := repository.NewOrgRepository(db)

	ctx := context.Background()
	if err := orgs.Upsert(ctx, &entity.OrgRecord{OrgID: testOrgID, Name: testOwner, Allowed: true}); err != nil {
		t.Fatalf("seed org: %v", err)
	}
	if err := orgs.Upsert(ctx, &entity.OrgRecord{OrgID: disallowedOrg, Name: "banned", Allowed: false}); err != nil {
		t.Fatalf("seed org: %v", err)
	}

	deps := &Deps{
		CVs:        repository.NewContextVersionRepository(db),
		Builds:     repository.NewBuildRepository(db),
		Instances:  repository.NewInstanceRepository(db),
		Isolations: repository.NewIsolationGroupRepository(db),
		Hosts:      repository.NewHostRecordRepository(db),
		Gate:       gate.New(orgs),
		Docks:      &fakePool{client: dockC},
		Identity:   &fakeIdentity{users: map[int64]string{testOrgID: testOwner}},
		Notifier:   notify.Nop{},
		Fleet:      fleetMgr,
		Bus:        pub,
		Config:     DefaultConfig(),
		Clock:      func() time.Time { return testNow },
	}
	return &harness{deps: deps, pub: pub, dockC: dockC, fleet: fleetMgr}
}

type cvOpt func(*entity.ContextVersion)

func (h *harness) seedContextVersion(t *testing.T, opts ...cvOpt) *entity.ContextVersion {
	t.Helper()
	started := testNow.Add(-10 * time.Minute)
	cv := &entity.ContextVersion{
		ID:          entity.NewID(),
		OrgID:       testOrgID,
		CreatedByID: testUserID,
		State:       entity.CVStateCreated,
		AppCode:     entity.AppCodeVersion{Repo: "acme/web", Branch: "main", Commit: "abc123"},
		Build: entity.BuildRecord{
			ID:        entity.NewID(),
			StartedAt: &started,
		},
		Manifest: []entity.ManifestFile{{Path: "Dockerfile", Body: "FROM scratch"}},
	}
	for _, opt := range opts {
		opt(cv)
	}
	created, err := h.deps.CVs.Create(context.Background(), cv)
	if err != nil {
		t.Fatalf("seed context version: %v", err)
	}
	return created
}

func (h *harness) seedBuild(t *testing.T, cv *entity.ContextVersion, successful bool) *entity.Build {
	t.Helper()
	b := &entity.Build{
		ID:               cv.Build.ID,
		OrgID:            cv.OrgID,
		ContextVersionID: cv.ID,
		StartedAt:        cv.Build.StartedAt,
		Successful:       successful,
	}
	created, err := h.deps.Builds.Create(context.Background(), b)
	if err != nil {
		t.Fatalf("seed build: %v", err)
	}
	return created
}

type instOpt func(*entity.Instance)

func (h *harness) seedInstance(t *testing.T, cv *entity.ContextVersion, opts ...instOpt) *entity.Instance {
	t.Helper()
	inst := &entity.Instance{
		ID:               entity.NewID(),
		ShortHash:        "a1b2c3",
		Name:             "web",
		OrgID:            testOrgID,
		CreatedByID:      testUserID,
		BuildID:          cv.Build.ID,
		ContextVersionID: cv.ID,
		AppCode:          cv.AppCode,
	}
	for _, opt := range opts {
		opt(inst)
	}
	created, err := h.deps.Instances.Create(context.Background(), inst)
	if err != nil {
		t.Fatalf("seed instance: %v", err)
	}
	return created
}

func notFoundErr(op string) error {
	return &dock.Error{Kind: dock.KindNotFound, Op: op, Cause: errors.New("no such container")}
}

func imageNotFoundErr() error {
	return &dock.Error{Kind: dock.KindImageNotFound, Op: "create run container", Cause: errors.New("no such image")}
}
