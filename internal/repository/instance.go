package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

type InstanceRepository interface {
	Create(ctx context.Context, inst *entity.Instance) (*entity.Instance, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Instance, error)

	// SetContainerOnCreate records the freshly created container, but only if
	// the instance still targets the context version the job was created for.
	// Zero affected rows means the instance moved on; callers treat that as
	// terminal rather than overwrite newer state.
	SetContainerOnCreate(ctx context.Context, id, contextVersionID entity.ID, c entity.Container) (int64, error)

	// SetContainerStarted flips the container to running and refreshes its
	// inspect data, conditional on the container still being attached.
	SetContainerStarted(ctx context.Context, id entity.ID, containerID string, inspect json.RawMessage, ports []string, at time.Time) (int64, error)

	// SetContainerError records a container-level failure so the owning user
	// can see why the instance is not coming up.
	SetContainerError(ctx context.Context, id, contextVersionID entity.ID, msg string) error

	// SetNetworkAttachError records a network attach failure against the
	// named container.
	SetNetworkAttachError(ctx context.Context, id entity.ID, containerID, msg string) (int64, error)

	// ClearContainer atomically detaches the current container and returns
	// it for teardown. Returns nil when there was none (or a concurrent
	// caller already took it).
	ClearContainer(ctx context.Context, id entity.ID) (*entity.Container, error)

	// SetBuild repoints the instance at a build and its primary context
	// version, as happens on rebuild.
	SetBuild(ctx context.Context, id, buildID, contextVersionID entity.ID) error

	// SetCommit advances the instance's app code to commit.
	SetCommit(ctx context.Context, id entity.ID, commit string) (int64, error)

	// FindRunningOrStartingOnHost lists instances whose container lives on
	// host, for the redeploy branch of the dock-loss cascade.
	FindRunningOrStartingOnHost(ctx context.Context, host string) ([]*entity.Instance, error)

	// FindBuildingOnHost lists instances whose context version is still
	// building on host, for the rebuild branch of the dock-loss cascade.
	FindBuildingOnHost(ctx context.Context, host string) ([]*entity.Instance, error)

	// FindIsolationSiblings lists the members of an isolation group pinned to
	// the same repo and branch.
	FindIsolationSiblings(ctx context.Context, isolationID entity.ID, repo, branch string) ([]*entity.Instance, error)
}

type instanceRepositoryImpl struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepositoryImpl{db: db}
}

func (r *instanceRepositoryImpl) Create(ctx context.Context, inst *entity.Instance) (*entity.Instance, error) {
	var model Instance
	model.FromEntity(inst)
	if err := gorm.G[Instance](r.db).Create(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *instanceRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Instance, error) {
	found, err := gorm.G[Instance](r.db).Where("id = ?", id.String()).First(ctx)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return found.ToEntity(), nil
}

func (r *instanceRepositoryImpl) SetContainerOnCreate(ctx context.Context, id, contextVersionID entity.ID, c entity.Container) (int64, error) {
	ports, err := portsJSON(c.Ports)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Where("context_version_id = ?", contextVersionID.String()).
		Updates(map[string]any{
			"container_id":      c.ID,
			"container_host":    c.Host,
			"container_state":   string(entity.ContainerStateStarting),
			"container_inspect": c.Inspect,
			"container_ports":   ports,
			"container_error":   "",
		})
	return res.RowsAffected, res.Error
}

func (r *instanceRepositoryImpl) SetContainerStarted(ctx context.Context, id entity.ID, containerID string, inspect json.RawMessage, ports []string, at time.Time) (int64, error) {
	portsCol, err := portsJSON(ports)
	if err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Where("container_id = ?", containerID).
		Updates(map[string]any{
			"container_state":      string(entity.ContainerStateRunning),
			"container_inspect":    inspect,
			"container_ports":      portsCol,
			"container_started_at": at,
		})
	return res.RowsAffected, res.Error
}

// portsJSON renders the ports slice as the JSON text the model's serializer
// column stores. Map-based Updates bypass the serializer, and a raw []string
// would be misread as a SQL row value.
func portsJSON(ports []string) (any, error) {
	if len(ports) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ports)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *instanceRepositoryImpl) SetContainerError(ctx context.Context, id, contextVersionID entity.ID, msg string) error {
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Where("context_version_id = ?", contextVersionID.String()).
		Updates(map[string]any{
			"container_state": string(entity.ContainerStateErrored),
			"container_error": msg,
		})
	return res.Error
}

func (r *instanceRepositoryImpl) SetNetworkAttachError(ctx context.Context, id entity.ID, containerID, msg string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Where("container_id = ?", containerID).
		Updates(map[string]any{
			"container_state": string(entity.ContainerStateErrored),
			"container_error": msg,
		})
	return res.RowsAffected, res.Error
}

func (r *instanceRepositoryImpl) ClearContainer(ctx context.Context, id entity.ID) (*entity.Container, error) {
	inst, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Container == nil || inst.Container.ID == "" {
		return nil, nil
	}
	old := inst.Container
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Where("container_id = ?", old.ID).
		Updates(map[string]any{
			"container_id":         "",
			"container_host":       "",
			"container_state":      "",
			"container_inspect":    nil,
			"container_ports":      nil,
			"container_error":      "",
			"container_started_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else detached it first.
		return nil, nil
	}
	return old, nil
}

func (r *instanceRepositoryImpl) SetBuild(ctx context.Context, id, buildID, contextVersionID entity.ID) error {
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"build_id":           buildID.String(),
			"context_version_id": contextVersionID.String(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *instanceRepositoryImpl) SetCommit(ctx context.Context, id entity.ID, commit string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Instance{}).
		Where("id = ?", id.String()).
		Update("commit", commit)
	return res.RowsAffected, res.Error
}

func (r *instanceRepositoryImpl) FindRunningOrStartingOnHost(ctx context.Context, host string) ([]*entity.Instance, error) {
	founds, err := gorm.G[Instance](r.db).
		Where("container_host = ?", host).
		Where("container_state IN ?", []string{
			string(entity.ContainerStateRunning),
			string(entity.ContainerStateStarting),
		}).
		Find(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(founds), nil
}

func (r *instanceRepositoryImpl) FindBuildingOnHost(ctx context.Context, host string) ([]*entity.Instance, error) {
	founds, err := gorm.G[Instance](r.db).
		Where(`context_version_id IN (
			SELECT id FROM context_versions
			WHERE dock_host = ?
			  AND build_started_at IS NOT NULL
			  AND build_finished_at IS NULL
		)`, host).
		Find(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(founds), nil
}

func (r *instanceRepositoryImpl) FindIsolationSiblings(ctx context.Context, isolationID entity.ID, repo, branch string) ([]*entity.Instance, error) {
	founds, err := gorm.G[Instance](r.db).
		Where("isolation_id = ?", isolationID.String()).
		Where("repo = ? AND branch = ?", repo, branch).
		Find(ctx)
	if err != nil {
		return nil, err
	}
	return toEntities(founds), nil
}

func toEntities(models []Instance) []*entity.Instance {
	out := make([]*entity.Instance, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out
}
