package repository

import (
	"context"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
	"gorm.io/gorm"
)

type ContextVersionRepository interface {
	Create(ctx context.Context, cv *entity.ContextVersion) (*entity.ContextVersion, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.ContextVersion, error)

	// MarkBuildStarting conditionally advances every context version sharing
	// buildID into the buildStarting state, recording where the build
	// container landed. The filter (build started, not finished, not already
	// advanced) is the dedupe guard against racing container-created events;
	// callers must treat an affected count of zero as terminal.
	MarkBuildStarting(ctx context.Context, buildID entity.ID, host, containerID, containerTag string) (int64, error)

	// MarkBuildStarted advances every buildStarting context version of the
	// build and returns the advanced documents for notification fan-out.
	MarkBuildStarted(ctx context.Context, buildID entity.ID, at time.Time) ([]*entity.ContextVersion, error)

	// MarkBuildCompleted finishes the build on every context version sharing
	// buildID: built on success, errored with reason otherwise.
	MarkBuildCompleted(ctx context.Context, buildID entity.ID, successful bool, reason string, at time.Time) (int64, error)

	// MarkBuildFailed is the single write path for build failure.
	MarkBuildFailed(ctx context.Context, buildID entity.ID, reason string) (int64, error)

	// MarkRecovered flags the context version as accounted for so
	// crash-recovery sweeps leave its build container alone.
	MarkRecovered(ctx context.Context, id entity.ID) error

	// MarkDockRemoved flags every context version whose build ran on host and
	// detaches them from it. Best-effort bookkeeping for the dock-loss
	// cascade.
	MarkDockRemoved(ctx context.Context, host string) (int64, error)

	// ClearDockHost detaches one context version from its dock ahead of a
	// redeploy, remembering where it used to run.
	ClearDockHost(ctx context.Context, id entity.ID) error

	// ResetBuild points the context version at a fresh build record so it can
	// be built again, optionally against a new commit.
	ResetBuild(ctx context.Context, id entity.ID, buildID entity.ID, commit string, startedAt time.Time) error
}

type contextVersionRepositoryImpl struct {
	db *gorm.DB
}

func NewContextVersionRepository(db *gorm.DB) ContextVersionRepository {
	return &contextVersionRepositoryImpl{db: db}
}

func (r *contextVersionRepositoryImpl) Create(ctx context.Context, cv *entity.ContextVersion) (*entity.ContextVersion, error) {
	var model ContextVersion
	model.FromEntity(cv)
	if err := gorm.G[ContextVersion](r.db).Create(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToEntity(), nil
}

func (r *contextVersionRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.ContextVersion, error) {
	found, err := gorm.G[ContextVersion](r.db).Where("id = ?", id.String()).First(ctx)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return found.ToEntity(), nil
}

func (r *contextVersionRepositoryImpl) MarkBuildStarting(ctx context.Context, buildID entity.ID, host, containerID, containerTag string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("build_id = ?", buildID.String()).
		Where("build_started_at IS NOT NULL").
		Where("build_finished_at IS NULL").
		Where("state <> ?", string(entity.CVStateBuildStarted)).
		Updates(map[string]any{
			"state":               string(entity.CVStateBuildStarting),
			"dock_host":           host,
			"build_container_id":  containerID,
			"build_container_tag": containerTag,
		})
	return res.RowsAffected, res.Error
}

func (r *contextVersionRepositoryImpl) MarkBuildStarted(ctx context.Context, buildID entity.ID, at time.Time) ([]*entity.ContextVersion, error) {
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("build_id = ?", buildID.String()).
		Where("state = ?", string(entity.CVStateBuildStarting)).
		Updates(map[string]any{
			"state":                   string(entity.CVStateBuildStarted),
			"build_container_started": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	founds, err := gorm.G[ContextVersion](r.db).
		Where("build_id = ? AND state = ?", buildID.String(), string(entity.CVStateBuildStarted)).
		Find(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.ContextVersion, len(founds))
	for i, f := range founds {
		out[i] = f.ToEntity()
	}
	return out, nil
}

func (r *contextVersionRepositoryImpl) MarkBuildCompleted(ctx context.Context, buildID entity.ID, successful bool, reason string, at time.Time) (int64, error) {
	set := map[string]any{
		"build_finished_at": at,
		"build_failed":      !successful,
		"build_error":       reason,
	}
	if successful {
		set["state"] = string(entity.CVStateBuilt)
		set["build_completed_at"] = at
	} else {
		set["state"] = string(entity.CVStateErrored)
	}
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("build_id = ?", buildID.String()).
		Where("build_finished_at IS NULL").
		Updates(set)
	return res.RowsAffected, res.Error
}

func (r *contextVersionRepositoryImpl) MarkBuildFailed(ctx context.Context, buildID entity.ID, reason string) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("build_id = ?", buildID.String()).
		Updates(map[string]any{
			"state":             string(entity.CVStateErrored),
			"build_failed":      true,
			"build_error":       reason,
			"build_finished_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *contextVersionRepositoryImpl) MarkRecovered(ctx context.Context, id entity.ID) error {
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("id = ?", id.String()).
		Update("build_recovered", true)
	return res.Error
}

func (r *contextVersionRepositoryImpl) MarkDockRemoved(ctx context.Context, host string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("dock_host = ?", host).
		Updates(map[string]any{
			"dock_removed":       true,
			"dock_host":          "",
			"previous_dock_host": host,
		})
	return res.RowsAffected, res.Error
}

func (r *contextVersionRepositoryImpl) ClearDockHost(ctx context.Context, id entity.ID) error {
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("id = ?", id.String()).
		Where("dock_host <> ''").
		Updates(map[string]any{
			"previous_dock_host": gorm.Expr("dock_host"),
			"dock_host":          "",
		})
	return res.Error
}

func (r *contextVersionRepositoryImpl) ResetBuild(ctx context.Context, id entity.ID, buildID entity.ID, commit string, startedAt time.Time) error {
	set := map[string]any{
		"state":                   string(entity.CVStateCreated),
		"build_id":                buildID.String(),
		"build_started_at":        startedAt,
		"build_finished_at":       nil,
		"build_completed_at":      nil,
		"build_container_id":      "",
		"build_container_tag":     "",
		"build_container_started": nil,
		"build_failed":            false,
		"build_error":             "",
		"build_recovered":         false,
		"dock_removed":            false,
	}
	if commit != "" {
		set["commit"] = commit
	}
	res := r.db.WithContext(ctx).Model(&ContextVersion{}).
		Where("id = ?", id.String()).
		Updates(set)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}
