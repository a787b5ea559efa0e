package usecase

import (
	"context"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/samber/do"
)

type TriggerBuildInput struct {
	OrgID       int64
	CreatedByID int64
	Repo        string
	Branch      string
	Commit      string
	Manifest    []entity.ManifestFile
	NoCache     bool
	Manual      bool
}

// TriggerBuildUsecase creates a context version and its build record, then
// hands the actual work to the job bus.
type TriggerBuildUsecase interface {
	Execute(ctx context.Context, in TriggerBuildInput) (*entity.Build, error)
}

type triggerBuildUsecaseImpl struct {
	cvs      repository.ContextVersionRepository
	builds   repository.BuildRepository
	identity identity.Provider
	bus      job.Publisher
}

// Execute implements TriggerBuildUsecase.
func (u *triggerBuildUsecaseImpl) Execute(ctx context.Context, in TriggerBuildInput) (*entity.Build, error) {
	if in.OrgID == 0 || in.Repo == "" || in.Branch == "" || in.Commit == "" {
		return nil, entity.ErrInvalid
	}
	owner, err := u.identity.UsernameForOwner(ctx, in.OrgID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	buildID := entity.NewID()
	cv, err := u.cvs.Create(ctx, &entity.ContextVersion{
		ID:          entity.NewID(),
		OrgID:       in.OrgID,
		CreatedByID: in.CreatedByID,
		State:       entity.CVStateCreated,
		AppCode: entity.AppCodeVersion{
			Repo:   in.Repo,
			Branch: in.Branch,
			Commit: in.Commit,
		},
		Build: entity.BuildRecord{
			ID:        buildID,
			StartedAt: &now,
		},
		Manifest: in.Manifest,
	})
	if err != nil {
		return nil, err
	}
	build, err := u.builds.Create(ctx, &entity.Build{
		ID:               buildID,
		OrgID:            in.OrgID,
		ContextVersionID: cv.ID,
		StartedAt:        &now,
	})
	if err != nil {
		return nil, err
	}

	if err := u.bus.Publish(ctx, job.TypeBuildContainerCreate, job.BuildContainerCreate{
		ContextVersionID: cv.ID.String(),
		BuildID:          buildID.String(),
		OwnerUsername:    owner,
		TriggeredByID:    in.CreatedByID,
		Manual:           in.Manual,
		NoCache:          in.NoCache,
	}); err != nil {
		return nil, err
	}
	return build, nil
}

func NewTriggerBuildUsecase(injector *do.Injector) (TriggerBuildUsecase, error) {
	return &triggerBuildUsecaseImpl{
		cvs:      do.MustInvoke[repository.ContextVersionRepository](injector),
		builds:   do.MustInvoke[repository.BuildRepository](injector),
		identity: do.MustInvoke[identity.Provider](injector),
		bus:      do.MustInvoke[job.Publisher](injector),
	}, nil
}
