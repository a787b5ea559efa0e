package usecase

import (
	"context"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/samber/do"
)

// WhitelistOrgUsecase manages the permission gate's org records.
type WhitelistOrgUsecase interface {
	Execute(ctx context.Context, org *entity.OrgRecord) error
}

type whitelistOrgUsecaseImpl struct {
	orgs repository.OrgRepository
}

// Execute implements WhitelistOrgUsecase.
func (u *whitelistOrgUsecaseImpl) Execute(ctx context.Context, org *entity.OrgRecord) error {
	if org == nil || org.OrgID == 0 {
		return entity.ErrInvalid
	}
	return u.orgs.Upsert(ctx, org)
}

func NewWhitelistOrgUsecase(injector *do.Injector) (WhitelistOrgUsecase, error) {
	return &whitelistOrgUsecaseImpl{
		orgs: do.MustInvoke[repository.OrgRepository](injector),
	}, nil
}
