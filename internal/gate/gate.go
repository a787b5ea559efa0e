package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/repository"
)

// Gate answers "may this organization build or run anything right now".
// Every task consults it before mutating state.
type Gate struct {
	orgs repository.OrgRepository
}

func New(orgs repository.OrgRepository) *Gate {
	return &Gate{orgs: orgs}
}

// CheckOwnerAllowed returns nil when orgID may proceed,
// entity.ErrOrgNotFound when the org has no whitelist record, and
// entity.ErrOrgNotAllowed when the record says no.
func (g *Gate) CheckOwnerAllowed(ctx context.Context, orgID int64) error {
	org, err := g.orgs.Get(ctx, orgID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("org %d: %w", orgID, entity.ErrOrgNotFound)
		}
		return fmt.Errorf("check org %d: %w", orgID, err)
	}
	if !org.Allowed {
		return fmt.Errorf("org %d: %w", orgID, entity.ErrOrgNotAllowed)
	}
	return nil
}
