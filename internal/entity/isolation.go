package entity

import "time"

// IsolationGroup ties a master instance to the children that must track its
// deployments. Children carry the group id on their own documents.
type IsolationGroup struct {
	ID               ID        `json:"id"`
	MasterInstanceID ID        `json:"master_instance_id"`
	CreatedAt        time.Time `json:"created_at"`
}
