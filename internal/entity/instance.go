package entity

import (
	"encoding/json"
	"time"
)

type ContainerState string

const (
	ContainerStateStarting ContainerState = "starting"
	ContainerStateRunning  ContainerState = "running"
	ContainerStateStopped  ContainerState = "stopped"
	ContainerStateErrored  ContainerState = "errored"
)

// Container is the live-container sub-record of an instance. An instance has
// at most one; replacing it is always destroy-then-create.
type Container struct {
	ID        string          `json:"id"`
	Host      string          `json:"host"`
	State     ContainerState  `json:"state"`
	Ports     []string        `json:"ports,omitempty"`
	Inspect   json.RawMessage `json:"inspect,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
}

// Instance is a running (or about-to-run) deployment of a context version.
type Instance struct {
	ID               ID             `json:"id"`
	ShortHash        string         `json:"short_hash"`
	Name             string         `json:"name"`
	OrgID            int64          `json:"org_id"`
	CreatedByID      int64          `json:"created_by_id"`
	BuildID          ID             `json:"build_id"`
	ContextVersionID ID             `json:"context_version_id"`
	MasterPod        bool           `json:"master_pod"`
	IsolationID      ID             `json:"isolation_id,omitempty"`
	IsolationMaster  bool           `json:"isolation_master"`
	AppCode          AppCodeVersion `json:"app_code"`
	Container        *Container     `json:"container,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (i *Instance) Isolated() bool { return i.IsolationID != "" }
