package job

import (
	"encoding/json"
	"time"
)

// Payload schemas, one struct per job type. Validation tags are the schema;
// a payload that fails them is malformed, not transient.

type BuildContainerCreate struct {
	ContextVersionID string `json:"context_version_id" validate:"required"`
	BuildID          string `json:"build_id" validate:"required"`
	OwnerUsername    string `json:"owner_username" validate:"required"`
	TriggeredByID    int64  `json:"triggered_by_id" validate:"required"`
	Manual           bool   `json:"manual"`
	NoCache          bool   `json:"no_cache"`
}

// BuildContainerCreated is emitted when a dock reports the build container
// object exists.
type BuildContainerCreated struct {
	BuildID      string    `json:"build_id" validate:"required"`
	Host         string    `json:"host" validate:"required"`
	ContainerID  string    `json:"container_id" validate:"required"`
	ContainerTag string    `json:"container_tag" validate:"required"`
	CreatedAt    time.Time `json:"created_at" validate:"required"`
}

type BuildContainerStart struct {
	BuildID     string    `json:"build_id" validate:"required"`
	Host        string    `json:"host" validate:"required"`
	ContainerID string    `json:"container_id" validate:"required"`
	CreatedAt   time.Time `json:"created_at" validate:"required"`
}

type BuildContainerDied struct {
	BuildID     string    `json:"build_id" validate:"required"`
	Host        string    `json:"host" validate:"required"`
	ContainerID string    `json:"container_id" validate:"required"`
	ExitCode    int       `json:"exit_code"`
	Error       string    `json:"error,omitempty"`
	DiedAt      time.Time `json:"died_at" validate:"required"`
}

type InstanceContainerCreate struct {
	InstanceID       string `json:"instance_id" validate:"required"`
	ContextVersionID string `json:"context_version_id" validate:"required"`
	OwnerUsername    string `json:"owner_username" validate:"required"`
	TriggeredByID    int64  `json:"triggered_by_id" validate:"required"`
	DeploymentID     string `json:"deployment_id,omitempty"`
}

type InstanceContainerCreated struct {
	InstanceID       string          `json:"instance_id" validate:"required"`
	ContextVersionID string          `json:"context_version_id" validate:"required"`
	ContainerID      string          `json:"container_id" validate:"required"`
	Host             string          `json:"host" validate:"required"`
	OwnerUsername    string          `json:"owner_username" validate:"required"`
	TriggeredByID    int64           `json:"triggered_by_id"`
	Inspect          json.RawMessage `json:"inspect,omitempty"`
	Ports            []string        `json:"ports,omitempty"`
}

type InstanceContainerStart struct {
	InstanceID    string `json:"instance_id" validate:"required"`
	ContainerID   string `json:"container_id" validate:"required"`
	Host          string `json:"host" validate:"required"`
	OwnerUsername string `json:"owner_username" validate:"required"`
	TriggeredByID int64  `json:"triggered_by_id"`
}

type InstanceContainerDelete struct {
	InstanceID  string `json:"instance_id" validate:"required"`
	ContainerID string `json:"container_id" validate:"required"`
	Host        string `json:"host" validate:"required"`
}

type InstanceContainerRedeploy struct {
	InstanceID    string `json:"instance_id" validate:"required"`
	TriggeredByID int64  `json:"triggered_by_id" validate:"required"`
	DeploymentID  string `json:"deployment_id,omitempty"`
}

type InstanceRebuild struct {
	InstanceID    string `json:"instance_id" validate:"required"`
	TriggeredByID int64  `json:"triggered_by_id"`
	DeploymentID  string `json:"deployment_id,omitempty"`
	// Commit overrides the instance's current commit, as isolation
	// propagation does.
	Commit string `json:"commit,omitempty"`
}

type ContainerNetworkAttachFailed struct {
	ContainerID string `json:"container_id" validate:"required"`
	// InstanceID may be empty: attach failures for containers we do not own
	// still reach the queue and are dropped by the handler.
	InstanceID string `json:"instance_id,omitempty"`
	Host       string `json:"host,omitempty"`
	Error      string `json:"error" validate:"required"`
}

type DockRemoved struct {
	Host string `json:"host" validate:"required"`
}

type IsolationMatchCommit struct {
	IsolationID   string `json:"isolation_id" validate:"required"`
	InstanceID    string `json:"instance_id" validate:"required"`
	TriggeredByID int64  `json:"triggered_by_id" validate:"required"`
}
