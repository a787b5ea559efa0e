package entity

import "time"

type ContextVersionState string

const (
	CVStateCreated       ContextVersionState = "created"
	CVStateBuildStarting ContextVersionState = "buildStarting"
	CVStateBuildStarted  ContextVersionState = "buildStarted"
	CVStateBuilt         ContextVersionState = "built"
	CVStateErrored       ContextVersionState = "errored"
)

// AppCodeVersion pins a context version (or instance) to a source snapshot.
type AppCodeVersion struct {
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Commit string `json:"commit"`
}

// BuildRecord is the per-artifact view of a build. Several context versions
// may share the same BuildID; they are advanced together by build-id
// multi-updates.
type BuildRecord struct {
	ID                 ID         `json:"id"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ContainerID        string     `json:"container_id,omitempty"`
	ContainerTag       string     `json:"container_tag,omitempty"`
	ContainerStartedAt *time.Time `json:"container_started_at,omitempty"`
	Failed             bool       `json:"failed"`
	Error              string     `json:"error,omitempty"`
	Recovered          bool       `json:"recovered"`
}

// ManifestFile is one file of the build context shipped to the dock.
type ManifestFile struct {
	Path string `json:"path"`
	Body string `json:"body"`
}

// ContextVersion is one buildable/built image tied to a source snapshot.
type ContextVersion struct {
	ID               ID                  `json:"id"`
	OrgID            int64               `json:"org_id"`
	CreatedByID      int64               `json:"created_by_id"`
	State            ContextVersionState `json:"state"`
	DockHost         string              `json:"dock_host,omitempty"`
	DockRemoved      bool                `json:"dock_removed"`
	PreviousDockHost string              `json:"previous_dock_host,omitempty"`
	AppCode          AppCodeVersion      `json:"app_code"`
	Build            BuildRecord         `json:"build"`
	Manifest         []ManifestFile      `json:"manifest,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// BuildCompletedBefore reports whether the build finished successfully more
// than window ago. Used to decide between waiting out registry propagation
// and rebuilding from scratch.
func (cv *ContextVersion) BuildCompletedBefore(now time.Time, window time.Duration) bool {
	if cv.Build.CompletedAt == nil {
		return false
	}
	return now.Sub(*cv.Build.CompletedAt) >= window
}
