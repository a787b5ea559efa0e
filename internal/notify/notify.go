package notify

import (
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
)

// Notifier pushes state changes at the frontend. Fire-and-forget by
// contract: a lost notification never fails the job that emitted it.
type Notifier interface {
	ArtifactUpdate(cv *entity.ContextVersion, event string)
	InstanceUpdate(inst *entity.Instance, userID int64, event string, cascade bool)
	// BuildUpdate is the instance-facing notification keyed by build id,
	// emitted once per build rather than per artifact.
	BuildUpdate(buildID entity.ID, event string)
}

// Event is the wire shape pushed to frontend clients.
type Event struct {
	Kind    string    `json:"kind"`
	Name    string    `json:"name"`
	UserID  int64     `json:"user_id,omitempty"`
	Cascade bool      `json:"cascade,omitempty"`
	At      time.Time `json:"at"`
	Data    any       `json:"data,omitempty"`
}

// Nop discards notifications; handy in tests and the work-only daemon.
type Nop struct{}

func (Nop) ArtifactUpdate(*entity.ContextVersion, string)        {}
func (Nop) InstanceUpdate(*entity.Instance, int64, string, bool) {}
func (Nop) BuildUpdate(entity.ID, string)                        {}
