package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job types consumed from the bus. Dotted names follow the
// queue-per-event-kind convention of the platform.
const (
	TypeBuildContainerCreate  = "build.container.create"
	TypeBuildContainerCreated = "build.container.created"
	TypeBuildContainerStart   = "build.container.start"
	TypeBuildContainerDied    = "build.container.died"

	TypeInstanceContainerCreate   = "instance.container.create"
	TypeInstanceContainerCreated  = "instance.container.created"
	TypeInstanceContainerStart    = "instance.container.start"
	TypeInstanceContainerDelete   = "instance.container.delete"
	TypeInstanceContainerRedeploy = "instance.container.redeploy"
	TypeInstanceRebuild           = "instance.rebuild"

	TypeContainerNetworkAttachFailed = "container.network.attach-failed"
	TypeDockRemoved                  = "dock.removed"
	TypeIsolationMatchCommit         = "isolation.match-commit"
)

// Envelope is the unit of delivery. Payload stays opaque until the handler's
// schema has been applied; Attempt counts deliveries of this envelope so the
// retry budget survives process restarts.
type Envelope struct {
	Type       string          `json:"type"`
	TraceID    string          `json:"trace_id"`
	Attempt    int             `json:"attempt"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Publisher enqueues follow-up jobs. Handlers receive one instead of talking
// to the transport directly.
type Publisher interface {
	Publish(ctx context.Context, jobType string, payload any) error
}

// NewEnvelope marshals payload and stamps delivery metadata. The trace id is
// inherited from ctx when a job is published from inside another job.
func NewEnvelope(ctx context.Context, jobType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	tid := TraceIDFrom(ctx)
	if tid == "" {
		tid = uuid.NewString()
	}
	return Envelope{
		Type:       jobType,
		TraceID:    tid,
		Payload:    raw,
		EnqueuedAt: time.Now(),
	}, nil
}

type traceIDKey struct{}

func WithTraceID(ctx context.Context, tid string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, tid)
}

func TraceIDFrom(ctx context.Context) string {
	tid, _ := ctx.Value(traceIDKey{}).(string)
	return tid
}
