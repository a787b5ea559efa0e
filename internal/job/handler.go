package job

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one job type. Implementations must be idempotent under
// redelivery: the bus is at-least-once and gives no per-key ordering.
type Handler interface {
	Type() string
	// MaxAttempts is this job type's retry budget, final-retry included.
	MaxAttempts() int
	// NewPayload returns a fresh payload pointer for decoding + validation.
	NewPayload() any
	Handle(ctx context.Context, payload any) error
}

// FinalRetrier is implemented by handlers that must mark their owning entity
// failed once the retry budget is exhausted, so nothing hangs forever.
type FinalRetrier interface {
	FinalRetry(ctx context.Context, payload any) error
}

// Mux routes envelopes to handlers by job type.
type Mux struct {
	handlers map[string]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

func (m *Mux) Register(h Handler) {
	if _, dup := m.handlers[h.Type()]; dup {
		panic(fmt.Sprintf("job: duplicate handler for %q", h.Type()))
	}
	m.handlers[h.Type()] = h
}

func (m *Mux) Handler(jobType string) (Handler, bool) {
	h, ok := m.handlers[jobType]
	return h, ok
}

func (m *Mux) Types() []string {
	out := make([]string, 0, len(m.handlers))
	for t := range m.handlers {
		out = append(out, t)
	}
	return out
}

// Decode unmarshals and validates env's payload against h's schema. Any
// failure is terminal: the job is malformed and retrying cannot fix it.
func Decode(h Handler, env Envelope) (any, error) {
	payload := h.NewPayload()
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, Terminal("malformed job payload", err)
	}
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}
	return payload, nil
}
