package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drydock-platform/drydock/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type countingHandler struct {
	typ      string
	max      int
	failures int
	handles  atomic.Int64
	done     chan struct{}
}

func (c *countingHandler) Type() string     { return c.typ }
func (c *countingHandler) MaxAttempts() int { return c.max }
func (c *countingHandler) NewPayload() any  { return &echoPayload{} }

func (c *countingHandler) Handle(ctx context.Context, payload any) error {
	n := c.handles.Add(1)
	if int(n) <= c.failures {
		return errors.New("transient")
	}
	close(c.done)
	return nil
}

func TestMemoryRedeliversUntilSuccess(t *testing.T) {
	h := &countingHandler{typ: "t.mem", max: 5, failures: 2, done: make(chan struct{})}
	mux := job.NewMux()
	mux.Register(h)
	p := NewProcessor(mux, zerolog.Nop(), NewMetrics(prometheus.NewRegistry()))

	mem := NewMemory(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mem.Run(ctx, p, 2)

	if err := mem.Publish(ctx, "t.mem", echoPayload{Name: "x"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never succeeded")
	}
	if got := h.handles.Load(); got != 3 {
		t.Errorf("handled %d times; want 3 (two failures, one success)", got)
	}
}

func TestMemoryPublishInheritsTraceID(t *testing.T) {
	mem := NewMemory(1)
	ctx := job.WithTraceID(context.Background(), "trace-123")
	if err := mem.Publish(ctx, "t.trace", echoPayload{Name: "x"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	env := <-mem.ch
	if env.TraceID != "trace-123" {
		t.Errorf("TraceID = %q; want trace-123", env.TraceID)
	}
	if env.Type != "t.trace" {
		t.Errorf("Type = %q; want t.trace", env.Type)
	}
}
