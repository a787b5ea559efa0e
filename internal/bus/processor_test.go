package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/drydock-platform/drydock/internal/job"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type echoPayload struct {
	Name string `json:"name" validate:"required"`
}

type stubHandler struct {
	typ        string
	max        int
	handleErr  error
	handles    atomic.Int64
	finalCalls atomic.Int64
	panics     bool
}

func (s *stubHandler) Type() string     { return s.typ }
func (s *stubHandler) MaxAttempts() int { return s.max }
func (s *stubHandler) NewPayload() any  { return &echoPayload{} }

func (s *stubHandler) Handle(ctx context.Context, payload any) error {
	s.handles.Add(1)
	if s.panics {
		panic("boom")
	}
	return s.handleErr
}

func (s *stubHandler) FinalRetry(ctx context.Context, payload any) error {
	s.finalCalls.Add(1)
	return nil
}

func newTestProcessor(t *testing.T, handlers ...job.Handler) *Processor {
	t.Helper()
	mux := job.NewMux()
	for _, h := range handlers {
		mux.Register(h)
	}
	return NewProcessor(mux, zerolog.Nop(), NewMetrics(prometheus.NewRegistry()))
}

func envelopeFor(t *testing.T, jobType string, attempt int) job.Envelope {
	t.Helper()
	env, err := job.NewEnvelope(context.Background(), jobType, echoPayload{Name: "x"})
	if err != nil {
		t.Fatalf("NewEnvelope() error = %v", err)
	}
	env.Attempt = attempt
	return env
}

func TestProcessSuccessIsNotRetried(t *testing.T) {
	h := &stubHandler{typ: "t.ok", max: 3}
	p := newTestProcessor(t, h)
	if retry := p.Process(context.Background(), envelopeFor(t, "t.ok", 0)); retry {
		t.Error("Process() retry = true; want false")
	}
	if h.handles.Load() != 1 {
		t.Errorf("handled %d times; want 1", h.handles.Load())
	}
}

func TestProcessTerminalErrorIsNotRetried(t *testing.T) {
	h := &stubHandler{typ: "t.term", max: 3, handleErr: job.Terminal("gone", nil)}
	p := newTestProcessor(t, h)
	if retry := p.Process(context.Background(), envelopeFor(t, "t.term", 0)); retry {
		t.Error("Process() retry = true; want false")
	}
	if h.finalCalls.Load() != 0 {
		t.Errorf("final retry ran %d times; want 0", h.finalCalls.Load())
	}
}

func TestProcessRetriesUntilBudgetThenFinalRetry(t *testing.T) {
	h := &stubHandler{typ: "t.flaky", max: 3, handleErr: errors.New("transient")}
	p := newTestProcessor(t, h)

	for attempt := 0; attempt < 2; attempt++ {
		if retry := p.Process(context.Background(), envelopeFor(t, "t.flaky", attempt)); !retry {
			t.Fatalf("Process(attempt=%d) retry = false; want true", attempt)
		}
	}
	if retry := p.Process(context.Background(), envelopeFor(t, "t.flaky", 2)); retry {
		t.Error("Process(last attempt) retry = true; want false")
	}
	if h.handles.Load() != 3 {
		t.Errorf("handled %d times; want 3", h.handles.Load())
	}
	if h.finalCalls.Load() != 1 {
		t.Errorf("final retry ran %d times; want exactly 1", h.finalCalls.Load())
	}
}

func TestProcessRecoversPanicsAsRetryable(t *testing.T) {
	h := &stubHandler{typ: "t.panic", max: 2, panics: true}
	p := newTestProcessor(t, h)
	if retry := p.Process(context.Background(), envelopeFor(t, "t.panic", 0)); !retry {
		t.Error("Process() retry = false; want true after recovered panic")
	}
}

func TestProcessMalformedPayloadIsTerminal(t *testing.T) {
	h := &stubHandler{typ: "t.schema", max: 3}
	p := newTestProcessor(t, h)
	env := job.Envelope{Type: "t.schema", Payload: json.RawMessage(`{"name":""}`)}
	if retry := p.Process(context.Background(), env); retry {
		t.Error("Process() retry = true; want false for schema failure")
	}
	if h.handles.Load() != 0 {
		t.Errorf("handler ran %d times on invalid payload; want 0", h.handles.Load())
	}
}

func TestProcessUnknownTypeIsDropped(t *testing.T) {
	p := newTestProcessor(t)
	env := job.Envelope{Type: "t.unknown", Payload: json.RawMessage(`{}`)}
	if retry := p.Process(context.Background(), env); retry {
		t.Error("Process() retry = true; want false for unknown type")
	}
}
