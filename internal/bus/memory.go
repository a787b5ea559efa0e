package bus

import (
	"context"
	"sync"

	"github.com/drydock-platform/drydock/internal/job"
)

// Memory is the in-process transport: a buffered channel with the same
// at-least-once retry discipline as the kafka transport. Used by tests and
// by single-binary dev mode.
type Memory struct {
	ch     chan job.Envelope
	wg     sync.WaitGroup
	closed sync.Once
}

func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 256
	}
	return &Memory{ch: make(chan job.Envelope, buffer)}
}

func (m *Memory) Publish(ctx context.Context, jobType string, payload any) error {
	env, err := job.NewEnvelope(ctx, jobType, payload)
	if err != nil {
		return err
	}
	select {
	case m.ch <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes with a pool of workers until ctx is cancelled. Retries are
// requeued with an incremented attempt count.
func (m *Memory) Run(ctx context.Context, p *Processor, workers int) {
	if workers <= 0 {
		workers = 4
	}
	for range workers {
		m.wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case env, ok := <-m.ch:
					if !ok {
						return
					}
					if p.Process(ctx, env) {
						env.Attempt++
						select {
						case m.ch <- env:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		})
	}
	m.wg.Wait()
}

// Close stops Run once in-flight envelopes drain. Only the test harness and
// dev mode shut the bus down; production workers stop via ctx.
func (m *Memory) Close() {
	m.closed.Do(func() { close(m.ch) })
}
