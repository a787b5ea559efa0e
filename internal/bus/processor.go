package bus

import (
	"context"
	"fmt"

	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
)

// Processor applies the job contract to one delivered envelope: decode,
// validate, execute, classify. Transports own redelivery; Process tells them
// whether to redeliver via the returned retry flag.
type Processor struct {
	mux     *job.Mux
	log     zerolog.Logger
	metrics *Metrics
}

func NewProcessor(mux *job.Mux, log zerolog.Logger, metrics *Metrics) *Processor {
	return &Processor{mux: mux, log: log, metrics: metrics}
}

// Process runs env through its handler. retry=true means the envelope should
// be redelivered with an incremented attempt count.
func (p *Processor) Process(ctx context.Context, env job.Envelope) (retry bool) {
	log := p.log.With().
		Str("job_type", env.Type).
		Str("trace_id", env.TraceID).
		Int("attempt", env.Attempt).
		Logger()

	h, ok := p.mux.Handler(env.Type)
	if !ok {
		log.Error().Msg("no handler registered for job type")
		p.metrics.processed.WithLabelValues(env.Type, outcomeDropped).Inc()
		return false
	}

	payload, err := job.Decode(h, env)
	if err != nil {
		log.Error().Err(err).Msg("job rejected by schema")
		p.metrics.processed.WithLabelValues(env.Type, outcomeTerminal).Inc()
		return false
	}

	ctx = job.WithTraceID(ctx, env.TraceID)
	ctx = log.WithContext(ctx)

	err = p.handleSafely(ctx, h, payload)
	switch {
	case err == nil:
		log.Debug().Msg("job completed")
		p.metrics.processed.WithLabelValues(env.Type, outcomeOK).Inc()
		return false

	case job.IsTerminal(err):
		log.Warn().Err(err).Msg("job stopped")
		p.metrics.processed.WithLabelValues(env.Type, outcomeTerminal).Inc()
		return false

	default:
		if env.Attempt+1 >= h.MaxAttempts() {
			log.Error().Err(err).Msg("job exhausted its retry budget")
			if fr, ok := h.(job.FinalRetrier); ok {
				if ferr := fr.FinalRetry(ctx, payload); ferr != nil {
					log.Error().Err(ferr).Msg("final-retry hook failed")
				}
			}
			p.metrics.processed.WithLabelValues(env.Type, outcomeExhausted).Inc()
			return false
		}
		log.Warn().Err(err).Msg("job failed, will retry")
		p.metrics.retried.WithLabelValues(env.Type).Inc()
		return true
	}
}

// handleSafely confines a panicking handler to its own job.
func (p *Processor) handleSafely(ctx context.Context, h job.Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.panics.WithLabelValues(h.Type()).Inc()
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, payload)
}
