package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/drydock-platform/drydock/internal/job"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	// Brokers is the list of broker addresses (host:port).
	Brokers []string
	// Topic carries every job envelope; the job type rides in a header and
	// in the envelope itself.
	Topic string
	// GroupID is the consumer group of the worker fleet.
	GroupID string
	// WriteTimeout is the per-publish timeout. Defaults to 10s.
	WriteTimeout time.Duration
	// Concurrency bounds concurrently processed deliveries. Defaults to 8.
	Concurrency int
}

// Kafka is the production transport. Retries are republishes with an
// incremented attempt header; combined with consumer-group redelivery on
// crash this gives at-least-once semantics without broker delay queues.
type Kafka struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	log    zerolog.Logger
}

func NewKafka(cfg KafkaConfig, log zerolog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("bus: at least one kafka broker required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("bus: kafka topic required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		// The message key is the job type, so key-hash balancing keeps each
		// type on one partition. Not an ordering guarantee, just locality.
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})
	return &Kafka{cfg: cfg, writer: w, log: log}, nil
}

func (k *Kafka) Publish(ctx context.Context, jobType string, payload any) error {
	env, err := job.NewEnvelope(ctx, jobType, payload)
	if err != nil {
		return err
	}
	return k.write(ctx, env)
}

func (k *Kafka) write(ctx context.Context, env job.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.Type),
		Value: value,
		Headers: []kafka.Header{
			{Key: "job-type", Value: []byte(env.Type)},
			{Key: "trace-id", Value: []byte(env.TraceID)},
			{Key: "attempt", Value: []byte(strconv.Itoa(env.Attempt))},
		},
	})
}

// Run consumes the topic until ctx is cancelled. Deliveries are processed
// concurrently up to cfg.Concurrency; each message is committed after its
// outcome is known (a retry is republished first, so nothing is lost between
// commit and redelivery).
func (k *Kafka) Run(ctx context.Context, p *Processor) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  k.cfg.GroupID,
		Topic:    k.cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})
	defer reader.Close()

	sem := make(chan struct{}, k.cfg.Concurrency)
	var wg sync.WaitGroup
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			k.log.Error().Err(err).Msg("kafka fetch failed")
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
		wg.Go(func() {
			defer func() { <-sem }()
			k.handle(ctx, p, reader, msg)
		})
	}
	wg.Wait()
	return nil
}

func (k *Kafka) handle(ctx context.Context, p *Processor, reader *kafka.Reader, msg kafka.Message) {
	var env job.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		k.log.Error().Err(err).Msg("dropping undecodable message")
	} else if p.Process(ctx, env) {
		env.Attempt++
		if err := k.write(ctx, env); err != nil {
			// Leave the offset uncommitted; the group will redeliver.
			k.log.Error().Err(err).Str("job_type", env.Type).Msg("republish for retry failed")
			return
		}
	}
	if err := reader.CommitMessages(ctx, msg); err != nil {
		k.log.Error().Err(err).Msg("offset commit failed")
	}
}

func (k *Kafka) Close() error { return k.writer.Close() }
