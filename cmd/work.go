package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drydock-platform/drydock/internal/bus"
	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/fleet"
	"github.com/drydock-platform/drydock/internal/gate"
	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/drydock-platform/drydock/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var workFlags struct {
	db          string
	brokers     []string
	topic       string
	group       string
	concurrency int
	identityURL string
}

// workerOpts are the handler knobs shared by the work daemon and serve's
// in-process dev mode.
type workerOpts struct {
	fleetURL      string
	scheduler     string
	registry      string
	networkPrefix string
	imageGrace    time.Duration
	registerGrace time.Duration
}

func registerWorkerFlags(cmd *cobra.Command, o *workerOpts) {
	def := worker.DefaultConfig()
	cmd.Flags().StringVar(&o.fleetURL, "fleet-url", "http://127.0.0.1:9091", "Fleet manager base URL")
	cmd.Flags().StringVar(&o.scheduler, "scheduler", def.SchedulerHost, "Dock address for build container placement")
	cmd.Flags().StringVar(&o.registry, "registry", def.Registry, "Image registry prefix")
	cmd.Flags().StringVar(&o.networkPrefix, "network-prefix", def.NetworkPrefix, "Per-org docker network name prefix")
	cmd.Flags().DurationVar(&o.imageGrace, "image-grace", def.ImageGraceWindow, "How long to wait out registry propagation before rebuilding")
	cmd.Flags().DurationVar(&o.registerGrace, "register-grace", def.RegisterGraceWindow, "How long a created build container may take to register")
}

var workWorkerOpts workerOpts

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the job worker daemon",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := repository.NewSQLiteDB(workFlags.db)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}

		k, err := bus.NewKafka(bus.KafkaConfig{
			Brokers:     workFlags.brokers,
			Topic:       workFlags.topic,
			GroupID:     workFlags.group,
			Concurrency: workFlags.concurrency,
		}, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to kafka")
		}
		defer k.Close()

		ident := identity.NewHTTPProvider(workFlags.identityURL)
		deps := buildWorkerDeps(db, k, notify.Nop{}, ident, workWorkerOpts)

		mux := job.NewMux()
		for _, h := range deps.Handlers() {
			mux.Register(h)
		}
		proc := bus.NewProcessor(mux, log.Logger, bus.NewMetrics(prometheus.NewRegistry()))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Strs("types", mux.Types()).Msg("worker daemon starting")
		if err := k.Run(ctx, proc); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("worker loop failed")
		}
		log.Info().Msg("worker daemon stopped")
	},
}

func buildWorkerDeps(db *gorm.DB, pub job.Publisher, notifier notify.Notifier, ident identity.Provider, o workerOpts) *worker.Deps {
	cfg := worker.DefaultConfig()
	if o.scheduler != "" {
		cfg.SchedulerHost = o.scheduler
	}
	if o.registry != "" {
		cfg.Registry = o.registry
	}
	if o.networkPrefix != "" {
		cfg.NetworkPrefix = o.networkPrefix
	}
	if o.imageGrace > 0 {
		cfg.ImageGraceWindow = o.imageGrace
	}
	if o.registerGrace > 0 {
		cfg.RegisterGraceWindow = o.registerGrace
	}
	return &worker.Deps{
		CVs:        repository.NewContextVersionRepository(db),
		Builds:     repository.NewBuildRepository(db),
		Instances:  repository.NewInstanceRepository(db),
		Isolations: repository.NewIsolationGroupRepository(db),
		Hosts:      repository.NewHostRecordRepository(db),
		Gate:       gate.New(repository.NewOrgRepository(db)),
		Docks:      dock.NewDockerPool(log.Logger),
		Identity:   ident,
		Notifier:   notifier,
		Fleet:      fleet.NewHTTPManager(o.fleetURL, log.Logger),
		Bus:        pub,
		Config:     cfg,
	}
}

func init() {
	workCmd.Flags().StringVar(&workFlags.db, "db", "drydock.db", "SQLite database path")
	workCmd.Flags().StringSliceVar(&workFlags.brokers, "brokers", []string{"127.0.0.1:9092"}, "Kafka broker addresses")
	workCmd.Flags().StringVar(&workFlags.topic, "topic", "drydock.jobs", "Kafka topic for job envelopes")
	workCmd.Flags().StringVar(&workFlags.group, "group", "drydock-workers", "Kafka consumer group")
	workCmd.Flags().IntVar(&workFlags.concurrency, "concurrency", 8, "Concurrent deliveries per process")
	workCmd.Flags().StringVar(&workFlags.identityURL, "identity-url", "http://127.0.0.1:9090", "Identity service base URL")
	registerWorkerFlags(workCmd, &workWorkerOpts)
}
