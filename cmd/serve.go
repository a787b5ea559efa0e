package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/drydock-platform/drydock/internal/bus"
	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/drydock-platform/drydock/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	port        int
	db          string
	brokers     []string
	topic       string
	group       string
	identityURL string
	workers     int
}

var serveWorkerOpts workerOpts

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and event feed",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := repository.NewSQLiteDB(serveFlags.db)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}

		promReg := prometheus.NewRegistry()
		metrics := bus.NewMetrics(promReg)
		hub := notify.NewHub(log.Logger)
		ident := identity.NewHTTPProvider(serveFlags.identityURL)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var publisher job.Publisher
		wg := &sync.WaitGroup{}
		if len(serveFlags.brokers) > 0 {
			k, err := bus.NewKafka(bus.KafkaConfig{
				Brokers: serveFlags.brokers,
				Topic:   serveFlags.topic,
				GroupID: serveFlags.group,
			}, log.Logger)
			if err != nil {
				log.Fatal().Err(err).Msg("connect to kafka")
			}
			defer k.Close()
			publisher = k
		} else {
			// No brokers: single-binary dev mode, jobs run in-process.
			mem := bus.NewMemory(0)
			publisher = mem
			deps := buildWorkerDeps(db, mem, hub, ident, serveWorkerOpts)
			mux := job.NewMux()
			for _, h := range deps.Handlers() {
				mux.Register(h)
			}
			proc := bus.NewProcessor(mux, log.Logger, metrics)
			wg.Go(func() { mem.Run(ctx, proc, serveFlags.workers) })
			log.Info().Msg("running with in-process job bus")
		}

		srv := server.New(&server.Config{
			Port:     serveFlags.port,
			Logger:   log.Logger,
			DB:       db,
			Bus:      publisher,
			Identity: ident,
			Hub:      hub,
			Metrics:  promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
		})

		wg.Go(func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		<-ctx.Done()
		log.Info().Msg("shutting down server...")
		if err := srv.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("error during server shutdown")
		}

		wg.Wait()
		log.Info().Msg("server stopped")
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveFlags.db, "db", "drydock.db", "SQLite database path")
	serveCmd.Flags().StringSliceVar(&serveFlags.brokers, "brokers", nil, "Kafka broker addresses (empty: in-process bus)")
	serveCmd.Flags().StringVar(&serveFlags.topic, "topic", "drydock.jobs", "Kafka topic for job envelopes")
	serveCmd.Flags().StringVar(&serveFlags.group, "group", "drydock-workers", "Kafka consumer group")
	serveCmd.Flags().StringVar(&serveFlags.identityURL, "identity-url", "http://127.0.0.1:9090", "Identity service base URL")
	serveCmd.Flags().IntVar(&serveFlags.workers, "workers", 4, "In-process worker count (dev mode)")
	registerWorkerFlags(serveCmd, &serveWorkerOpts)
}
