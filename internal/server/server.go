package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/drydock-platform/drydock/internal/server/routes"
	"github.com/drydock-platform/drydock/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"gorm.io/gorm"
)

type Config struct {
	Port     int
	Logger   zerolog.Logger
	DB       *gorm.DB
	Bus      job.Publisher
	Identity identity.Provider
	Hub      *notify.Hub
	Metrics  http.Handler
}

type Server struct {
	e      *echo.Echo
	config *Config
}

func New(config *Config) *Server {
	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRemoteIP:  true,
		LogHost:      true,
		LogMethod:    true,
		LogURI:       true,
		LogUserAgent: true,
		LogStatus:    true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			config.Logger.Info().
				Str("remote_ip", v.RemoteIP).
				Str("host", v.Host).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("user_agent", v.UserAgent).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("handled request")
			return nil
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			config.Logger.Error().Err(err).Bytes("stack", stack).Send()
			return err
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := config.Logger.WithContext(req.Context())
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	s := &Server{e: e, config: config}
	s.init()
	return s
}

func (s *Server) init() {
	injector := do.New()
	s.injectDependencies(injector)
	s.registerRoutes(injector)
}

func (s *Server) injectDependencies(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gorm.DB, error) {
		return s.config.DB, nil
	})
	do.Provide(injector, func(i *do.Injector) (job.Publisher, error) {
		return s.config.Bus, nil
	})
	do.Provide(injector, func(i *do.Injector) (identity.Provider, error) {
		return s.config.Identity, nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.ContextVersionRepository, error) {
		return repository.NewContextVersionRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.BuildRepository, error) {
		return repository.NewBuildRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.InstanceRepository, error) {
		return repository.NewInstanceRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.IsolationGroupRepository, error) {
		return repository.NewIsolationGroupRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.OrgRepository, error) {
		return repository.NewOrgRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, usecase.NewTriggerBuildUsecase)
	do.Provide(injector, usecase.NewRedeployInstanceUsecase)
	do.Provide(injector, usecase.NewReportDockRemovedUsecase)
	do.Provide(injector, usecase.NewSyncIsolationUsecase)
	do.Provide(injector, usecase.NewGetInstanceUsecase)
	do.Provide(injector, usecase.NewGetContextVersionUsecase)
	do.Provide(injector, usecase.NewWhitelistOrgUsecase)
}

func (s *Server) registerRoutes(injector *do.Injector) {
	routes.RegisterAPI(injector, s.e)
	routes.RegisterMisc(s.e, s.config.Hub, s.config.Metrics)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.config.Logger.Info().Str("addr", addr).Msg("starting server")
	return s.e.Start(addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
