package cmd

import (
	"testing"
	"time"

	"github.com/drydock-platform/drydock/internal/bus"
	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/drydock-platform/drydock/internal/worker"
	"github.com/spf13/cobra"
)

func depsForOpts(t *testing.T, o workerOpts) *worker.Deps {
	t.Helper()
	db, err := repository.NewSQLiteDB("")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return buildWorkerDeps(db, bus.NewMemory(1), notify.Nop{}, identity.NewHTTPProvider(""), o)
}

func TestWorkerFlagDefaults(t *testing.T) {
	c := &cobra.Command{}
	var o workerOpts
	registerWorkerFlags(c, &o)
	if err := c.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	deps := depsForOpts(t, o)
	if deps.Config != worker.DefaultConfig() {
		t.Errorf("config = %+v; want defaults", deps.Config)
	}
}

func TestWorkerFlagOverridesReachConfig(t *testing.T) {
	c := &cobra.Command{}
	var o workerOpts
	registerWorkerFlags(c, &o)
	err := c.ParseFlags([]string{
		"--scheduler=tcp://dock-9:2375",
		"--registry=registry.example.test",
		"--network-prefix=team",
		"--image-grace=90s",
		"--register-grace=10m",
	})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := depsForOpts(t, o).Config
	if cfg.SchedulerHost != "tcp://dock-9:2375" {
		t.Errorf("SchedulerHost = %q", cfg.SchedulerHost)
	}
	if cfg.Registry != "registry.example.test" {
		t.Errorf("Registry = %q", cfg.Registry)
	}
	if cfg.NetworkPrefix != "team" {
		t.Errorf("NetworkPrefix = %q", cfg.NetworkPrefix)
	}
	if cfg.ImageGraceWindow != 90*time.Second {
		t.Errorf("ImageGraceWindow = %v", cfg.ImageGraceWindow)
	}
	if cfg.RegisterGraceWindow != 10*time.Minute {
		t.Errorf("RegisterGraceWindow = %v", cfg.RegisterGraceWindow)
	}
}
