// Package worker holds the job handlers behind the platform's build and
// deploy pipeline. Every handler is idempotent under redelivery and expresses
// state transitions as conditional updates, never read-modify-write.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drydock-platform/drydock/internal/dock"
	"github.com/drydock-platform/drydock/internal/entity"
	"github.com/drydock-platform/drydock/internal/fleet"
	"github.com/drydock-platform/drydock/internal/gate"
	"github.com/drydock-platform/drydock/internal/identity"
	"github.com/drydock-platform/drydock/internal/job"
	"github.com/drydock-platform/drydock/internal/notify"
	"github.com/drydock-platform/drydock/internal/repository"
	"github.com/drydock-platform/drydock/internal/utils"
	"github.com/rs/zerolog"
)

// Config carries the tuning knobs of the pipeline. The two grace windows are
// empirical: they exist because image and container registration on a dock
// lags the daemon's own success responses.
type Config struct {
	// SchedulerHost is the dock address build-container creates are sent to.
	// Placement across the fleet happens behind it.
	SchedulerHost string
	// Registry prefixes every image tag we build.
	Registry string
	// NetworkPrefix names the per-organization container network.
	NetworkPrefix string
	// UserDomain is the suffix of generated service-discovery hostnames.
	UserDomain string
	// ImageGraceWindow: an image-not-found on container create younger than
	// this is still propagating; older means the image is gone and the
	// instance needs a rebuild.
	ImageGraceWindow time.Duration
	// RegisterGraceWindow: a 404 on container start younger than this means
	// the daemon has not registered the container yet; older means it never
	// will.
	RegisterGraceWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		SchedulerHost:       "tcp://127.0.0.1:2375",
		Registry:            "registry.drydock.local",
		NetworkPrefix:       "drydock-org",
		UserDomain:          "drydockapp.io",
		ImageGraceWindow:    2 * time.Minute,
		RegisterGraceWindow: 5 * time.Minute,
	}
}

// Deps is the collaborator bundle shared by every handler. Handlers embed it
// rather than extending a base type.
type Deps struct {
	CVs        repository.ContextVersionRepository
	Builds     repository.BuildRepository
	Instances  repository.InstanceRepository
	Isolations repository.IsolationGroupRepository
	Hosts      repository.HostRecordRepository

	Gate     *gate.Gate
	Docks    dock.Pool
	Identity identity.Provider
	Notifier notify.Notifier
	Fleet    fleet.Manager
	Bus      job.Publisher

	Config Config
	// Clock is swapped in tests exercising the grace windows.
	Clock func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Handlers returns every pipeline handler, ready for mux registration.
func (d *Deps) Handlers() []job.Handler {
	return []job.Handler{
		&BuildContainerCreate{d},
		&BuildContainerCreated{d},
		&BuildContainerStart{d},
		&BuildContainerDied{d},
		&InstanceContainerCreate{d},
		&InstanceContainerCreated{d},
		&InstanceContainerStart{d},
		&InstanceContainerDelete{d},
		&InstanceContainerRedeploy{d},
		&InstanceRebuild{d},
		&NetworkAttachFailed{d},
		&DockRemoved{d},
		&IsolationMatchCommit{d},
	}
}

// failBuild is the single write path for build failure, shared by direct
// terminal errors and final-retry hooks.
func (d *Deps) failBuild(ctx context.Context, buildID entity.ID, reason string) {
	log := zerolog.Ctx(ctx)
	if _, err := d.CVs.MarkBuildFailed(ctx, buildID, reason); err != nil {
		log.Error().Err(err).Str("build", buildID.String()).Msg("mark context versions failed")
	}
	if err := d.Builds.MarkFailed(ctx, buildID, reason); err != nil {
		log.Error().Err(err).Str("build", buildID.String()).Msg("mark build failed")
	}
}

// checkOwner runs the permission gate and wraps both denial outcomes into
// terminal errors so no handler mutates state for a disallowed org.
func (d *Deps) checkOwner(ctx context.Context, orgID int64) error {
	if err := d.Gate.CheckOwnerAllowed(ctx, orgID); err != nil {
		if entityTerminal(err) {
			return job.Terminal("owner not allowed", err)
		}
		return err
	}
	return nil
}

func entityTerminal(err error) bool {
	return errors.Is(err, entity.ErrOrgNotAllowed) ||
		errors.Is(err, entity.ErrOrgNotFound) ||
		errors.Is(err, entity.ErrNotFound)
}

func (d *Deps) imageTag(ownerUsername string, cvID entity.ID) string {
	return fmt.Sprintf("%s/%s:%s", d.Config.Registry, utils.SanitizeName(ownerUsername), cvID.Short())
}

func (d *Deps) orgNetwork(ownerUsername string) string {
	return fmt.Sprintf("%s-%s", d.Config.NetworkPrefix, utils.SanitizeName(ownerUsername))
}

// dockFor picks the dock an instance's container should land on: the dock the
// image was built on when it is still around, the scheduler otherwise.
func (d *Deps) dockFor(cv *entity.ContextVersion) string {
	if cv.DockHost != "" {
		return cv.DockHost
	}
	return d.Config.SchedulerHost
}

// hostRecords derives the service-discovery entries for a started container,
// one per exposed container port.
func (d *Deps) hostRecords(inst *entity.Instance, ownerUsername, containerID string, ports []string) []entity.HostRecord {
	hostname := fmt.Sprintf("%s-%s.%s",
		utils.SanitizeName(inst.Name), inst.ShortHash, d.Config.UserDomain)
	out := make([]entity.HostRecord, 0, len(ports))
	for _, p := range ports {
		port, ok := containerPort(p)
		if !ok {
			continue
		}
		out = append(out, entity.HostRecord{
			InstanceID:    inst.ID,
			OwnerUsername: ownerUsername,
			InstanceName:  inst.Name,
			Hostname:      hostname,
			Port:          port,
			ContainerID:   containerID,
		})
	}
	return out
}

// containerPort extracts the container-side port from a binding like
// "80/tcp->0.0.0.0:32768".
func containerPort(binding string) (int, bool) {
	head, _, _ := strings.Cut(binding, "/")
	port, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return port, true
}
