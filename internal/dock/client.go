package dock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drydock-platform/drydock/internal/entity"
)

// BuildContainerSpec describes an image-builder container to create on a
// dock. The manifest is the build context the builder consumes.
type BuildContainerSpec struct {
	BuildID          string
	ContextVersionID string
	OwnerUsername    string
	Tag              string
	Manifest         []entity.ManifestFile
	NoCache          bool
	Manual           bool
}

// RunContainerSpec describes an application container for an instance.
type RunContainerSpec struct {
	InstanceID       string
	ContextVersionID string
	OwnerUsername    string
	Image            string
	Name             string
	Env              []string
}

type ContainerRef struct {
	ID   string
	Host string
}

type Inspect struct {
	State   string
	Running bool
	Ports   []string
	Raw     json.RawMessage
}

// Client is one logical daemon client per dock. None of its operations are
// assumed idempotent; callers re-derive intended state from the store before
// acting.
type Client interface {
	CreateBuildContainer(ctx context.Context, spec BuildContainerSpec) (ContainerRef, error)
	CreateRunContainer(ctx context.Context, spec RunContainerSpec) (ContainerRef, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string) error
	RemoveContainer(ctx context.Context, containerID string) error
	AttachNetwork(ctx context.Context, containerID, networkName string) error
	InspectContainer(ctx context.Context, containerID string) (Inspect, error)
}

// Pool hands out clients keyed by dock host address.
type Pool interface {
	For(host string) (Client, error)
}

type ErrorKind int

const (
	// KindNotFound: the daemon does not know the container.
	KindNotFound ErrorKind = iota + 1
	// KindImageNotFound: create failed because the image is not on the dock
	// yet. Distinct from KindNotFound because the caller's recovery differs.
	KindImageNotFound
	// KindClient: the request is wrong (4xx-class); retrying cannot help.
	KindClient
	// KindServer: the daemon or the wire failed (5xx-class); retryable.
	KindServer
)

// Error attaches a classification to a daemon failure so workers never
// inspect docker wire errors themselves.
type Error struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dock: %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func kindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func IsNotFound(err error) bool      { return kindOf(err) == KindNotFound }
func IsImageNotFound(err error) bool { return kindOf(err) == KindImageNotFound }
func IsClientError(err error) bool {
	k := kindOf(err)
	return k == KindClient || k == KindNotFound || k == KindImageNotFound
}
func IsServerError(err error) bool { return kindOf(err) == KindServer }
