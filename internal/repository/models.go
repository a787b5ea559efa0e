package repository

import (
	"encoding/json"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
)

type ContextVersion struct {
	ID          string `gorm:"primaryKey"`
	OrgID       int64  `gorm:"index"`
	CreatedByID int64
	State       string `gorm:"index"`

	DockHost         string `gorm:"index"`
	DockRemoved      bool
	PreviousDockHost string

	Repo   string `gorm:"index:idx_cv_repo_branch"`
	Branch string `gorm:"index:idx_cv_repo_branch"`
	Commit string

	BuildID               string `gorm:"index"`
	BuildStartedAt        *time.Time
	BuildFinishedAt       *time.Time
	BuildCompletedAt      *time.Time
	BuildContainerID      string
	BuildContainerTag     string
	BuildContainerStarted *time.Time
	BuildFailed           bool
	BuildError            string
	BuildRecovered        bool

	Manifest []entity.ManifestFile `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *ContextVersion) ToEntity() *entity.ContextVersion {
	return &entity.ContextVersion{
		ID:               entity.ID(m.ID),
		OrgID:            m.OrgID,
		CreatedByID:      m.CreatedByID,
		State:            entity.ContextVersionState(m.State),
		DockHost:         m.DockHost,
		DockRemoved:      m.DockRemoved,
		PreviousDockHost: m.PreviousDockHost,
		AppCode: entity.AppCodeVersion{
			Repo:   m.Repo,
			Branch: m.Branch,
			Commit: m.Commit,
		},
		Build: entity.BuildRecord{
			ID:                 entity.ID(m.BuildID),
			StartedAt:          m.BuildStartedAt,
			FinishedAt:         m.BuildFinishedAt,
			CompletedAt:        m.BuildCompletedAt,
			ContainerID:        m.BuildContainerID,
			ContainerTag:       m.BuildContainerTag,
			ContainerStartedAt: m.BuildContainerStarted,
			Failed:             m.BuildFailed,
			Error:              m.BuildError,
			Recovered:          m.BuildRecovered,
		},
		Manifest:  m.Manifest,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (m *ContextVersion) FromEntity(e *entity.ContextVersion) {
	m.ID = e.ID.String()
	m.OrgID = e.OrgID
	m.CreatedByID = e.CreatedByID
	m.State = string(e.State)
	m.DockHost = e.DockHost
	m.DockRemoved = e.DockRemoved
	m.PreviousDockHost = e.PreviousDockHost
	m.Repo = e.AppCode.Repo
	m.Branch = e.AppCode.Branch
	m.Commit = e.AppCode.Commit
	m.BuildID = e.Build.ID.String()
	m.BuildStartedAt = e.Build.StartedAt
	m.BuildFinishedAt = e.Build.FinishedAt
	m.BuildCompletedAt = e.Build.CompletedAt
	m.BuildContainerID = e.Build.ContainerID
	m.BuildContainerTag = e.Build.ContainerTag
	m.BuildContainerStarted = e.Build.ContainerStartedAt
	m.BuildFailed = e.Build.Failed
	m.BuildError = e.Build.Error
	m.BuildRecovered = e.Build.Recovered
	m.Manifest = e.Manifest
}

type Build struct {
	ID               string `gorm:"primaryKey"`
	OrgID            int64  `gorm:"index"`
	ContextVersionID string
	StartedAt        *time.Time
	CompletedAt      *time.Time
	Successful       bool
	FailedReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (m *Build) ToEntity() *entity.Build {
	return &entity.Build{
		ID:               entity.ID(m.ID),
		OrgID:            m.OrgID,
		ContextVersionID: entity.ID(m.ContextVersionID),
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		Successful:       m.Successful,
		FailedReason:     m.FailedReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (m *Build) FromEntity(e *entity.Build) {
	m.ID = e.ID.String()
	m.OrgID = e.OrgID
	m.ContextVersionID = e.ContextVersionID.String()
	m.StartedAt = e.StartedAt
	m.CompletedAt = e.CompletedAt
	m.Successful = e.Successful
	m.FailedReason = e.FailedReason
}

type Instance struct {
	ID               string `gorm:"primaryKey"`
	ShortHash        string `gorm:"index"`
	Name             string
	OrgID            int64  `gorm:"index"`
	CreatedByID      int64
	BuildID          string `gorm:"index"`
	ContextVersionID string `gorm:"index"`
	MasterPod        bool
	IsolationID      string `gorm:"index"`
	IsolationMaster  bool

	Repo   string `gorm:"index:idx_instance_repo_branch"`
	Branch string `gorm:"index:idx_instance_repo_branch"`
	Commit string

	ContainerID        string          `gorm:"index"`
	ContainerHost      string          `gorm:"index"`
	ContainerState     string
	ContainerPorts     []string        `gorm:"serializer:json"`
	ContainerInspect   json.RawMessage `gorm:"serializer:json"`
	ContainerError     string
	ContainerStartedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Instance) ToEntity() *entity.Instance {
	e := &entity.Instance{
		ID:               entity.ID(m.ID),
		ShortHash:        m.ShortHash,
		Name:             m.Name,
		OrgID:            m.OrgID,
		CreatedByID:      m.CreatedByID,
		BuildID:          entity.ID(m.BuildID),
		ContextVersionID: entity.ID(m.ContextVersionID),
		MasterPod:        m.MasterPod,
		IsolationID:      entity.ID(m.IsolationID),
		IsolationMaster:  m.IsolationMaster,
		AppCode: entity.AppCodeVersion{
			Repo:   m.Repo,
			Branch: m.Branch,
			Commit: m.Commit,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ContainerID != "" || m.ContainerError != "" {
		e.Container = &entity.Container{
			ID:        m.ContainerID,
			Host:      m.ContainerHost,
			State:     entity.ContainerState(m.ContainerState),
			Ports:     m.ContainerPorts,
			Inspect:   m.ContainerInspect,
			Error:     m.ContainerError,
			StartedAt: m.ContainerStartedAt,
		}
	}
	return e
}

func (m *Instance) FromEntity(e *entity.Instance) {
	m.ID = e.ID.String()
	m.ShortHash = e.ShortHash
	m.Name = e.Name
	m.OrgID = e.OrgID
	m.CreatedByID = e.CreatedByID
	m.BuildID = e.BuildID.String()
	m.ContextVersionID = e.ContextVersionID.String()
	m.MasterPod = e.MasterPod
	m.IsolationID = e.IsolationID.String()
	m.IsolationMaster = e.IsolationMaster
	m.Repo = e.AppCode.Repo
	m.Branch = e.AppCode.Branch
	m.Commit = e.AppCode.Commit
	if c := e.Container; c != nil {
		m.ContainerID = c.ID
		m.ContainerHost = c.Host
		m.ContainerState = string(c.State)
		m.ContainerPorts = c.Ports
		m.ContainerInspect = c.Inspect
		m.ContainerError = c.Error
		m.ContainerStartedAt = c.StartedAt
	}
}

type IsolationGroup struct {
	ID               string `gorm:"primaryKey"`
	MasterInstanceID string
	CreatedAt        time.Time
}

func (m *IsolationGroup) ToEntity() *entity.IsolationGroup {
	return &entity.IsolationGroup{
		ID:               entity.ID(m.ID),
		MasterInstanceID: entity.ID(m.MasterInstanceID),
		CreatedAt:        m.CreatedAt,
	}
}

func (m *IsolationGroup) FromEntity(e *entity.IsolationGroup) {
	m.ID = e.ID.String()
	m.MasterInstanceID = e.MasterInstanceID.String()
}

type Org struct {
	OrgID     int64 `gorm:"primaryKey"`
	Name      string
	Allowed   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Org) ToEntity() *entity.OrgRecord {
	return &entity.OrgRecord{OrgID: m.OrgID, Name: m.Name, Allowed: m.Allowed}
}

func (m *Org) FromEntity(e *entity.OrgRecord) {
	m.OrgID = e.OrgID
	m.Name = e.Name
	m.Allowed = e.Allowed
}

type HostRecord struct {
	ID            uint   `gorm:"primaryKey"`
	InstanceID    string `gorm:"index"`
	OwnerUsername string
	InstanceName  string
	Hostname      string
	Port          int
	ContainerID   string
	CreatedAt     time.Time
}

func (m *HostRecord) ToEntity() *entity.HostRecord {
	return &entity.HostRecord{
		InstanceID:    entity.ID(m.InstanceID),
		OwnerUsername: m.OwnerUsername,
		InstanceName:  m.InstanceName,
		Hostname:      m.Hostname,
		Port:          m.Port,
		ContainerID:   m.ContainerID,
	}
}

func (m *HostRecord) FromEntity(e *entity.HostRecord) {
	m.InstanceID = e.InstanceID.String()
	m.OwnerUsername = e.OwnerUsername
	m.InstanceName = e.InstanceName
	m.Hostname = e.Hostname
	m.Port = e.Port
	m.ContainerID = e.ContainerID
}
