package entity

// HostRecord is one service-discovery entry for a started container.
// Records are replaced wholesale per instance, so re-processing a start
// event is harmless.
type HostRecord struct {
	InstanceID    ID     `json:"instance_id"`
	OwnerUsername string `json:"owner_username"`
	InstanceName  string `json:"instance_name"`
	Hostname      string `json:"hostname"`
	Port          int    `json:"port"`
	ContainerID   string `json:"container_id"`
}
