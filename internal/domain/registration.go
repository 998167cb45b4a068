package domain

// TopologyState is the lifecycle state of a topology.
type TopologyState uint8

const (
	StateBuilding TopologyState = iota
	StateBuilt
	StateRunning
	StateStopped
)

func (s TopologyState) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// RegistrationInfo describes one applied registration.
type RegistrationInfo struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Description string   `json:"description"`
	Released    bool     `json:"released"`
	// Path is the path attribute of the node, if any.
	Path string `json:"path,omitempty"`
	// Params holds the init params, or the context params of a context.
	Params InitParams `json:"params,omitempty"`
}
