package netdev

type LinkEventKind int

const (
	LinkActivated LinkEventKind = iota
	LinkDeactivated
	LinkRemoved
	LinkChanged
)

func (k LinkEventKind) String() string {
	switch k {
	case LinkActivated:
		return "activated"
	case LinkDeactivated:
		return "deactivated"
	case LinkRemoved:
		return "removed"
	case LinkChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// LinkEvent describes one state transition of an interface. Device is only
// set for link types the process opens itself (AX.25).
type LinkEvent struct {
	Kind      LinkEventKind `json:"kind"`
	Index     int           `json:"index"`
	Name      string        `json:"name"`
	Type      LinkType      `json:"type"`
	Up        bool          `json:"up"`
	MTU       int           `json:"mtu"`
	Namespace string        `json:"namespace"`
	Device    Device        `json:"-"`
}

func (k LinkEventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
