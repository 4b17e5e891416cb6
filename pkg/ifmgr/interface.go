package ifmgr

import (
	"bytes"
	"net"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

// Interface is the last known state of a kernel link.
type Interface struct {
	Index     int
	Name      string
	Type      netdev.LinkType
	AdminUp   bool
	MTU       int
	MAC       net.HardwareAddr
	Namespace string
}

func (i *Interface) IsRadio() bool {
	return i.Type == netdev.LinkTypeAX25
}

func (i *Interface) sameAttrs(o *Interface) bool {
	return i.Name == o.Name && i.MTU == o.MTU && bytes.Equal(i.MAC, o.MAC)
}

func (i *Interface) clone() *Interface {
	c := *i
	c.MAC = append(net.HardwareAddr(nil), i.MAC...)
	return &c
}
