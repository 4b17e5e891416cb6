//go:build linux

// Package nsutil runs code inside a network namespace.
package nsutil

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

type Namespace struct {
	Name   string
	Handle netns.NsHandle
}

// Open returns the named namespace, or the current one when name is empty.
func Open(name string) (*Namespace, error) {
	var (
		h   netns.NsHandle
		err error
	)
	if name == "" {
		h, err = netns.Get()
	} else {
		h, err = netns.GetFromName(name)
	}
	if err != nil {
		return nil, fmt.Errorf("open network namespace %q: %w", name, err)
	}
	return &Namespace{Name: name, Handle: h}, nil
}

// ID is the stable identity of the namespace as reported on devices.
func (n *Namespace) ID() string {
	return n.Handle.UniqueId()
}

func (n *Namespace) String() string {
	if n.Name == "" {
		return "default"
	}
	return n.Name
}

func (n *Namespace) NetlinkHandle() (*netlink.Handle, error) {
	h, err := netlink.NewHandleAt(n.Handle)
	if err != nil {
		return nil, fmt.Errorf("netlink handle in %s: %w", n, err)
	}
	return h, nil
}

// Do runs fn on a locked OS thread switched into the namespace. Sockets and
// devices created by fn belong to the namespace.
func (n *Namespace) Do(fn func() error) error {
	runtime.LockOSThread()

	orig, err := netns.Get()
	if err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("get current namespace: %w", err)
	}
	defer orig.Close()

	if orig.Equal(n.Handle) {
		runtime.UnlockOSThread()
		return fn()
	}

	if err := netns.Set(n.Handle); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("enter namespace %s: %w", n, err)
	}

	fnErr := fn()

	// A thread that cannot switch back stays locked and exits with the
	// goroutine.
	if err := netns.Set(orig); err != nil {
		return fmt.Errorf("restore namespace: %w", err)
	}
	runtime.UnlockOSThread()
	return fnErr
}

func (n *Namespace) Close() error {
	return n.Handle.Close()
}
