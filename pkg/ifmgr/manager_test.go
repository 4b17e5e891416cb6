package ifmgr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

func radio(up bool, mtu int) *Interface {
	return &Interface{
		Index:   3,
		Name:    "ax0",
		Type:    netdev.LinkTypeAX25,
		AdminUp: up,
		MTU:     mtu,
		MAC:     net.HardwareAddr{0x9C, 0x60, 0x86, 0x82, 0x98, 0x98, 0x60},
	}
}

func TestUpdateTransitions(t *testing.T) {
	m := New()

	assert.Empty(t, m.Update(radio(false, 256)), "new link that is down")
	assert.Empty(t, m.Update(radio(false, 256)), "no change")
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkActivated}, m.Update(radio(true, 256)))
	assert.Empty(t, m.Update(radio(true, 256)))
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkChanged}, m.Update(radio(true, 512)))
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkChanged, netdev.LinkDeactivated}, m.Update(radio(false, 256)))
}

func TestUpdateNewLinkUp(t *testing.T) {
	m := New()
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkActivated}, m.Update(radio(true, 256)))
	assert.True(t, m.Get(3).IsRadio())
}

func TestRemove(t *testing.T) {
	m := New()

	_, kinds := m.Remove(3)
	assert.Nil(t, kinds)

	m.Update(radio(true, 256))
	iface, kinds := m.Remove(3)
	require.NotNil(t, iface)
	assert.Equal(t, "ax0", iface.Name)
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkDeactivated, netdev.LinkRemoved}, kinds)
	assert.Nil(t, m.Get(3))
	assert.Nil(t, m.GetByName("ax0"))

	m.Update(radio(false, 256))
	_, kinds = m.Remove(3)
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkRemoved}, kinds)
}

func TestRenameKeepsIndex(t *testing.T) {
	m := New()
	m.Update(radio(true, 256))

	renamed := radio(true, 256)
	renamed.Name = "ax9"
	assert.Equal(t, []netdev.LinkEventKind{netdev.LinkChanged}, m.Update(renamed))

	assert.Nil(t, m.GetByName("ax0"))
	idx, ok := m.GetIndex("ax9")
	require.True(t, ok)
	assert.Equal(t, 3, idx)
}

func TestReturnedCopiesAreIsolated(t *testing.T) {
	m := New()
	in := radio(true, 256)
	m.Update(in)
	in.MAC[0] = 0

	got := m.Get(3)
	assert.Equal(t, byte(0x9C), got.MAC[0])
	got.MTU = 1

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, 256, list[0].MTU)
}
