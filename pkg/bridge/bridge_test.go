package bridge

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/eoax"
	"github.com/veesix-networks/eoax/pkg/ethernet"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/events/local"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
	"github.com/veesix-networks/eoax/pkg/netdev/netdevtest"
)

var radioStation = []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x30}

type failingAllocator struct{}

func (failingAllocator) Alloc(int) ([]byte, error) {
	return nil, errors.New("allocation refused")
}

type harness struct {
	bridge  *Bridge
	ctrl    *Controller
	factory *netdevtest.Factory
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.Namespace == "" {
		cfg.Namespace = netdevtest.Namespace
	}
	b := New(cfg)
	f := netdevtest.NewFactory()
	return &harness{
		bridge:  b,
		ctrl:    NewController(b, ControllerConfig{Factory: f}),
		factory: f,
	}
}

func linkEvent(kind netdev.LinkEventKind, dev *netdevtest.Device) netdev.LinkEvent {
	return netdev.LinkEvent{
		Kind:      kind,
		Index:     dev.Index(),
		Name:      dev.Name(),
		Type:      dev.Type(),
		Up:        dev.IsRunning(),
		MTU:       dev.MTU(),
		Namespace: dev.Namespace(),
		Device:    dev,
	}
}

// pair activates radio and returns its open virtual interface.
func (h *harness) pair(t *testing.T, radio *netdevtest.Device) *netdevtest.Virtual {
	t.Helper()
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))
	created := h.factory.Created()
	require.NotEmpty(t, created)
	virt := created[len(created)-1]
	require.NoError(t, virt.Open())
	return virt
}

func ethFrame(dst, src net.HardwareAddr, etherType uint16, payload []byte) []byte {
	b := make([]byte, 0, ethernet.HeaderLen+len(payload))
	b = append(b, dst...)
	b = append(b, src...)
	b = append(b, byte(etherType>>8), byte(etherType))
	return append(b, payload...)
}

func frameOf(data []byte, headroom int) *netdev.Frame {
	f := netdev.NewFrame(headroom, len(data))
	copy(f.Bytes(), data)
	return f
}

var (
	peerMAC = net.HardwareAddr{0x9C, 0x60, 0x86, 0x82, 0x98, 0x98}
	payload = []byte("hello over the air")
)

func TestActivationCreatesPair(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)

	err := h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio))
	require.NoError(t, err)

	require.Equal(t, 1, h.bridge.Registry().Len())
	created := h.factory.Created()
	require.Len(t, created, 1)

	virt := created[0]
	assert.Equal(t, "eoax0", virt.Name())
	assert.Equal(t, "ab:bb:cc:dd:ee:ff", virt.HardwareAddr().String())
	assert.Equal(t, 242, virt.MTU())
	assert.False(t, virt.IsRunning())
	assert.Equal(t, 2, radio.Refs())

	got, ok := h.bridge.Registry().LookupByRadio(3)
	require.True(t, ok)
	assert.Same(t, virt, got)

	back, put, ok := h.bridge.Registry().LookupByVirtual(virt)
	require.True(t, ok)
	assert.Same(t, radio, back)
	put()
	assert.Equal(t, 2, radio.Refs())
}

func TestActivationWithHeaderSizedMTU(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, ethernet.HeaderLen)

	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))

	created := h.factory.Created()
	require.Len(t, created, 1)
	assert.Equal(t, 0, created[0].MTU())
	assert.Equal(t, 1, h.bridge.Registry().Len())
}

func TestActivationRejectedGroupAddress(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(nil) })

	h := newHarness(t, Config{})
	h.factory.RejectGroupAddress(true)

	// SSID 8 sets the group bit of the first hardware address byte.
	station, err := ax25.ParseAddress("N0CALL-8")
	require.NoError(t, err)
	radio := netdevtest.NewRadio("ax0", 3, station[:], 256)

	err = h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio))
	require.ErrorIs(t, err, ErrGroupStation)
	require.ErrorIs(t, err, netdev.ErrGroupAddress)

	assert.Equal(t, 0, h.bridge.Registry().Len())
	assert.Equal(t, 1, radio.Refs())
	assert.Contains(t, buf.String(), "radio=ax0")
	assert.Contains(t, buf.String(), "callsign=N0CALL")
	assert.Contains(t, buf.String(), "ssid=8")

	// SSIDs below 8 map to individual addresses.
	low, err := ax25.ParseAddress("N0CALL-7")
	require.NoError(t, err)
	other := netdevtest.NewRadio("ax1", 4, low[:], 256)
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, other)))
	assert.Equal(t, 1, h.bridge.Registry().Len())
}

func TestActivationIsIdempotent(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))
	}

	assert.Equal(t, 1, h.bridge.Registry().Len())
	assert.Len(t, h.factory.Created(), 1)
	assert.Equal(t, 2, radio.Refs())
}

func TestActivationAutoUp(t *testing.T) {
	b := New(Config{Namespace: netdevtest.Namespace})
	f := netdevtest.NewFactory()
	ctrl := NewController(b, ControllerConfig{Factory: f, NameTemplate: "ham%d", AutoUp: true})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)

	require.NoError(t, ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))

	created := f.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "ham0", created[0].Name())
	assert.True(t, created[0].IsRunning())
}

func TestActivationFailureLeavesNoState(t *testing.T) {
	tests := []struct {
		name    string
		mtu     int
		addr    []byte
		fail    bool
		wantErr error
	}{
		{name: "factory failure", mtu: 256, addr: radioStation, fail: true, wantErr: netdevtest.ErrFactoryFailed},
		{name: "mtu below header", mtu: ethernet.HeaderLen - 1, addr: radioStation, wantErr: ErrMTUTooSmall},
		{name: "short address", mtu: 256, addr: radioStation[:6], wantErr: ErrBadAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			h.factory.FailNext(tt.fail)
			radio := netdevtest.NewRadio("ax0", 3, tt.addr, tt.mtu)

			err := h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio))
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 0, h.bridge.Registry().Len())
			assert.Equal(t, 1, radio.Refs())
		})
	}
}

func TestIgnoresForeignNamespaceAndOtherLinks(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	radio.SetNamespace("other")

	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))
	assert.Equal(t, 0, h.bridge.Registry().Len())

	require.NoError(t, h.ctrl.HandleEvent(context.Background(), netdev.LinkEvent{
		Kind:      netdev.LinkActivated,
		Index:     7,
		Name:      "eth0",
		Type:      netdev.LinkTypeEther,
		Namespace: netdevtest.Namespace,
	}))
	assert.Equal(t, 0, h.bridge.Registry().Len())
	assert.Empty(t, h.factory.Created())
}

func TestDeactivationStopsVirtual(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)
	require.True(t, virt.IsRunning())

	radio.SetRunning(false)
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkDeactivated, radio)))

	assert.False(t, virt.IsRunning())
	assert.False(t, virt.Destroyed())
	assert.Equal(t, 1, h.bridge.Registry().Len())
	assert.Equal(t, 2, radio.Refs())
}

func TestRemovalTearsDownPair(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkRemoved, radio)))

	assert.Equal(t, 0, h.bridge.Registry().Len())
	assert.True(t, virt.Destroyed())
	assert.Equal(t, 1, radio.Refs())

	_, _, ok := h.bridge.Registry().LookupByVirtual(virt)
	assert.False(t, ok)

	// Unknown radio removal is a no-op.
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkRemoved, radio)))
}

func TestVirtualStateIsSynced(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))
	virt := h.factory.Created()[0]

	require.NoError(t, h.ctrl.HandleEvent(context.Background(), netdev.LinkEvent{
		Kind:      netdev.LinkActivated,
		Index:     virt.Index(),
		Name:      virt.Name(),
		Type:      netdev.LinkTypeEther,
		Up:        true,
		Namespace: netdevtest.Namespace,
	}))

	assert.True(t, virt.IsRunning())
}

func TestShutdownDrainsEveryPair(t *testing.T) {
	h := newHarness(t, Config{})
	radios := []*netdevtest.Device{
		netdevtest.NewRadio("ax0", 3, radioStation, 256),
		netdevtest.NewRadio("ax1", 4, []byte{0x9C, 0x60, 0x86, 0x82, 0x98, 0x98, 0x02}, 256),
	}
	for _, r := range radios {
		h.pair(t, r)
	}
	require.Equal(t, 2, h.bridge.Registry().Len())

	require.NoError(t, h.ctrl.Shutdown(context.Background()))

	assert.Equal(t, 0, h.bridge.Registry().Len())
	for _, r := range radios {
		assert.Equal(t, 1, r.Refs(), r.Name())
	}
	for _, v := range h.factory.Created() {
		assert.True(t, v.Destroyed(), v.Name())
	}

	err := h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radios[0]))
	assert.ErrorIs(t, err, ErrControllerDone)
}

func TestReceiveWithEmptyRegistry(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)

	f := frameOf(ethFrame(eoax.EthernetBroadcast[:], peerMAC, ethernet.EtherTypeIPv4, payload), 0)
	assert.Equal(t, Dropped, h.bridge.Receive(radio, f))

	assert.Equal(t, uint64(1), h.bridge.Drops().Get(Inbound, DropNoPair))
	assert.Equal(t, netdev.StatsSnapshot{}, radio.Stats().Snapshot())
}

func TestReceiveDelivers(t *testing.T) {
	tests := []struct {
		name      string
		dst       func(virt *netdevtest.Virtual) net.HardwareAddr
		etherType uint16
		payload   []byte
		wantType  netdev.PacketType
		wantProto uint16
	}{
		{
			name:      "to us",
			dst:       func(v *netdevtest.Virtual) net.HardwareAddr { return v.HardwareAddr() },
			etherType: ethernet.EtherTypeIPv4,
			wantType:  netdev.PacketHost,
			wantProto: ethernet.EtherTypeIPv4,
		},
		{
			name:      "broadcast",
			dst:       func(*netdevtest.Virtual) net.HardwareAddr { return eoax.EthernetBroadcast[:] },
			etherType: ethernet.EtherTypeARP,
			wantType:  netdev.PacketBroadcast,
			wantProto: ethernet.EtherTypeARP,
		},
		{
			name:      "multicast",
			dst:       func(*netdevtest.Virtual) net.HardwareAddr { return net.HardwareAddr{0x01, 0x00, 0x5e, 0, 0, 1} },
			etherType: ethernet.EtherTypeIPv4,
			wantType:  netdev.PacketMulticast,
			wantProto: ethernet.EtherTypeIPv4,
		},
		{
			name:      "other host",
			dst:       func(*netdevtest.Virtual) net.HardwareAddr { return peerMAC },
			etherType: ethernet.EtherTypeIPv6,
			wantType:  netdev.PacketOtherHost,
			wantProto: ethernet.EtherTypeIPv6,
		},
		{
			name:      "length framed",
			dst:       func(v *netdevtest.Virtual) net.HardwareAddr { return v.HardwareAddr() },
			etherType: uint16(len(payload)),
			wantType:  netdev.PacketHost,
			wantProto: ethernet.EtherType8022,
		},
		{
			name:      "raw 802.3",
			dst:       func(v *netdevtest.Virtual) net.HardwareAddr { return v.HardwareAddr() },
			etherType: uint16(len(payload)),
			payload:   append([]byte{0xff, 0xff}, payload...),
			wantType:  netdev.PacketHost,
			wantProto: ethernet.EtherType8023,
		},
		{
			// The length field does not cover the 0xFFFF marker.
			name:      "raw 802.3 with zero length",
			dst:       func(v *netdevtest.Virtual) net.HardwareAddr { return v.HardwareAddr() },
			etherType: 0,
			payload:   append([]byte{0xff, 0xff}, payload...),
			wantType:  netdev.PacketHost,
			wantProto: ethernet.EtherType8023,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
			virt := h.pair(t, radio)

			body := tt.payload
			if body == nil {
				body = payload
			}
			data := ethFrame(tt.dst(virt), peerMAC, tt.etherType, body)
			require.Equal(t, Delivered, h.bridge.Receive(radio, frameOf(data, 0)))

			delivered := virt.Delivered()
			require.Len(t, delivered, 1)
			got := delivered[0]
			assert.Equal(t, data, got.Bytes())
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantProto, got.Protocol)
			assert.Same(t, virt, got.Dev)

			stats := virt.Stats().Snapshot()
			assert.Equal(t, uint64(1), stats.RxPackets)
			assert.Equal(t, uint64(len(data)), stats.RxBytes)
		})
	}
}

func TestReceiveUnsharesFrame(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	f := frameOf(ethFrame(virt.HardwareAddr(), peerMAC, ethernet.EtherTypeIPv4, payload), 0)
	f.Get()

	require.Equal(t, Delivered, h.bridge.Receive(radio, f))
	got := virt.Delivered()[0]
	assert.NotSame(t, f, got)
	assert.False(t, f.Shared())
}

func TestReceiveDrops(t *testing.T) {
	t.Run("virtual down", func(t *testing.T) {
		h := newHarness(t, Config{})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)
		require.NoError(t, virt.Stop())

		f := frameOf(ethFrame(virt.HardwareAddr(), peerMAC, ethernet.EtherTypeIPv4, payload), 0)
		assert.Equal(t, Dropped, h.bridge.Receive(radio, f))
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Inbound, DropVirtualDown))
		assert.Equal(t, netdev.StatsSnapshot{}, virt.Stats().Snapshot())
	})

	t.Run("foreign namespace", func(t *testing.T) {
		h := newHarness(t, Config{})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)
		radio.SetNamespace("other")

		f := frameOf(ethFrame(virt.HardwareAddr(), peerMAC, ethernet.EtherTypeIPv4, payload), 0)
		assert.Equal(t, Dropped, h.bridge.Receive(radio, f))
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Inbound, DropForeignNamespace))
		assert.Empty(t, virt.Delivered())
	})

	t.Run("runt", func(t *testing.T) {
		h := newHarness(t, Config{})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)

		assert.Equal(t, Dropped, h.bridge.Receive(radio, frameOf([]byte{1, 2, 3, 4, 5}, 0)))
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Inbound, DropRunt))
		assert.Equal(t, uint64(1), virt.Stats().Snapshot().RxDropped)
	})

	t.Run("no buffer", func(t *testing.T) {
		h := newHarness(t, Config{Allocator: failingAllocator{}})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)

		f := frameOf(ethFrame(virt.HardwareAddr(), peerMAC, ethernet.EtherTypeIPv4, payload), 0)
		f.Get()
		assert.Equal(t, Dropped, h.bridge.Receive(radio, f))
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Inbound, DropNoBuffer))
	})
}

func TestTransmitToDownInterface(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkActivated, radio)))
	virt := h.factory.Created()[0]
	require.False(t, virt.IsRunning())

	res := virt.Inject(ethFrame(peerMAC, virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload), ax25.HeaderLen)

	assert.Equal(t, netdev.TxOK, res)
	assert.Empty(t, radio.Sent())
	assert.Equal(t, uint64(1), h.bridge.Drops().Get(Outbound, DropVirtualDown))
	assert.Equal(t, netdev.StatsSnapshot{}, radio.Stats().Snapshot())
}

func TestTransmitUnicast(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	peer, err := ax25.ParseAddress("SV1OAN-11")
	require.NoError(t, err)
	data := ethFrame(eoax.RadioToHardware(peer), virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload)

	// No headroom forces a copy.
	require.Equal(t, netdev.TxOK, virt.Inject(data, 0))

	sent := radio.Sent()
	require.Len(t, sent, 1)
	out := sent[0]

	hdr, n, err := ax25.ParseHeader(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, ax25.HeaderLen, n)
	assert.True(t, hdr.Dst.Equal(peer), "dst %s", hdr.Dst)
	assert.True(t, hdr.Src.Equal(ax25.Address(radioStation)), "src %s", hdr.Src)
	assert.Equal(t, ax25.PIDEoAX, hdr.PID)
	assert.Equal(t, data, out.Bytes()[n:])

	assert.Equal(t, netdev.PacketHost, out.Type)
	assert.Equal(t, ethernet.EtherTypeIPv4, out.Protocol)
	assert.Same(t, radio, out.Dev)

	stats := radio.Stats().Snapshot()
	assert.Equal(t, uint64(1), stats.TxPackets)
	assert.Equal(t, uint64(len(data)+ax25.HeaderLen), stats.TxBytes)
	assert.Equal(t, netdev.StatsSnapshot{}, virt.Stats().Snapshot())
}

func TestTransmitBroadcast(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	data := ethFrame(eoax.EthernetBroadcast[:], virt.HardwareAddr(), ethernet.EtherTypeARP, payload)
	require.Equal(t, netdev.TxOK, virt.Inject(data, ax25.HeaderLen))

	sent := radio.Sent()
	require.Len(t, sent, 1)
	hdr, _, err := ax25.ParseHeader(sent[0].Bytes())
	require.NoError(t, err)
	assert.True(t, hdr.Dst.Equal(ax25.Broadcast))
	assert.Equal(t, "QST", hdr.Dst.String())
	assert.Equal(t, netdev.PacketHost, sent[0].Type)
}

func TestTransmitKeepsLengthField(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	data := ethFrame(peerMAC, virt.HardwareAddr(), uint16(len(payload)), payload)
	require.Equal(t, netdev.TxOK, virt.Inject(data, ax25.HeaderLen))

	sent := radio.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, uint16(len(payload)), sent[0].Protocol)
}

// teardownHeader removes the pair while the frame is between lookup and
// transmit.
type teardownHeader struct {
	during func()
}

func (h *teardownHeader) BuildHeader(f *netdev.Frame, dev netdev.Device, pid byte, dst ax25.Address) error {
	if h.during != nil {
		h.during()
	}
	return ax25.HeaderOps{}.BuildHeader(f, dev, pid, dst)
}

func TestTransmitHoldsRadioAcrossTeardown(t *testing.T) {
	hdr := &teardownHeader{}
	h := newHarness(t, Config{Header: hdr})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	hdr.during = func() {
		require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkRemoved, radio)))
		// The owner lets go of the radio as well.
		radio.Put()
	}

	data := ethFrame(peerMAC, virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload)
	require.Equal(t, netdev.TxOK, virt.Inject(data, ax25.HeaderLen))

	require.Len(t, radio.Sent(), 1)
	refs := radio.TransmitRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, 1, refs[0], "radio must stay referenced while transmitting")

	assert.Equal(t, 0, radio.Refs())
	assert.Equal(t, 0, h.bridge.Registry().Len())
	assert.True(t, virt.Destroyed())
}

func TestTransmitOutOfMemoryIsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(nil) })

	h := newHarness(t, Config{Allocator: failingAllocator{}})
	h.bridge.oomLimiter = logger.NewRateLimiter(200*time.Millisecond, 2)
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	virt := h.pair(t, radio)

	oomLines := func() []string {
		var out []string
		for _, line := range strings.Split(buf.String(), "\n") {
			if strings.Contains(line, "Out of memory") {
				out = append(out, line)
			}
		}
		return out
	}

	data := ethFrame(peerMAC, virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload)
	for i := 0; i < 5; i++ {
		assert.Equal(t, netdev.TxOK, virt.Inject(data, 0))
	}
	assert.Equal(t, uint64(5), h.bridge.Drops().Get(Outbound, DropNoBuffer))

	lines := oomLines()
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "ERROR")
		assert.Contains(t, line, "interface=eoax0")
		assert.NotContains(t, line, "suppressed")
	}

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, netdev.TxOK, virt.Inject(data, 0))

	lines = oomLines()
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "interface=eoax0")
	assert.Contains(t, lines[2], "suppressed=3")
}

func TestTransmitDrops(t *testing.T) {
	t.Run("out of memory", func(t *testing.T) {
		h := newHarness(t, Config{Allocator: failingAllocator{}})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)

		data := ethFrame(peerMAC, virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload)
		assert.Equal(t, netdev.TxOK, virt.Inject(data, 0))
		assert.Empty(t, radio.Sent())
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Outbound, DropNoBuffer))
	})

	t.Run("runt", func(t *testing.T) {
		h := newHarness(t, Config{})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)

		assert.Equal(t, netdev.TxOK, virt.Inject([]byte{1, 2, 3}, ax25.HeaderLen))
		assert.Empty(t, radio.Sent())
		assert.Equal(t, uint64(1), virt.Stats().Snapshot().TxDropped)
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Outbound, DropRunt))
	})

	t.Run("radio released", func(t *testing.T) {
		h := newHarness(t, Config{})
		radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
		virt := h.pair(t, radio)
		require.NoError(t, h.ctrl.HandleEvent(context.Background(), linkEvent(netdev.LinkRemoved, radio)))

		// A sender that still holds the device after teardown.
		virt.SyncState(true)
		data := ethFrame(peerMAC, virt.HardwareAddr(), ethernet.EtherTypeIPv4, payload)
		assert.Equal(t, netdev.TxOK, virt.Inject(data, ax25.HeaderLen))

		assert.Empty(t, radio.Sent())
		assert.Equal(t, uint64(1), virt.Stats().Snapshot().TxDropped)
		assert.Equal(t, uint64(1), h.bridge.Drops().Get(Outbound, DropNoPair))
	})
}

func TestPairsReportsState(t *testing.T) {
	h := newHarness(t, Config{})
	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	h.pair(t, radio)

	pairs := h.bridge.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "ax0", pairs[0].Radio)
	assert.Equal(t, "eoax0", pairs[0].Virtual)
	assert.Equal(t, "ab:bb:cc:dd:ee:ff", pairs[0].VirtualMAC)
	assert.Equal(t, 242, pairs[0].VirtualMTU)
	assert.True(t, pairs[0].VirtualUp)
	assert.Equal(t, 256, pairs[0].RadioMTU)
}

func TestControllerFollowsBus(t *testing.T) {
	bus := local.NewBus()
	t.Cleanup(func() { _ = bus.Close() })

	b := New(Config{Namespace: netdevtest.Namespace})
	f := netdevtest.NewFactory()
	ctrl := NewController(b, ControllerConfig{Factory: f, Bus: bus})

	sub := ctrl.Subscribe(context.Background(), bus)
	defer sub.Unsubscribe()

	var mu sync.Mutex
	var states []events.PairState
	lifecycle := bus.Subscribe(events.TopicPairLifecycle, func(ev events.Event) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, ev.Data.(*events.PairLifecycleEvent).State)
	})
	defer lifecycle.Unsubscribe()

	radio := netdevtest.NewRadio("ax0", 3, radioStation, 256)
	for _, kind := range []netdev.LinkEventKind{netdev.LinkActivated, netdev.LinkDeactivated, netdev.LinkRemoved} {
		bus.Publish(events.TopicLinkState, events.Event{
			Data: &events.LinkStateEvent{Link: linkEvent(kind, radio)},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Sync(ctx))
	// Lifecycle events published by handlers are queued behind the marker.
	require.NoError(t, bus.Sync(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.PairState{events.PairCreated, events.PairStopped, events.PairDestroyed}, states)
	assert.Equal(t, 0, b.Registry().Len())
	assert.Equal(t, 1, radio.Refs())
}

func TestDropSnapshot(t *testing.T) {
	var d DropCounters
	d.add(Inbound, DropNoPair)
	d.add(Outbound, DropNoBuffer)
	d.add(Outbound, DropNoBuffer)

	samples := d.Snapshot()
	require.Len(t, samples, int(numDirections)*int(numDropReasons))

	got := map[string]uint64{}
	for _, s := range samples {
		got[s.Direction+"/"+s.Reason] = s.Count
	}
	assert.Equal(t, uint64(1), got["inbound/no-pair"])
	assert.Equal(t, uint64(2), got["outbound/no-buffer"])
	assert.Equal(t, uint64(0), got["inbound/runt"])
}
