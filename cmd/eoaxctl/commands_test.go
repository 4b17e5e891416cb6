package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/eoax/internal/monitor"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

type fakeServer struct {
	*httptest.Server
	lastQuery string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}

	respond := func(data any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fs.lastQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(monitor.ShowResponse{Path: r.URL.Path, Data: data})
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/show/pairs", respond(monitor.PairsResponse{
		Namespace: "1234",
		Pairs: []bridge.PairInfo{{
			Radio:        "ax0",
			RadioIndex:   3,
			RadioAddress: "N0CALL-1",
			RadioUp:      true,
			RadioStats:   netdev.StatsSnapshot{TxPackets: 4, TxBytes: 2048},
			Virtual:      "eoax0",
			VirtualIndex: 7,
			VirtualMAC:   "9d:60:86:82:98:98",
			VirtualMTU:   242,
		}},
	}))
	mux.Handle("GET /api/show/drops", respond(monitor.DropsResponse{
		Drops: []bridge.DropSample{
			{Direction: "inbound", Reason: "runt", Count: 2},
			{Direction: "outbound", Reason: "no-pair", Count: 0},
		},
	}))
	mux.Handle("GET /api/show/events", respond(monitor.EventsResponse{
		Bus: events.Stats{Published: 5},
		Events: []events.Event{
			{Type: events.TopicLinkState, Timestamp: time.Unix(0, 0), Source: "linkwatch", Data: events.LinkStateEvent{
				Link: netdev.LinkEvent{Kind: netdev.LinkActivated, Index: 3, Name: "ax0", Type: netdev.LinkTypeAX25},
			}},
			{Type: events.TopicPairLifecycle, Timestamp: time.Unix(0, 0), Source: "bridge", Data: events.PairLifecycleEvent{
				State: events.PairCreated, Radio: "ax0", Virtual: "eoax0",
			}},
		},
	}))
	mux.HandleFunc("GET /api/show/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(monitor.ErrorResponse{Error: "monitor stopped"})
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestCLI(t *testing.T, format OutputFormat) (*CLI, *bytes.Buffer, *fakeServer) {
	t.Helper()
	srv := newFakeServer(t)
	var out bytes.Buffer
	return NewCLI(NewClient(srv.URL), &out, format), &out, srv
}

func TestShowPairsTable(t *testing.T) {
	cli, out, _ := newTestCLI(t, FormatCLI)

	require.NoError(t, cli.processCommand("show pairs"))
	assert.Contains(t, out.String(), "RADIO")
	assert.Contains(t, out.String(), "N0CALL-1")
	assert.Contains(t, out.String(), "eoax0")
	assert.NotContains(t, out.String(), "RX-PACKETS")

	out.Reset()
	require.NoError(t, cli.processCommand("show pairs detail"))
	assert.Contains(t, out.String(), "RX-PACKETS")
	assert.Contains(t, out.String(), "2.0 KiB")
}

func TestShowPairsPipeFormat(t *testing.T) {
	cli, out, _ := newTestCLI(t, FormatCLI)

	require.NoError(t, cli.processCommand("show pairs | json"))
	var resp monitor.PairsResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Pairs, 1)
	assert.Equal(t, 242, resp.Pairs[0].VirtualMTU)
	assert.Equal(t, FormatCLI, cli.format)

	out.Reset()
	require.NoError(t, cli.processCommand("show pairs | yaml"))
	assert.Contains(t, out.String(), "virtual: eoax0")

	assert.EqualError(t, cli.processCommand("show pairs | xml"), "unsupported format: xml")
}

func TestShowDrops(t *testing.T) {
	cli, out, _ := newTestCLI(t, FormatCLI)

	require.NoError(t, cli.processCommand("show drops"))
	assert.Contains(t, out.String(), "runt")
	assert.NotContains(t, out.String(), "no-pair")
	assert.Contains(t, out.String(), "unknown-pid")

	out.Reset()
	require.NoError(t, cli.processCommand("show drops all"))
	assert.Contains(t, out.String(), "no-pair")
}

func TestShowEvents(t *testing.T) {
	cli, out, srv := newTestCLI(t, FormatCLI)

	require.NoError(t, cli.processCommand("show events topic "+events.TopicPairLifecycle+" limit 5"))
	assert.Contains(t, srv.lastQuery, "limit=5")
	assert.Contains(t, srv.lastQuery, "topic=")
	assert.Contains(t, out.String(), "ax0 activated (ax25, index 3)")
	assert.Contains(t, out.String(), "ax0 created -> eoax0")
	assert.Contains(t, out.String(), "Published: 5")

	assert.EqualError(t, cli.processCommand("show events limit -1"), "limit must be a positive integer")
}

func TestServerError(t *testing.T) {
	cli, _, _ := newTestCLI(t, FormatCLI)

	err := cli.processCommand("show status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor stopped")
}

func TestExitStopsLoop(t *testing.T) {
	cli, _, _ := newTestCLI(t, FormatJSON)
	require.NoError(t, cli.processCommand("exit"))
	assert.False(t, cli.running)
}
