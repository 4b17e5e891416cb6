package monitor

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

const (
	CollectorPairs  = "pairs"
	CollectorDrops  = "drops"
	CollectorMux    = "mux"
	CollectorEvents = "events"
)

var collectorNames = []string{CollectorPairs, CollectorDrops, CollectorMux, CollectorEvents}

// MetricHandler exports one group of metrics. Collect reads live counters;
// nothing is cached between scrapes.
type MetricHandler interface {
	Name() string
	Describe(ch chan<- *prometheus.Desc)
	Collect(ch chan<- prometheus.Metric)
}

type pairsMetricHandler struct {
	bridge *bridge.Bridge
	pairs  *prometheus.Desc
	up     *prometheus.Desc
	mtu    *prometheus.Desc
	stats  map[string]*prometheus.Desc
}

func newPairsMetricHandler(b *bridge.Bridge) *pairsMetricHandler {
	labels := []string{"interface", "role"}
	counter := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("eoax_interface_"+name+"_total", help, labels, nil)
	}
	return &pairsMetricHandler{
		bridge: b,
		pairs:  prometheus.NewDesc("eoax_pairs", "Number of radio interfaces paired with a virtual interface", nil, nil),
		up:     prometheus.NewDesc("eoax_interface_up", "Whether the interface is running (1) or not (0)", labels, nil),
		mtu:    prometheus.NewDesc("eoax_interface_mtu_bytes", "Interface MTU in bytes", labels, nil),
		stats: map[string]*prometheus.Desc{
			"rx-packets": counter("rx_packets", "Frames received on the interface"),
			"rx-bytes":   counter("rx_bytes", "Bytes received on the interface"),
			"rx-dropped": counter("rx_dropped", "Received frames dropped on the interface"),
			"rx-errors":  counter("rx_errors", "Receive errors on the interface"),
			"tx-packets": counter("tx_packets", "Frames transmitted on the interface"),
			"tx-bytes":   counter("tx_bytes", "Bytes transmitted on the interface"),
			"tx-dropped": counter("tx_dropped", "Transmit frames dropped on the interface"),
			"tx-errors":  counter("tx_errors", "Transmit errors on the interface"),
		},
	}
}

func (h *pairsMetricHandler) Name() string { return CollectorPairs }

func (h *pairsMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.pairs
	ch <- h.up
	ch <- h.mtu
	for _, desc := range h.stats {
		ch <- desc
	}
}

func (h *pairsMetricHandler) Collect(ch chan<- prometheus.Metric) {
	pairs := h.bridge.Pairs()
	ch <- prometheus.MustNewConstMetric(h.pairs, prometheus.GaugeValue, float64(len(pairs)))

	for _, p := range pairs {
		h.collectInterface(ch, p.Radio, "radio", p.RadioUp, p.RadioMTU, p.RadioStats)
		h.collectInterface(ch, p.Virtual, "virtual", p.VirtualUp, p.VirtualMTU, p.VirtualStats)
	}
}

func (h *pairsMetricHandler) collectInterface(ch chan<- prometheus.Metric, name, role string, up bool, mtu int, s netdev.StatsSnapshot) {
	var upVal float64
	if up {
		upVal = 1
	}
	ch <- prometheus.MustNewConstMetric(h.up, prometheus.GaugeValue, upVal, name, role)
	ch <- prometheus.MustNewConstMetric(h.mtu, prometheus.GaugeValue, float64(mtu), name, role)

	values := map[string]uint64{
		"rx-packets": s.RxPackets,
		"rx-bytes":   s.RxBytes,
		"rx-dropped": s.RxDropped,
		"rx-errors":  s.RxErrors,
		"tx-packets": s.TxPackets,
		"tx-bytes":   s.TxBytes,
		"tx-dropped": s.TxDropped,
		"tx-errors":  s.TxErrors,
	}
	for key, desc := range h.stats {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(values[key]), name, role)
	}
}

type dropsMetricHandler struct {
	drops *bridge.DropCounters
	desc  *prometheus.Desc
}

func newDropsMetricHandler(b *bridge.Bridge) *dropsMetricHandler {
	return &dropsMetricHandler{
		drops: b.Drops(),
		desc:  prometheus.NewDesc("eoax_drops_total", "Frames dropped by the bridge", []string{"direction", "reason"}, nil),
	}
}

func (h *dropsMetricHandler) Name() string { return CollectorDrops }

func (h *dropsMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.desc
}

func (h *dropsMetricHandler) Collect(ch chan<- prometheus.Metric) {
	for _, s := range h.drops.Snapshot() {
		ch <- prometheus.MustNewConstMetric(h.desc, prometheus.CounterValue, float64(s.Count), s.Direction, s.Reason)
	}
}

type muxMetricHandler struct {
	mux       *ax25.Mux
	unknown   *prometheus.Desc
	malformed *prometheus.Desc
}

func newMuxMetricHandler(m *ax25.Mux) *muxMetricHandler {
	return &muxMetricHandler{
		mux:       m,
		unknown:   prometheus.NewDesc("eoax_ax25_unknown_pid_total", "Received UI frames with no handler for their protocol id", nil, nil),
		malformed: prometheus.NewDesc("eoax_ax25_malformed_total", "Received frames with an unparsable AX.25 header", nil, nil),
	}
}

func (h *muxMetricHandler) Name() string { return CollectorMux }

func (h *muxMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.unknown
	ch <- h.malformed
}

func (h *muxMetricHandler) Collect(ch chan<- prometheus.Metric) {
	s := h.mux.Stats()
	ch <- prometheus.MustNewConstMetric(h.unknown, prometheus.CounterValue, float64(s.UnknownPID))
	ch <- prometheus.MustNewConstMetric(h.malformed, prometheus.CounterValue, float64(s.Malformed))
}

type eventsMetricHandler struct {
	bus       events.Bus
	published *prometheus.Desc
	dropped   *prometheus.Desc
	queued    *prometheus.Desc
}

func newEventsMetricHandler(bus events.Bus) *eventsMetricHandler {
	return &eventsMetricHandler{
		bus:       bus,
		published: prometheus.NewDesc("eoax_events_published_total", "Events accepted by the event bus", nil, nil),
		dropped:   prometheus.NewDesc("eoax_events_dropped_total", "Events dropped by the event bus", nil, nil),
		queued:    prometheus.NewDesc("eoax_events_queued", "Events waiting for delivery", nil, nil),
	}
}

func (h *eventsMetricHandler) Name() string { return CollectorEvents }

func (h *eventsMetricHandler) Describe(ch chan<- *prometheus.Desc) {
	ch <- h.published
	ch <- h.dropped
	ch <- h.queued
}

func (h *eventsMetricHandler) Collect(ch chan<- prometheus.Metric) {
	s := h.bus.Stats()
	ch <- prometheus.MustNewConstMetric(h.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(h.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(h.queued, prometheus.GaugeValue, float64(s.PublishChLen))
}

type prometheusCollector struct {
	logger   *slog.Logger
	handlers []MetricHandler
}

func (pc *prometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, handler := range pc.handlers {
		handler.Describe(ch)
	}
}

func (pc *prometheusCollector) Collect(ch chan<- prometheus.Metric) {
	pc.logger.Debug("Collecting metrics", "handlers", len(pc.handlers))
	for _, handler := range pc.handlers {
		handler.Collect(ch)
	}
}
