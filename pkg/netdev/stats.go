package netdev

import "sync/atomic"

type Stats struct {
	RxPackets atomic.Uint64
	RxBytes   atomic.Uint64
	RxDropped atomic.Uint64
	RxErrors  atomic.Uint64
	TxPackets atomic.Uint64
	TxBytes   atomic.Uint64
	TxDropped atomic.Uint64
	TxErrors  atomic.Uint64
}

type StatsSnapshot struct {
	RxPackets uint64 `json:"rx-packets" yaml:"rx-packets"`
	RxBytes   uint64 `json:"rx-bytes" yaml:"rx-bytes"`
	RxDropped uint64 `json:"rx-dropped" yaml:"rx-dropped"`
	RxErrors  uint64 `json:"rx-errors" yaml:"rx-errors"`
	TxPackets uint64 `json:"tx-packets" yaml:"tx-packets"`
	TxBytes   uint64 `json:"tx-bytes" yaml:"tx-bytes"`
	TxDropped uint64 `json:"tx-dropped" yaml:"tx-dropped"`
	TxErrors  uint64 `json:"tx-errors" yaml:"tx-errors"`
}

func (s *Stats) CountRx(n int) {
	s.RxPackets.Add(1)
	s.RxBytes.Add(uint64(n))
}

func (s *Stats) CountTx(n int) {
	s.TxPackets.Add(1)
	s.TxBytes.Add(uint64(n))
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RxPackets: s.RxPackets.Load(),
		RxBytes:   s.RxBytes.Load(),
		RxDropped: s.RxDropped.Load(),
		RxErrors:  s.RxErrors.Load(),
		TxPackets: s.TxPackets.Load(),
		TxBytes:   s.TxBytes.Load(),
		TxDropped: s.TxDropped.Load(),
		TxErrors:  s.TxErrors.Load(),
	}
}
