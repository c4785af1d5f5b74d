package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PebbleCollector exposes the shelf's storage engine health next to
// the contract operation counters.
type PebbleCollector struct {
	p *Pebble

	// Prometheus descriptors for compaction metrics
	compactions    *prometheus.Desc
	compactionDebt *prometheus.Desc

	// Prometheus descriptors for memtable metrics
	memtableSize  *prometheus.Desc
	memtableCount *prometheus.Desc

	// Prometheus descriptors for WAL and disk metrics
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
	diskUsage       *prometheus.Desc
}

func NewPebbleCollector(p *Pebble) *PebbleCollector {
	return &PebbleCollector{
		p: p,

		// Compaction metrics
		compactions: prometheus.NewDesc(
			"scaffold_store_compactions_total",
			"Total number of compactions performed by the shelf",
			nil, nil,
		),
		compactionDebt: prometheus.NewDesc(
			"scaffold_store_compaction_debt_bytes",
			"Estimated number of bytes that need compacting to reach a stable state",
			nil, nil,
		),

		// Memtable metrics
		memtableSize: prometheus.NewDesc(
			"scaffold_store_memtable_size_bytes",
			"Current size of the memtable in bytes",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"scaffold_store_memtable_count",
			"Current count of memtables",
			nil, nil,
		),

		// WAL and disk metrics
		walSize: prometheus.NewDesc(
			"scaffold_store_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"scaffold_store_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, nil,
		),
		diskUsage: prometheus.NewDesc(
			"scaffold_store_disk_usage_bytes",
			"Total disk space used by the shelf",
			nil, nil,
		),
	}
}

func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.compactions
	ch <- pc.compactionDebt
	ch <- pc.memtableSize
	ch <- pc.memtableCount
	ch <- pc.walSize
	ch <- pc.walBytesWritten
	ch <- pc.diskUsage
}

func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	metrics := pc.p.db.Metrics()

	ch <- prometheus.MustNewConstMetric(
		pc.compactions,
		prometheus.CounterValue,
		float64(metrics.Compact.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.compactionDebt,
		prometheus.GaugeValue,
		float64(metrics.Compact.EstimatedDebt),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.memtableSize,
		prometheus.GaugeValue,
		float64(metrics.MemTable.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.memtableCount,
		prometheus.GaugeValue,
		float64(metrics.MemTable.Count),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.walSize,
		prometheus.GaugeValue,
		float64(metrics.WAL.Size),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.walBytesWritten,
		prometheus.CounterValue,
		float64(metrics.WAL.BytesWritten),
	)
	ch <- prometheus.MustNewConstMetric(
		pc.diskUsage,
		prometheus.GaugeValue,
		float64(metrics.DiskSpaceUsage()),
	)
}
