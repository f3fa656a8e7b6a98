// Package metrics exposes application metrics collectors.
package metrics

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/goodnatureofminers/stealthwatch-backend/internal/stealth/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scannerScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "scan_total",
		Help:      "Count of completed scan attempts.",
	}, []string{"network", "owner", "status"})

	scannerScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full scan over a block range.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"network", "owner", "status"})

	scannerScanBlocks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "scan_blocks",
		Help:      "Number of blocks covered by a scan.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1..262144
	}, []string{"network", "owner"})

	scannerFetchWindowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "fetch_window_total",
		Help:      "Count of announcement log window fetches.",
	}, []string{"network", "owner", "status"})

	scannerFetchWindowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "fetch_window_duration_seconds",
		Help:      "Duration of a single announcement log window fetch.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "owner", "status"})

	scannerFetchWindowLogs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "fetch_window_logs",
		Help:      "Number of raw logs returned per window.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"network", "owner"})

	scannerAnnouncementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "announcements_total",
		Help:      "Count of announcements by classification outcome.",
	}, []string{"network", "owner", "outcome"})

	scannerDonationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "donations_total",
		Help:      "Count of new donation records.",
	}, []string{"network", "owner"})

	scannerDonationsEther = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stealthwatch",
		Subsystem: "scanner",
		Name:      "donations_ether_total",
		Help:      "Sum of new donation balances in ether.",
	}, []string{"network", "owner"})
)

// Scanner tracks metrics for a single scan engine.
type Scanner struct {
	network model.Network
	owner   string
}

// NewScanner constructs a Scanner with sane defaults.
func NewScanner(network model.Network, owner string) *Scanner {
	if network == "" {
		network = "unknown"
	}
	if owner == "" {
		owner = "unknown"
	}
	return &Scanner{network: network, owner: owner}
}

// ObserveScan records a scan attempt outcome, its duration and block span.
func (m Scanner) ObserveScan(err error, blocks uint64, started time.Time) {
	status := statusOf(err)
	scannerScanTotal.WithLabelValues(string(m.network), m.owner, status).Inc()
	scannerScanDuration.WithLabelValues(string(m.network), m.owner, status).
		Observe(time.Since(started).Seconds())
	if err == nil {
		scannerScanBlocks.WithLabelValues(string(m.network), m.owner).Observe(float64(blocks))
	}
}

// ObserveFetchWindow records a window fetch.
func (m Scanner) ObserveFetchWindow(err error, logs int, started time.Time) {
	status := statusOf(err)
	scannerFetchWindowTotal.WithLabelValues(string(m.network), m.owner, status).Inc()
	scannerFetchWindowDuration.WithLabelValues(string(m.network), m.owner, status).
		Observe(time.Since(started).Seconds())
	if err == nil {
		scannerFetchWindowLogs.WithLabelValues(string(m.network), m.owner).Observe(float64(logs))
	}
}

// ObserveAnnouncement counts one announcement by outcome.
func (m Scanner) ObserveAnnouncement(outcome string) {
	scannerAnnouncementsTotal.WithLabelValues(string(m.network), m.owner, outcome).Inc()
}

// ObserveDonations records newly persisted donations.
func (m Scanner) ObserveDonations(count int, totalWei *big.Int) {
	if count <= 0 {
		return
	}
	scannerDonationsTotal.WithLabelValues(string(m.network), m.owner).Add(float64(count))
	if totalWei != nil && totalWei.Sign() > 0 {
		scannerDonationsEther.WithLabelValues(string(m.network), m.owner).Add(weiToEther(totalWei))
	}
}

func weiToEther(wei *big.Int) float64 {
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return ether
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
