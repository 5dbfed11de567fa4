// Package metrics exposes Prometheus instruments for pairing, screen sessions
// and playback.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PairingRequestsTotal counts pairing requests issued to devices.
	PairingRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_pairing_requests_total",
			Help: "Total number of pairing requests created",
		},
	)

	// PairingValidationsTotal counts validation attempts by outcome code.
	PairingValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_pairing_validations_total",
			Help: "Total number of pairing validations by outcome",
		},
		[]string{"outcome"},
	)

	TokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_token_validations_total",
			Help: "Total number of session token validations by result",
		},
		[]string{"result"},
	)

	UnpairsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_unpairs_total",
			Help: "Total number of screens unpaired by their owner",
		},
	)

	// ActivePlayers is the number of running per-screen player loops.
	ActivePlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "screen_active_players",
			Help: "Number of running screen players",
		},
	)

	PlayerReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_player_reloads_total",
			Help: "Total number of player sequence rebuilds by trigger",
		},
		[]string{"trigger"},
	)

	ItemsDisplayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_items_displayed_total",
			Help: "Total number of display intervals started by item kind",
		},
		[]string{"kind"},
	)

	StaleTimerDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_stale_timer_drops_total",
			Help: "Timer callbacks discarded because the player moved on",
		},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "screen_catalog_version",
			Help: "Version of the published catalog snapshot",
		},
	)

	CatalogRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screen_catalog_refresh_duration_seconds",
			Help:    "Duration of catalog reloads",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CleanupRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screen_cleanup_removed_total",
			Help: "Records removed by the cleanup job",
		},
		[]string{"kind"},
	)

	// HTTPRequestDuration is labelled by chi route pattern, not raw path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screen_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func RecordPairingValidation(outcome string) {
	PairingValidationsTotal.WithLabelValues(outcome).Inc()
}

func RecordTokenValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	TokenValidationsTotal.WithLabelValues(result).Inc()
}

func RecordCatalogRefresh(version uint64, d time.Duration) {
	CatalogVersion.Set(float64(version))
	CatalogRefreshDuration.Observe(d.Seconds())
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
