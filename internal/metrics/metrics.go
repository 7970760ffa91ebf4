// Package metrics holds the Prometheus collectors of the API client and the
// check-in station.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan outcomes recorded by the station.
const (
	OutcomeFresh   = "fresh"
	OutcomeAlready = "already"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics is a set of registered collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
	Scans    *prometheus.CounterVec
	Queued   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_api_requests_total",
			Help: "Requests sent to the booking API.",
		}, []string{"code", "method"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_api_request_duration_seconds",
			Help:    "Latency of booking API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_api_in_flight_requests",
			Help: "Booking API requests currently waiting for a response.",
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_station_scans_total",
			Help: "QR scans processed by the station, by outcome.",
		}, []string{"outcome"}),
		Queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_station_scans_queued_total",
			Help: "QR scans accepted by the station intake.",
		}),
	}
	reg.MustRegister(m.Requests, m.Duration, m.InFlight, m.Scans, m.Queued)
	return m
}

// InstrumentTransport wraps rt so every API request is counted and timed.
func (m *Metrics) InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.InFlight,
		promhttp.InstrumentRoundTripperCounter(m.Requests,
			promhttp.InstrumentRoundTripperDuration(m.Duration, rt),
		),
	)
}

// ObserveScan counts one processed scan.
func (m *Metrics) ObserveScan(outcome string) {
	m.Scans.WithLabelValues(outcome).Inc()
}
