package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbook",
			Name:      "bookings_total",
			Help:      "Successful slot bookings.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbook",
			Name:      "booking_conflicts_total",
			Help:      "Bookings rejected because the slot was full.",
		},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbook",
			Name:      "availability_cache_hits_total",
			Help:      "Availability reads served from cache.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hubbook",
			Name:      "availability_cache_misses_total",
			Help:      "Availability reads recomputed from the durable stores.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookings, bookingConflicts, cacheHits, cacheMisses)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBooking()         { bookings.Inc() }
func IncBookingConflict() { bookingConflicts.Inc() }
func IncCacheHit()        { cacheHits.Inc() }
func IncCacheMiss()       { cacheMisses.Inc() }
