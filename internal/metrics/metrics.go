package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checkins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thienan", Name: "checkins_total", Help: "Recorded attendance check-ins",
	}, []string{"kind"})
	rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thienan", Name: "checkin_rejections_total", Help: "Check-ins rejected by reconciliation rules",
	}, []string{"reason"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thienan", Name: "handler_errors_total", Help: "HTTP handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "thienan", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(checkins, rejections, HandlerErrors, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

// CheckinRecorded counts a successful mark; kind is regular|compensatory.
func CheckinRecorded(kind string) { checkins.WithLabelValues(kind).Inc() }

// CheckinRejected counts a validation rejection by reason.
func CheckinRejected(reason string) { rejections.WithLabelValues(reason).Inc() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
