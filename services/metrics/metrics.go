package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appel"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "code"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	AttendanceMarks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "attendance_marks_total", Help: "Attendance marks by status and outcome",
	}, []string{"status", "op"})
	AttendanceJustifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "attendance_justifications_total", Help: "Justified absences",
	})
	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "notifications_created_total", Help: "Notifications sent to parents",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, AttendanceMarks, AttendanceJustifications, NotificationsCreated, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(method, route string, code int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveMark counts an attendance mark; created tells an insert from an update.
func ObserveMark(status string, created bool) {
	op := "update"
	if created {
		op = "insert"
	}
	AttendanceMarks.WithLabelValues(status, op).Inc()
}

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
