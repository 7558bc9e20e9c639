package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cvat_tasks",
		Name:      "rows_loaded_total",
		Help:      "Total source records loaded from the input sheet.",
	})
	TasksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cvat_tasks",
		Name:      "tasks_created_total",
		Help:      "Total annotation tasks created on the remote service.",
	})
	TasksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cvat_tasks",
		Name:      "tasks_failed_total",
		Help:      "Total records whose task creation failed.",
	})
	SubmissionsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cvat_tasks",
		Name:      "submissions_in_flight",
		Help:      "Submissions currently being sent to the remote service.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(RowsLoaded, TasksCreated, TasksFailed, SubmissionsInFlight)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Non-blocking when run in goroutine.
func Serve(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}

// AddrFromEnv returns listen address from METRICS_ADDR or default ":9090".
func AddrFromEnv() string {
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		return v
	}
	return ":9090"
}
