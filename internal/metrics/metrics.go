// Package metrics exports status reports in the Prometheus text format for
// node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/axondata/go-servicer"
)

const namespace = "servicer"

// Exporter holds the gauges for one status report
type Exporter struct {
	registry *prometheus.Registry

	Up      *prometheus.GaugeVec
	Enabled *prometheus.GaugeVec
	CPU     *prometheus.GaugeVec
	Memory  *prometheus.GaugeVec
	PID     *prometheus.GaugeVec
	Errors  *prometheus.GaugeVec
	Managed prometheus.Gauge
}

// NewExporter registers the servicer gauges on a private registry
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := []string{"service"}

	return &Exporter{
		registry: reg,
		Up: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_active",
			Help:      "1 when the service's ActiveState is active",
		}, labels),
		Enabled: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_enabled_on_boot",
			Help:      "1 when the service starts on boot",
		}, labels),
		CPU: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_cpu_percent",
			Help:      "CPU usage over the sampling window, percent of one CPU",
		}, labels),
		Memory: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_memory_bytes",
			Help:      "Private resident memory (resident minus shared)",
		}, labels),
		PID: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_main_pid",
			Help:      "Main process ID, 0 when inactive",
		}, labels),
		Errors: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_sample_error",
			Help:      "1 when part of the service's row could not be read",
		}, labels),
		Managed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "services",
			Help:      "Number of managed services",
		}),
	}
}

// Registry returns the registry the gauges live on
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe replaces every gauge with the values of rows
func (e *Exporter) Observe(rows []servicer.ServiceStatus) {
	for _, v := range []*prometheus.GaugeVec{e.Up, e.Enabled, e.CPU, e.Memory, e.PID, e.Errors} {
		v.Reset()
	}
	e.Managed.Set(float64(len(rows)))

	for _, r := range rows {
		e.Up.WithLabelValues(r.Name).Set(boolValue(r.Active))
		e.Enabled.WithLabelValues(r.Name).Set(boolValue(r.EnabledOnBoot))
		e.CPU.WithLabelValues(r.Name).Set(r.CPUPercent)
		e.Memory.WithLabelValues(r.Name).Set(float64(r.MemoryBytes))
		e.PID.WithLabelValues(r.Name).Set(float64(r.PID))
		e.Errors.WithLabelValues(r.Name).Set(boolValue(r.Err != nil))
	}
}

// WriteTextfile atomically writes the current gauges to path
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
