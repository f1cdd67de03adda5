package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports the latest snapshot of a Collector.
type PrometheusCollector struct {
	c *Collector

	measurements   *prometheus.Desc
	events         *prometheus.Desc
	eventsFound    *prometheus.Desc
	eventsInROI    *prometheus.Desc
	eventsReceived *prometheus.Desc
	channelEvents  *prometheus.Desc
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates a prometheus.Collector for c. Metric names are prefixed
// with namespace.
func NewPrometheusCollector(c *Collector, namespace string) *PrometheusCollector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(namespace, "stats", name)
	}

	return &PrometheusCollector{
		c: c,
		measurements: prometheus.NewDesc(fqName("measurements_total"),
			"Number of measurements published by the statistics pipe.", nil, nil),
		events: prometheus.NewDesc(fqName("events_total"),
			"Number of events delivered to the statistics pipe.", []string{"type"}, nil),
		eventsFound: prometheus.NewDesc(fqName("events_found_total"),
			"Events found by the device per subdevice.", []string{"subdevice"}, nil),
		eventsInROI: prometheus.NewDesc(fqName("events_in_roi_total"),
			"Events inside the device region of interest per subdevice.", []string{"subdevice"}, nil),
		eventsReceived: prometheus.NewDesc(fqName("events_received_total"),
			"Events received from the device per subdevice.", []string{"subdevice"}, nil),
		channelEvents: prometheus.NewDesc(fqName("channel_events_total"),
			"Events delivered per channel.", []string{"channel"}, nil),
	}
}

func (pc *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.measurements
	ch <- pc.events
	ch <- pc.eventsFound
	ch <- pc.eventsInROI
	ch <- pc.eventsReceived
	ch <- pc.channelEvents
}

func (pc *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := pc.c.Read()

	ch <- prometheus.MustNewConstMetric(pc.measurements, prometheus.CounterValue, float64(s.Measurements))
	ch <- prometheus.MustNewConstMetric(pc.events, prometheus.CounterValue, float64(s.DLDEvents), "dld")
	ch <- prometheus.MustNewConstMetric(pc.events, prometheus.CounterValue, float64(s.TDCEvents), "tdc")

	for i := range NumSubdevices {
		sub := strconv.Itoa(i)
		ch <- prometheus.MustNewConstMetric(pc.eventsFound, prometheus.CounterValue, float64(s.EventsFound[i]), sub)
		ch <- prometheus.MustNewConstMetric(pc.eventsInROI, prometheus.CounterValue, float64(s.EventsInROI[i]), sub)
		ch <- prometheus.MustNewConstMetric(pc.eventsReceived, prometheus.CounterValue, float64(s.EventsReceived[i]), sub)
	}

	// channels without events are skipped to keep the series count small
	for i, v := range s.ChannelCounts {
		if v == 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(pc.channelEvents, prometheus.CounterValue, float64(v), strconv.Itoa(i))
	}
}
