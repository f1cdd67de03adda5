package acq

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-tdc/event"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc, see
// RegisterMetrics.
type SessionMetrics struct {
	// MeasurementsStarted indicates the number of measurements started.
	MeasurementsStarted atomic.Uint64
	// MeasurementsCompleted indicates the number of measurements that completed normally.
	MeasurementsCompleted atomic.Uint64
	// MeasurementsAborted indicates the number of measurements interrupted by the user.
	MeasurementsAborted atomic.Uint64
	// MeasurementsBufferFull indicates the number of measurements aborted by full buffers.
	MeasurementsBufferFull atomic.Uint64
	// EarlyNotifications indicates the number of early completion notifications.
	EarlyNotifications atomic.Uint64
	// NotReadyRetries indicates the number of starts retried because the device was not ready.
	NotReadyRetries atomic.Uint64

	// DLDEvents indicates the number of DLD events delivered to the pipes.
	DLDEvents atomic.Uint64
	// TDCEvents indicates the number of TDC events delivered to the pipes.
	TDCEvents atomic.Uint64

	// PipeAttachFailures indicates the number of failed pipe attachments.
	PipeAttachFailures atomic.Uint64
	// PipesOpen indicates the number of attached pipes.
	PipesOpen atomic.Int64
}

func (m *SessionMetrics) incMeasurementsStarted() {
	m.MeasurementsStarted.Add(1)
}

func (m *SessionMetrics) incNotReadyRetries() {
	m.NotReadyRetries.Add(1)
}

func (m *SessionMetrics) incPipeAttachFailures() {
	m.PipeAttachFailures.Add(1)
}

func (m *SessionMetrics) incPipesOpen() {
	m.PipesOpen.Add(1)
}

func (m *SessionMetrics) decPipesOpen() {
	m.PipesOpen.Add(-1)
}

func (m *SessionMetrics) addDLDEvents(n int) {
	m.DLDEvents.Add(uint64(n))
}

func (m *SessionMetrics) addTDCEvents(n int) {
	m.TDCEvents.Add(uint64(n))
}

func (m *SessionMetrics) incCompletion(reason event.Reason) {
	switch reason {
	case event.ReasonCompleted:
		m.MeasurementsCompleted.Add(1)
	case event.ReasonUserAborted:
		m.MeasurementsAborted.Add(1)
	case event.ReasonBufferFull:
		m.MeasurementsBufferFull.Add(1)
	case event.ReasonEarlyNotification:
		m.EarlyNotifications.Add(1)
	}
}

// RegisterMetrics publishes the metrics of sess to reg.
func RegisterMetrics(reg prometheus.Registerer, sess *Session) error {
	m := sess.GetMetrics()

	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "tdc",
			Subsystem: "session",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Load()) })
	}

	collectors := []prometheus.Collector{
		counter("measurements_started_total", "Number of measurements started.", &m.MeasurementsStarted),
		counter("measurements_completed_total", "Number of measurements completed normally.", &m.MeasurementsCompleted),
		counter("measurements_aborted_total", "Number of measurements interrupted by the user.", &m.MeasurementsAborted),
		counter("measurements_buffer_full_total", "Number of measurements aborted because buffers were full.", &m.MeasurementsBufferFull),
		counter("early_notifications_total", "Number of early completion notifications.", &m.EarlyNotifications),
		counter("not_ready_retries_total", "Number of measurement starts retried because the device was not ready.", &m.NotReadyRetries),
		counter("dld_events_total", "Number of DLD events delivered to pipes.", &m.DLDEvents),
		counter("tdc_events_total", "Number of TDC events delivered to pipes.", &m.TDCEvents),
		counter("pipe_attach_failures_total", "Number of failed pipe attachments.", &m.PipeAttachFailures),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tdc",
			Subsystem: "session",
			Name:      "pipes_open",
			Help:      "Number of attached pipes.",
		}, func() float64 { return float64(m.PipesOpen.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tdc",
			Subsystem: "session",
			Name:      "measuring",
			Help:      "1 while a measurement is running.",
		}, func() float64 {
			if sess.State().IsMeasuring() {
				return 1
			}
			return 0
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
