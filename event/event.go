package event

// TDC is an event of a stand-alone time-to-digital converter.
type TDC struct {
	Subdevice    uint32
	Channel      uint32
	StartCounter uint64
	TimeTag      uint64
	TimeData     uint64
	SignCounter  uint64
}

// DLD is a position-resolved event of a delay-line detector.
type DLD struct {
	StartCounter uint64
	TimeTag      uint64
	Subdevice    uint32
	Channel      uint32
	// Sum is the arrival time relative to the start pulse.
	Sum uint64
	// Dif1 is the x detector coordinate.
	Dif1 uint16
	// Dif2 is the y detector coordinate.
	Dif2               uint16
	MasterResetCounter uint32
	ADC                uint16
	Signal1Bit         uint16
}

// Handler receives the event stream of a measurement.
//
// All methods are invoked from the device driver goroutine, never concurrently with each
// other, and never on the goroutine that controls the session. Implementations must not
// block for long and must not start a new measurement.
type Handler interface {
	// StartOfMeasurement is called once when the device starts acquiring.
	StartOfMeasurement()
	// Millisecond is called on every millisecond tick of the measurement clock.
	Millisecond()
	// TDCEvents delivers a slice of TDC events. The slice is only valid during the call.
	TDCEvents(events []TDC)
	// DLDEvents delivers a slice of DLD events. The slice is only valid during the call.
	DLDEvents(events []DLD)
	// EndOfMeasurement is called once after the last event of a measurement.
	EndOfMeasurement()
}

// StatisticsHandler is implemented by handlers that want the statistics frame the device
// reports at the end of each measurement.
type StatisticsHandler interface {
	Statistics(stats *Statistics)
}

// NopHandler implements Handler with no-op methods. Embed it to implement only the
// callbacks of interest.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) StartOfMeasurement() {}
func (NopHandler) Millisecond()        {}
func (NopHandler) TDCEvents([]TDC)     {}
func (NopHandler) DLDEvents([]DLD)     {}
func (NopHandler) EndOfMeasurement()   {}

// Statistics is the rate-meter frame a device reports at the end of a measurement.
type Statistics struct {
	CountsRead     [64]uint32
	CountsReceived [64]uint32
	EventsFound    [4]uint32
	EventsInROI    [4]uint32
	EventsReceived [4]uint32
	Counters       [64]uint32
}
