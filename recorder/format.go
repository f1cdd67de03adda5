package recorder

import (
	"time"

	"github.com/arloliu/go-tdc/buffered"
)

const (
	// FormatName identifies the container format in the header.
	FormatName = "go-tdc/events"
	// FormatVersion is the container format version written by this package.
	FormatVersion = 1
)

const (
	frameHeader  = "header"
	frameChunk   = "chunk"
	frameTrailer = "trailer"
)

// Step is the scan step a container was recorded at.
type Step struct {
	Index int `msgpack:"index"`
	Delay int `msgpack:"delay"`
}

// Header is the first frame of a container.
type Header struct {
	Format     string            `msgpack:"format"`
	Version    int               `msgpack:"version"`
	ID         string            `msgpack:"id"`
	Comment    string            `msgpack:"comment"`
	Fields     []string          `msgpack:"fields"`
	Attributes map[string]string `msgpack:"attributes,omitempty"`
	Step       *Step             `msgpack:"step,omitempty"`
	Created    time.Time         `msgpack:"created"`
}

// Chunk is a frame of consecutive events. Arrays of unselected fields are absent.
type Chunk struct {
	Seq        uint64 `msgpack:"seq"`
	Count      int    `msgpack:"count"`
	EventIndex uint64 `msgpack:"event_index"`

	Subdevice          []uint32 `msgpack:"subdevice,omitempty"`
	Channel            []uint32 `msgpack:"channel,omitempty"`
	StartCounter       []uint64 `msgpack:"start_counter,omitempty"`
	TimeTag            []uint64 `msgpack:"time_tag,omitempty"`
	Dif1               []uint16 `msgpack:"dif1,omitempty"`
	Dif2               []uint16 `msgpack:"dif2,omitempty"`
	Time               []uint64 `msgpack:"time,omitempty"`
	MasterResetCounter []uint32 `msgpack:"master_rst_counter,omitempty"`
	ADC                []uint16 `msgpack:"adc,omitempty"`
	Signal1Bit         []uint16 `msgpack:"signal1bit,omitempty"`

	// SOM holds the offsets within the chunk at which a measurement started.
	SOM []uint64 `msgpack:"som,omitempty"`
}

// Trailer is the last frame of a properly closed container.
type Trailer struct {
	Events uint64 `msgpack:"events"`
	Chunks uint64 `msgpack:"chunks"`
	IsLast bool   `msgpack:"is_last"`
}

type frame struct {
	Kind    string   `msgpack:"kind"`
	Header  *Header  `msgpack:"header,omitempty"`
	Chunk   *Chunk   `msgpack:"chunk,omitempty"`
	Trailer *Trailer `msgpack:"trailer,omitempty"`
}

// chunkOf copies the columns of a batch into a chunk.
func chunkOf(b *buffered.Batch) *Chunk {
	c := b.Clone()

	return &Chunk{
		Count:              c.DataLen,
		EventIndex:         c.EventIndex,
		Subdevice:          c.Subdevice.Values,
		Channel:            c.Channel.Values,
		StartCounter:       c.StartCounter.Values,
		TimeTag:            c.TimeTag.Values,
		Dif1:               c.Dif1.Values,
		Dif2:               c.Dif2.Values,
		Time:               c.Time.Values,
		MasterResetCounter: c.MasterResetCounter.Values,
		ADC:                c.ADC.Values,
		Signal1Bit:         c.Signal1Bit.Values,
		SOM:                c.SOMIndices,
	}
}
