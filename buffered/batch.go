package buffered

import (
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/util"
)

// Column is one field array of a batch. Values is nil when Valid is false.
type Column[T any] struct {
	Valid  bool
	Values []T
}

func newColumn[T any](valid bool, capacity int) Column[T] {
	if !valid {
		return Column[T]{}
	}

	return Column[T]{Valid: true, Values: make([]T, 0, capacity)}
}

func (c *Column[T]) add(v T) {
	if c.Valid {
		c.Values = append(c.Values, v)
	}
}

func (c *Column[T]) reset() {
	if c.Valid {
		c.Values = c.Values[:0]
	}
}

func (c Column[T]) clone() Column[T] {
	return Column[T]{Valid: c.Valid, Values: util.CloneOrNil(c.Values)}
}

// Batch is one flush of buffered events. Every valid column holds DataLen values, and the
// N-th value of every column belongs to the same event.
type Batch struct {
	// EventIndex is the running event count of the channel at the first event of the batch.
	EventIndex uint64
	// DataLen is the number of events in the batch.
	DataLen int

	Subdevice          Column[uint32]
	Channel            Column[uint32]
	StartCounter       Column[uint64]
	TimeTag            Column[uint64]
	Dif1               Column[uint16]
	Dif2               Column[uint16]
	Time               Column[uint64]
	MasterResetCounter Column[uint32]
	ADC                Column[uint16]
	Signal1Bit         Column[uint16]

	// SOMIndices are the offsets at which a measurement started.
	SOMIndices []uint64
	// MSIndices are the offsets at which a millisecond tick occurred.
	MSIndices []uint64
}

func newBatch(fields event.Field, capacity int) *Batch {
	return &Batch{
		Subdevice:          newColumn[uint32](fields.Has(event.FieldSubdevice), capacity),
		Channel:            newColumn[uint32](fields.Has(event.FieldChannel), capacity),
		StartCounter:       newColumn[uint64](fields.Has(event.FieldStartCounter), capacity),
		TimeTag:            newColumn[uint64](fields.Has(event.FieldTimeTag), capacity),
		Dif1:               newColumn[uint16](fields.Has(event.FieldDif1), capacity),
		Dif2:               newColumn[uint16](fields.Has(event.FieldDif2), capacity),
		Time:               newColumn[uint64](fields.Has(event.FieldTime), capacity),
		MasterResetCounter: newColumn[uint32](fields.Has(event.FieldMasterResetCounter), capacity),
		ADC:                newColumn[uint16](fields.Has(event.FieldADC), capacity),
		Signal1Bit:         newColumn[uint16](fields.Has(event.FieldSignal1Bit), capacity),
		SOMIndices:         make([]uint64, 0, 4),
		MSIndices:          make([]uint64, 0, 1024),
	}
}

// Fields returns the fields of the valid columns.
func (b *Batch) Fields() event.Field {
	var f event.Field
	for _, c := range []struct {
		valid bool
		field event.Field
	}{
		{b.Subdevice.Valid, event.FieldSubdevice},
		{b.Channel.Valid, event.FieldChannel},
		{b.StartCounter.Valid, event.FieldStartCounter},
		{b.TimeTag.Valid, event.FieldTimeTag},
		{b.Dif1.Valid, event.FieldDif1},
		{b.Dif2.Valid, event.FieldDif2},
		{b.Time.Valid, event.FieldTime},
		{b.MasterResetCounter.Valid, event.FieldMasterResetCounter},
		{b.ADC.Valid, event.FieldADC},
		{b.Signal1Bit.Valid, event.FieldSignal1Bit},
	} {
		if c.valid {
			f |= c.field
		}
	}

	return f
}

// Clone returns a deep copy of b that stays valid after the OnData call.
func (b *Batch) Clone() *Batch {
	return &Batch{
		EventIndex:         b.EventIndex,
		DataLen:            b.DataLen,
		Subdevice:          b.Subdevice.clone(),
		Channel:            b.Channel.clone(),
		StartCounter:       b.StartCounter.clone(),
		TimeTag:            b.TimeTag.clone(),
		Dif1:               b.Dif1.clone(),
		Dif2:               b.Dif2.clone(),
		Time:               b.Time.clone(),
		MasterResetCounter: b.MasterResetCounter.clone(),
		ADC:                b.ADC.clone(),
		Signal1Bit:         b.Signal1Bit.clone(),
		SOMIndices:         util.CloneSlice(b.SOMIndices, 0),
		MSIndices:          util.CloneSlice(b.MSIndices, 0),
	}
}

func (b *Batch) addDLD(ev *event.DLD) {
	b.Subdevice.add(ev.Subdevice)
	b.Channel.add(ev.Channel)
	b.StartCounter.add(ev.StartCounter)
	b.TimeTag.add(ev.TimeTag)
	b.Dif1.add(ev.Dif1)
	b.Dif2.add(ev.Dif2)
	b.Time.add(ev.Sum)
	b.MasterResetCounter.add(ev.MasterResetCounter)
	b.ADC.add(ev.ADC)
	b.Signal1Bit.add(ev.Signal1Bit)
	b.DataLen++
}

func (b *Batch) addTDC(ev *event.TDC) {
	b.Subdevice.add(ev.Subdevice)
	b.Channel.add(ev.Channel)
	b.StartCounter.add(ev.StartCounter)
	b.TimeTag.add(ev.TimeTag)
	b.Time.add(ev.TimeData)
	b.DataLen++
}

func (b *Batch) reset(eventIndex uint64) {
	b.EventIndex = eventIndex
	b.DataLen = 0
	b.Subdevice.reset()
	b.Channel.reset()
	b.StartCounter.reset()
	b.TimeTag.reset()
	b.Dif1.reset()
	b.Dif2.reset()
	b.Time.reset()
	b.MasterResetCounter.reset()
	b.ADC.reset()
	b.Signal1Bit.reset()
	b.SOMIndices = b.SOMIndices[:0]
	b.MSIndices = b.MSIndices[:0]
}
