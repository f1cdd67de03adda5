package recorder

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/go-tdc/buffered"
	"github.com/arloliu/go-tdc/event"
)

// Container is the decoded content of a container file.
type Container struct {
	Header  Header
	Fields  event.Field
	Trailer Trailer
	// Data holds one dataset per recorded field. DataLen is the total number of events
	// and SOMIndices are absolute event indices.
	Data *buffered.Batch
}

// ReadContainer decodes the container at path. A container that was not closed properly
// yields ErrTruncated.
func ReadContainer(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open container: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode decodes a container from r.
func Decode(r io.Reader) (*Container, error) {
	tail := &tailReader{r: r}
	xzr, err := xz.NewReader(bufio.NewReader(tail))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	dec := msgpack.NewDecoder(xzr)

	var first frame
	if err := dec.Decode(&first); err != nil {
		return nil, truncated(err)
	}
	if first.Kind != frameHeader || first.Header == nil {
		return nil, fmt.Errorf("%w: first frame is %q", ErrCorrupt, first.Kind)
	}
	if first.Header.Format != FormatName {
		return nil, fmt.Errorf("%w: unknown format %q", ErrCorrupt, first.Header.Format)
	}

	fields, err := event.ParseFields(strings.Join(first.Header.Fields, ","))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	ctr := &Container{
		Header: *first.Header,
		Fields: fields,
		Data:   emptyBatch(fields),
	}

	var chunks uint64
	for {
		var fr frame
		if err := dec.Decode(&fr); err != nil {
			return nil, truncated(err)
		}

		switch fr.Kind {
		case frameChunk:
			if fr.Chunk == nil || fr.Chunk.Seq != chunks {
				return nil, fmt.Errorf("%w: chunk %d out of sequence", ErrCorrupt, chunks)
			}
			if err := appendChunk(ctr.Data, fr.Chunk); err != nil {
				return nil, err
			}
			chunks++
		case frameTrailer:
			if fr.Trailer == nil || !fr.Trailer.IsLast {
				return nil, fmt.Errorf("%w: invalid trailer", ErrCorrupt)
			}
			if fr.Trailer.Chunks != chunks || fr.Trailer.Events != uint64(ctr.Data.DataLen) {
				return nil, fmt.Errorf("%w: trailer reports %d events in %d chunks, read %d in %d",
					ErrCorrupt, fr.Trailer.Events, fr.Trailer.Chunks, ctr.Data.DataLen, chunks)
			}
			ctr.Trailer = *fr.Trailer

			// reading to the end verifies the xz stream checksums
			if _, err := io.Copy(io.Discard, xzr); err != nil {
				return nil, truncated(err)
			}
			// the xz reader ends cleanly at a block boundary, so the footer is checked here
			if _, err := io.Copy(io.Discard, tail); err != nil {
				return nil, truncated(err)
			}
			if !tail.validFooter() {
				return nil, fmt.Errorf("%w: missing stream footer", ErrTruncated)
			}

			return ctr, nil
		default:
			return nil, fmt.Errorf("%w: unexpected frame %q", ErrCorrupt, fr.Kind)
		}
	}
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: missing trailer", ErrTruncated)
	}

	return fmt.Errorf("%w: %w", ErrTruncated, err)
}

const xzFooterLen = 12

var xzFooterMagic = []byte{'Y', 'Z'}

// tailReader remembers the last bytes read from r.
type tailReader struct {
	r    io.Reader
	n    int64
	tail [xzFooterLen]byte
}

func (t *tailReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n >= xzFooterLen {
		copy(t.tail[:], p[n-xzFooterLen:n])
	} else if n > 0 {
		copy(t.tail[:], t.tail[n:])
		copy(t.tail[xzFooterLen-n:], p[:n])
	}
	t.n += int64(n)

	return n, err
}

// validFooter reports whether the bytes read last form an xz stream footer: CRC32 of
// backward size and flags, then the backward size, the flags and the magic.
func (t *tailReader) validFooter() bool {
	if t.n < 2*xzFooterLen {
		return false
	}
	if !bytes.Equal(t.tail[10:], xzFooterMagic) {
		return false
	}

	return crc32.ChecksumIEEE(t.tail[4:10]) == binary.LittleEndian.Uint32(t.tail[:4])
}

func emptyBatch(fields event.Field) *buffered.Batch {
	b := &buffered.Batch{}
	b.Subdevice.Valid = fields.Has(event.FieldSubdevice)
	b.Channel.Valid = fields.Has(event.FieldChannel)
	b.StartCounter.Valid = fields.Has(event.FieldStartCounter)
	b.TimeTag.Valid = fields.Has(event.FieldTimeTag)
	b.Dif1.Valid = fields.Has(event.FieldDif1)
	b.Dif2.Valid = fields.Has(event.FieldDif2)
	b.Time.Valid = fields.Has(event.FieldTime)
	b.MasterResetCounter.Valid = fields.Has(event.FieldMasterResetCounter)
	b.ADC.Valid = fields.Has(event.FieldADC)
	b.Signal1Bit.Valid = fields.Has(event.FieldSignal1Bit)

	return b
}

func appendColumn[T any](col *buffered.Column[T], values []T, count int, name string) error {
	if !col.Valid {
		if len(values) != 0 {
			return fmt.Errorf("%w: unexpected dataset %s", ErrCorrupt, name)
		}
		return nil
	}
	if len(values) != count {
		return fmt.Errorf("%w: dataset %s has %d values, want %d", ErrCorrupt, name, len(values), count)
	}
	col.Values = append(col.Values, values...)

	return nil
}

func appendChunk(b *buffered.Batch, c *Chunk) error {
	if c.EventIndex != uint64(b.DataLen) {
		return fmt.Errorf("%w: chunk %d starts at event %d, want %d", ErrCorrupt, c.Seq, c.EventIndex, b.DataLen)
	}

	err := errors.Join(
		appendColumn(&b.Subdevice, c.Subdevice, c.Count, "subdevice"),
		appendColumn(&b.Channel, c.Channel, c.Count, "channel"),
		appendColumn(&b.StartCounter, c.StartCounter, c.Count, "start_counter"),
		appendColumn(&b.TimeTag, c.TimeTag, c.Count, "time_tag"),
		appendColumn(&b.Dif1, c.Dif1, c.Count, "dif1"),
		appendColumn(&b.Dif2, c.Dif2, c.Count, "dif2"),
		appendColumn(&b.Time, c.Time, c.Count, "time"),
		appendColumn(&b.MasterResetCounter, c.MasterResetCounter, c.Count, "master_rst_counter"),
		appendColumn(&b.ADC, c.ADC, c.Count, "adc"),
		appendColumn(&b.Signal1Bit, c.Signal1Bit, c.Count, "signal1bit"),
	)
	if err != nil {
		return err
	}

	for _, som := range c.SOM {
		b.SOMIndices = append(b.SOMIndices, c.EventIndex+som)
	}
	b.DataLen += c.Count

	return nil
}
