package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/go-tdc/buffered"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/task"
	"github.com/arloliu/go-tdc/logger"
)

type file interface {
	io.Writer
	Sync() error
	Close() error
}

// Recorder persists DLD events to container files. It implements event.Handler and is
// fed by the session while a container is open.
//
// Open and Close must be called from the controlling goroutine. Event delivery may run
// concurrently on the driver goroutine.
type Recorder struct {
	logger    logger.Logger
	chunkSize int
	dictCap   int
	queueSize int
	openFile  func(path string) (file, error)

	state   atomicState
	taskMgr *task.Manager
	events  atomic.Uint64

	mu  sync.Mutex // serializes delivery against Open and Close
	cur *container

	errMu   sync.Mutex
	failure error
}

var _ event.Handler = (*Recorder)(nil)

type container struct {
	r       *Recorder
	path    string
	f       file
	bw      *bufio.Writer
	xzw     *xz.Writer
	enc     *msgpack.Encoder
	channel *buffered.Channel
	chunks  chan *Chunk

	// owned by the writer goroutine until it terminated
	seq     uint64
	written uint64
}

// NewRecorder creates a recorder.
func NewRecorder(opts ...Option) (*Recorder, error) {
	r := &Recorder{
		logger:    logger.GetLogger(),
		chunkSize: 1 << 16,
		dictCap:   1 << 20,
		queueSize: 4,
		openFile: func(path string) (file, error) {
			return os.Create(path)
		},
	}

	for _, opt := range opts {
		if err := opt.apply(r); err != nil {
			return nil, err
		}
	}

	r.taskMgr = task.NewManager(context.Background(), r.logger)

	return r, nil
}

// State returns the current state.
func (r *Recorder) State() State {
	return r.state.Get()
}

// IsOpen reports whether a container is being written.
func (r *Recorder) IsOpen() bool {
	return r.state.IsOpened()
}

// Events returns the number of events recorded into the current or last container.
func (r *Recorder) Events() uint64 {
	return r.events.Load()
}

// Err returns the failure that invalidated the recorder, or nil.
func (r *Recorder) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	return r.failure
}

// Open creates the container at path and starts recording the selected fields.
func (r *Recorder) Open(path string, comment string, fields event.Field, opts ...OpenOption) error {
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamingInstanceInvalid, err)
	}
	if !r.state.ToOpening() {
		return ErrAlreadyOpen
	}

	fields &= event.AllFields
	if fields == 0 {
		r.state.ToClosed()
		return ErrNoFields
	}

	header := Header{
		Format:  FormatName,
		Version: FormatVersion,
		ID:      uuid.NewString(),
		Comment: comment,
		Created: time.Now().UTC(),
	}
	for _, f := range fields.Fields() {
		header.Fields = append(header.Fields, f.Name())
	}
	for _, opt := range opts {
		opt(&header)
	}

	c, err := r.create(path, &header)
	if err != nil {
		if !errors.Is(err, ErrStreamingInstanceInvalid) {
			r.state.ToClosed()
		}
		return err
	}

	c.channel, err = buffered.NewChannel(buffered.Config{
		Fields:            fields,
		MaxBufferedLength: r.chunkSize,
		DLDEvents:         true,
	}, c, nil)
	if err == nil {
		err = task.StartConsumer(r.taskMgr, "recorder-writer", c.chunks, c.write, nil)
	}
	if err != nil {
		_ = c.finish(false)
		r.state.ToClosed()

		return err
	}

	r.events.Store(0)
	r.mu.Lock()
	r.cur = c
	r.mu.Unlock()
	r.state.ToOpened()

	r.logger.Info("recording opened", "path", path, "id", header.ID, "fields", fields.String())

	return nil
}

// Close flushes pending events, writes the trailer and closes the container file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	c := r.cur
	if c == nil {
		r.mu.Unlock()
		if err := r.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrStreamingInstanceInvalid, err)
		}

		return ErrNotOpen
	}
	r.cur = nil
	r.state.ToClosing()
	c.channel.Flush()
	close(c.chunks)
	r.mu.Unlock()

	// the writer terminates once the chunk queue is drained
	r.taskMgr.Wait()

	if err := c.finish(r.Err() == nil); err != nil {
		r.fail(fmt.Errorf("close %s: %w", c.path, err))
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamingInstanceInvalid, err)
	}

	r.state.ToClosed()
	r.logger.Info("recording closed", "path", c.path, "events", c.written, "chunks", c.seq)

	return nil
}

func (r *Recorder) create(path string, header *Header) (*container, error) {
	f, err := r.openFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	c := &container{
		r:      r,
		path:   path,
		f:      f,
		bw:     bufio.NewWriterSize(f, 64<<10),
		chunks: make(chan *Chunk, r.queueSize),
	}

	c.xzw, err = xz.WriterConfig{DictCap: r.dictCap}.NewWriter(c.bw)
	if err == nil {
		c.enc = msgpack.NewEncoder(c.xzw)
		err = c.enc.Encode(&frame{Kind: frameHeader, Header: header})
	}
	if err != nil {
		_ = f.Close()
		r.fail(fmt.Errorf("write header %s: %w", path, err))

		return nil, fmt.Errorf("%w: %w", ErrStreamingInstanceInvalid, err)
	}

	return c, nil
}

func (r *Recorder) fail(err error) {
	r.errMu.Lock()
	first := r.failure == nil
	if first {
		r.failure = err
	}
	r.errMu.Unlock()

	r.state.Set(InvalidState)
	if first {
		r.logger.Error("recorder failed", "error", err)
	}
}

// OnData implements buffered.Handler. It runs on the delivery goroutine.
func (c *container) OnData(b *buffered.Batch) {
	c.r.events.Add(uint64(b.DataLen))
	c.chunks <- chunkOf(b)
}

// OnEndOfMeasurement implements buffered.Handler. Pending events are handed to the
// writer at every measurement end.
func (c *container) OnEndOfMeasurement() bool {
	return true
}

// write runs on the writer goroutine. After a failure chunks are drained and dropped.
func (c *container) write(chunk *Chunk) bool {
	if c.r.Err() != nil {
		return true
	}

	chunk.Seq = c.seq
	if err := c.enc.Encode(&frame{Kind: frameChunk, Chunk: chunk}); err != nil {
		c.r.fail(fmt.Errorf("write chunk %d of %s: %w", chunk.Seq, c.path, err))
		return true
	}
	c.seq++
	c.written += uint64(chunk.Count)

	return true
}

func (c *container) finish(writeTrailer bool) error {
	var errs []error
	if writeTrailer {
		errs = append(errs, c.enc.Encode(&frame{
			Kind:    frameTrailer,
			Trailer: &Trailer{Events: c.written, Chunks: c.seq, IsLast: true},
		}))
	}
	if c.xzw != nil {
		errs = append(errs, c.xzw.Close())
	}
	errs = append(errs, c.bw.Flush(), c.f.Sync(), c.f.Close())

	return errors.Join(errs...)
}

func (r *Recorder) StartOfMeasurement() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		r.cur.channel.StartOfMeasurement()
	}
}

func (r *Recorder) Millisecond() {}

func (r *Recorder) TDCEvents([]event.TDC) {}

func (r *Recorder) DLDEvents(events []event.DLD) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil && r.state.IsOpened() {
		r.cur.channel.DLDEvents(events)
	}
}

func (r *Recorder) EndOfMeasurement() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		r.cur.channel.EndOfMeasurement()
	}
}
