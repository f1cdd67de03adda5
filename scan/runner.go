package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-tdc/acq"
	"github.com/arloliu/go-tdc/event"
	"github.com/arloliu/go-tdc/internal/pool"
	"github.com/arloliu/go-tdc/logger"
	"github.com/arloliu/go-tdc/recorder"
)

// Acquirer is the part of an acquisition session a scan drives. *acq.Session implements it
// once its recorder is enabled.
type Acquirer interface {
	OpenRecording(path string, comment string, fields event.Field, opts ...recorder.OpenOption) error
	CloseRecording() error
	StartMeasurement(ctx context.Context, d time.Duration, mode acq.Mode) error
	Recorder() *recorder.Recorder
}

var _ Acquirer = (*acq.Session)(nil)

// Result describes one recorded step.
type Result struct {
	Step   int
	Delay  int
	Path   string
	Events uint64
}

// Runner runs delay scans.
type Runner struct {
	acquirer Acquirer
	shifter  PhaseShifter
	logger   logger.Logger

	analyzer      Analyzer
	applyVoltages bool
	kinetic       float64
	pass          float64

	duration  time.Duration
	settle    time.Duration
	fields    event.Field
	prefix    string
	dir       string
	runNumber int
}

// NewRunner creates a runner recording through acquirer while stepping shifter.
func NewRunner(acquirer Acquirer, shifter PhaseShifter, opts ...Option) (*Runner, error) {
	if acquirer == nil {
		return nil, errors.New("acquirer is nil")
	}
	if shifter == nil {
		return nil, ErrNoPhaseShifter
	}

	r := &Runner{
		acquirer: acquirer,
		shifter:  shifter,
		logger:   logger.GetLogger(),
		duration: time.Second,
		fields:   event.FieldX | event.FieldY | event.FieldTime,
		prefix:   time.Now().Format("060102"),
		dir:      ".",
	}

	for _, opt := range opts {
		if err := opt.apply(r); err != nil {
			return nil, err
		}
	}

	if r.applyVoltages && r.analyzer == nil {
		return nil, errors.New("voltages require an analyzer")
	}

	return r, nil
}

// RunDir returns the directory of run number run.
func (r *Runner) RunDir(run int) string {
	return filepath.Join(r.dir, fmt.Sprintf("PS_Scan_%s-run%03d", r.prefix, run))
}

// StepFile returns the recording file name of a delay in run number run.
func (r *Runner) StepFile(run int, delay int) string {
	return fmt.Sprintf("%s-run%03d_ps%04d.tdc", r.prefix, run, delay)
}

// Run records one step per delay into a new run directory and returns the recorded steps.
//
// The run directory takes the first free run number from the configured one on. On return
// the analyzer, if any, is put in safe state, also when ctx was canceled.
func (r *Runner) Run(ctx context.Context, delays []int) (results []Result, err error) {
	if len(delays) == 0 {
		return nil, ErrEmptyPlan
	}

	run, dir, err := r.createRunDir()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := r.logger.With("run_id", runID, "run", run)
	log.Info("scan started", "dir", dir, "steps", len(delays), "duration", r.duration)

	if r.analyzer != nil {
		defer func() {
			// the safe state must be reached even after cancellation
			if safeErr := r.analyzer.SetSafeState(context.WithoutCancel(ctx)); safeErr != nil {
				log.Error("failed to set analyzer safe state", "error", safeErr)
				err = errors.Join(err, fmt.Errorf("set safe state: %w", safeErr))
			}
		}()

		if r.applyVoltages {
			if err := r.analyzer.SetVoltages(ctx, r.kinetic, r.pass); err != nil {
				return nil, fmt.Errorf("set voltages: %w", err)
			}
		}
	}

	for i, delay := range delays {
		delay = ClampDelay(delay)
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := r.step(ctx, runID, i, delay, filepath.Join(dir, r.StepFile(run, delay)))
		if err != nil {
			log.Error("scan step failed", "step", i, "delay", delay, "error", err)
			return results, fmt.Errorf("step %d (delay %dps): %w", i, delay, err)
		}
		results = append(results, res)
		log.Debug("scan step recorded", "step", i, "delay", delay, "events", res.Events)

		if r.settle > 0 && i < len(delays)-1 {
			if err := pool.Sleep(ctx, r.settle); err != nil {
				return results, err
			}
		}
	}

	log.Info("scan finished", "steps", len(results))

	return results, nil
}

func (r *Runner) step(ctx context.Context, runID string, index int, delay int, path string) (Result, error) {
	if err := r.shifter.SetDelay(ctx, delay); err != nil {
		return Result{}, fmt.Errorf("set delay: %w", err)
	}

	err := r.acquirer.OpenRecording(path, fmt.Sprintf("phase-shifter scan %s", runID), r.fields,
		recorder.WithStep(index, delay),
		recorder.WithAttribute("run_id", runID),
		recorder.WithAttribute("delay_code", strconv.Itoa(DelayCode(delay))),
	)
	if err != nil {
		return Result{}, fmt.Errorf("open recording: %w", err)
	}

	if err := r.acquirer.StartMeasurement(ctx, r.duration, acq.Synchronous); err != nil {
		return Result{}, errors.Join(fmt.Errorf("measure: %w", err), r.acquirer.CloseRecording())
	}

	if err := r.acquirer.CloseRecording(); err != nil {
		return Result{}, fmt.Errorf("close recording: %w", err)
	}

	res := Result{Step: index, Delay: delay, Path: path}
	if rec := r.acquirer.Recorder(); rec != nil {
		res.Events = rec.Events()
	}

	return res, nil
}

func (r *Runner) createRunDir() (int, string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil { //nolint:gosec
		return 0, "", fmt.Errorf("create data directory: %w", err)
	}

	for run := r.runNumber; run <= 999; run++ {
		dir := r.RunDir(run)
		err := os.Mkdir(dir, 0o755) //nolint:gosec
		if err == nil {
			return run, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return 0, "", fmt.Errorf("create run directory: %w", err)
		}
	}

	return 0, "", errors.New("no free run number")
}
