// Package pipeline runs the streaming paths of the system: spectral
// monitoring and demodulate-and-decode. Every pipeline is one goroutine
// processing chunks strictly in arrival order; pipelines share no mutable
// state with each other, and the snapshots they expose are copies.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sdrkit/sigstream/dsp"
	"github.com/sdrkit/sigstream/sdr"
	"github.com/sdrkit/sigstream/spectrum"
	"github.com/sdrkit/sigstream/trace"
)

const traceSpectrum = "spectrum"

// defaultBlockSize is the FFT size read per chunk.
const defaultBlockSize = 2048

// Monitor continuously analyzes a sample source into spectrum frames. The
// latest frame and the waterfall are readable from other goroutines while
// the monitor runs.
type Monitor struct {
	source sdr.Source
	engine *spectrum.Engine
	logger *slog.Logger
	tracer trace.Tracer

	blockSize       int
	centerFrequency float64

	op      chan func()
	stop    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc

	mu        sync.RWMutex
	lastFrame *spectrum.Frame
	err       error
}

// NewMonitor returns a monitor analyzing the given source with the given
// engine. A nil logger uses slog.Default.
func NewMonitor(source sdr.Source, engine *spectrum.Engine, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		source:    source,
		engine:    engine,
		logger:    logger,
		tracer:    new(trace.NoTracer),
		blockSize: defaultBlockSize,
	}
}

// SetBlockSize sets the number of samples analyzed per chunk. It only takes
// effect before Start.
func (m *Monitor) SetBlockSize(blockSize int) {
	if m.stop == nil && blockSize > 0 {
		m.blockSize = blockSize
	}
}

func (m *Monitor) SetTracer(tracer trace.Tracer) {
	m.do(func() {
		m.tracer = tracer
	})
}

// Start begins reading and analyzing chunks. It does nothing if the monitor
// already runs.
func (m *Monitor) Start() {
	if m.stop != nil {
		return
	}

	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	m.op = make(chan func())

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	go m.run(ctx)
}

// Stop terminates the monitor after the chunk currently being processed.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}

	m.tracer.Stop()

	m.cancel()
	close(m.stop)
	<-m.stopped
	close(m.op)

	m.stop = nil
	m.stopped = nil
	m.op = nil
	m.cancel = nil
}

func (m *Monitor) do(f func()) {
	if m.op == nil {
		f()
	} else {
		m.op <- f
	}
}

// SetCenterFrequency tunes the source and reports the tuning error, if any.
func (m *Monitor) SetCenterFrequency(frequency float64) error {
	result := make(chan error, 1)
	m.do(func() {
		err := m.source.Tune(frequency)
		if err == nil {
			m.centerFrequency = frequency
			if sdr.IsRestrictedFrequency(frequency) {
				m.logger.Warn("tuned to a restricted band", "frequency", frequency)
			}
		}
		result <- err
	})
	return <-result
}

func (m *Monitor) CenterFrequency() float64 {
	result := make(chan float64, 1)
	m.do(func() {
		result <- m.centerFrequency
	})
	return <-result
}

// LastFrame returns the most recent spectrum frame, if one was analyzed.
func (m *Monitor) LastFrame() (spectrum.Frame, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastFrame == nil {
		return spectrum.Frame{}, false
	}
	return *m.lastFrame, true
}

// Waterfall returns the last n analyzed traces, oldest first.
func (m *Monitor) Waterfall(n int) [][]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine.Waterfall(n)
}

// Err returns the error that terminated the monitor, if any.
func (m *Monitor) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.stopped)

	for {
		select {
		case <-m.stop:
			return
		case op := <-m.op:
			op()
		default:
		}

		samples, err := m.source.Read(ctx, m.blockSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("sample read failed, stopping monitor", "error", err)
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
			return
		}

		// the lock also guards the engine state against concurrent
		// waterfall reads
		m.mu.Lock()
		frame := m.engine.Analyze(samples, m.source.SampleRate(), m.centerFrequency)
		m.lastFrame = &frame
		m.mu.Unlock()

		if m.tracer.Context() == traceSpectrum && len(frame.PowerDB) > 0 {
			meanPower := dsp.Block[float64](frame.PowerDB).Mean(0, len(frame.PowerDB)-1)
			m.tracer.TraceBlock(traceSpectrum, frame.PowerDB)
			m.tracer.Trace(traceSpectrum, "meta;noiseFloor;%v;meanPower;%v\n", frame.NoiseFloor, meanPower)
		}
	}
}
