package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sdrkit/sigstream/demod"
	"github.com/sdrkit/sigstream/record"
	"github.com/sdrkit/sigstream/sdr"
)

// AudioSink consumes the demodulated audio of one chunk. It is called on the
// pipeline goroutine and must not retain the slice.
type AudioSink func(audio []float64)

// AudioPipeline reads IQ chunks from a source, demodulates them and hands
// the audio to a sink, typically a protocol framer or an audio writer. An
// optional recorder captures the raw IQ alongside.
type AudioPipeline struct {
	source      sdr.Source
	demodulator *demod.Demodulator
	mode        demod.Mode
	sink        AudioSink
	logger      *slog.Logger

	blockSize int
	recorder  *record.Recorder

	stop    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc

	mu  sync.RWMutex
	err error
}

// NewAudioPipeline returns a pipeline demodulating the given source in the
// given mode. A nil logger uses slog.Default.
func NewAudioPipeline(source sdr.Source, demodulator *demod.Demodulator, mode demod.Mode, sink AudioSink, logger *slog.Logger) *AudioPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioPipeline{
		source:      source,
		demodulator: demodulator,
		mode:        mode,
		sink:        sink,
		logger:      logger,
		blockSize:   defaultBlockSize,
	}
}

// SetBlockSize sets the chunk size in samples. It only takes effect before
// Start.
func (p *AudioPipeline) SetBlockSize(blockSize int) {
	if p.stop == nil && blockSize > 0 {
		p.blockSize = blockSize
	}
}

// SetRecorder captures the raw IQ chunks while the pipeline runs. It only
// takes effect before Start; the caller closes the recorder after Stop.
func (p *AudioPipeline) SetRecorder(recorder *record.Recorder) {
	if p.stop == nil {
		p.recorder = recorder
	}
}

// Start begins reading and demodulating chunks. It does nothing if the
// pipeline already runs.
func (p *AudioPipeline) Start() {
	if p.stop != nil {
		return
	}

	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go p.run(ctx)
}

// Stop terminates the pipeline after the chunk currently being processed.
func (p *AudioPipeline) Stop() {
	if p.stop == nil {
		return
	}

	p.cancel()
	close(p.stop)
	<-p.stopped

	p.stop = nil
	p.stopped = nil
	p.cancel = nil
}

// Err returns the error that terminated the pipeline, if any.
func (p *AudioPipeline) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *AudioPipeline) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *AudioPipeline) run(ctx context.Context) {
	defer close(p.stopped)

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		samples, err := p.source.Read(ctx, p.blockSize)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Error("sample read failed, stopping pipeline", "error", err)
			p.fail(err)
			return
		}

		if p.recorder != nil {
			if err := p.recorder.Write(samples); err != nil {
				p.logger.Error("recording failed, stopping pipeline", "error", err)
				p.fail(err)
				return
			}
		}

		audio := p.demodulator.Demodulate(samples, int(p.source.SampleRate()), p.mode)
		if p.sink != nil {
			p.sink(audio)
		}
	}
}
