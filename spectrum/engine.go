package spectrum

import (
	"slices"

	"github.com/sdrkit/sigstream/dsp"
	"github.com/sdrkit/sigstream/registry"
)

const (
	// DefaultAveragingAlpha is the default smoothing factor of the
	// exponential averaging.
	DefaultAveragingAlpha = 0.1
	noiseFloorPercentile  = 0.2
	waterfallDepth        = 100
)

// Engine analyzes IQ sample blocks into spectrum frames. It owns the
// averaging, peak-hold, and waterfall state; that state is valid only when
// the blocks of one stream are analyzed strictly in order by a single task.
type Engine struct {
	windowType dsp.WindowType
	alpha      float64
	clock      registry.Clock

	window *dsp.SampleWindow
	fft    *dsp.FFT

	averaged  []float64
	peakHold  []float64
	waterfall [][]float64
}

// NewEngine returns a new Engine using the given window type. A zero clock
// defaults to the wall clock.
func NewEngine(windowType dsp.WindowType, clock registry.Clock) *Engine {
	if clock == nil {
		clock = registry.WallClock
	}
	return &Engine{
		windowType: windowType,
		alpha:      DefaultAveragingAlpha,
		clock:      clock,
		fft:        dsp.NewFFT(),
	}
}

// SetAveragingAlpha sets the smoothing factor of the exponential averaging.
func (e *Engine) SetAveragingAlpha(alpha float64) {
	e.alpha = alpha
}

// Analyze computes the spectrum frame for the given samples. The FFT size is
// the sample count; the window is regenerated transparently whenever the
// sample count changes.
func (e *Engine) Analyze(samples []complex128, sampleRate float64, centerFrequency float64) Frame {
	blockSize := len(samples)
	if blockSize == 0 {
		// an empty block yields an empty frame and leaves the averaging,
		// peak hold, and waterfall state untouched
		return Frame{
			Timestamp:       e.clock.Now(),
			CenterFrequency: centerFrequency,
			SampleRate:      sampleRate,
		}
	}
	if e.window == nil || e.window.Size() != blockSize {
		e.window = dsp.NewSampleWindow(e.windowType, blockSize)
	}

	powerDB := make([]float64, blockSize)
	e.fft.PowerSpectrumDB(powerDB, samples, e.window)

	e.updateAveraging(powerDB)

	mapping := dsp.NewFrequencyMapping(sampleRate, blockSize, centerFrequency)
	freqs := make([]float64, blockSize)
	for i := range freqs {
		freqs[i] = mapping.BinToFrequency(i, dsp.BinCenter)
	}

	noiseFloor := dsp.Percentile(powerDB, noiseFloorPercentile)
	signals := detectSignals(powerDB, freqs, noiseFloor)

	e.appendWaterfall(powerDB)

	peakPower, _ := dsp.Block[float64](powerDB).Max(0, blockSize-1)
	return Frame{
		Timestamp:       e.clock.Now(),
		CenterFrequency: centerFrequency,
		SampleRate:      sampleRate,
		Frequencies:     freqs,
		PowerDB:         powerDB,
		PeakPower:       peakPower,
		NoiseFloor:      noiseFloor,
		Signals:         signals,
	}
}

// updateAveraging maintains the exponential average and the peak hold. Both
// reset when the bin count changes.
func (e *Engine) updateAveraging(powerDB []float64) {
	if len(e.averaged) != len(powerDB) {
		e.averaged = slices.Clone(powerDB)
		e.peakHold = slices.Clone(powerDB)
		return
	}
	for i, p := range powerDB {
		e.averaged[i] = e.alpha*p + (1-e.alpha)*e.averaged[i]
		e.peakHold[i] = max(e.peakHold[i], p)
	}
}

func (e *Engine) appendWaterfall(powerDB []float64) {
	if len(e.waterfall) == waterfallDepth {
		e.waterfall = slices.Delete(e.waterfall, 0, 1)
	}
	e.waterfall = append(e.waterfall, slices.Clone(powerDB))
}

// Averaged returns a copy of the exponentially averaged trace.
func (e *Engine) Averaged() []float64 {
	return slices.Clone(e.averaged)
}

// PeakHold returns a copy of the peak-hold trace.
func (e *Engine) PeakHold() []float64 {
	return slices.Clone(e.peakHold)
}

// ResetAveraging clears the averaged and peak-hold traces. The next analyzed
// block starts them over.
func (e *Engine) ResetAveraging() {
	e.averaged = nil
	e.peakHold = nil
}

// ClearPeakHold restarts the peak hold from the current averaged trace.
func (e *Engine) ClearPeakHold() {
	if e.averaged == nil {
		return
	}
	e.peakHold = slices.Clone(e.averaged)
}

// Waterfall returns copies of the most recent n power traces, oldest first.
// For n <= 0 the whole retained history is returned.
func (e *Engine) Waterfall(n int) [][]float64 {
	from := 0
	if n > 0 && len(e.waterfall) > n {
		from = len(e.waterfall) - n
	}
	result := make([][]float64, 0, len(e.waterfall)-from)
	for _, trace := range e.waterfall[from:] {
		result = append(result, slices.Clone(trace))
	}
	return result
}
