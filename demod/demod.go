// Package demod recovers baseband audio from IQ sample chunks. The
// demodulator carries continuity state (phase, DC filter, AGC gain) across
// chunks, so one instance serves exactly one stream and its chunks must be
// processed strictly in order.
package demod

import (
	"math"
	"math/cmplx"
)

// Mode selects the demodulation scheme.
type Mode string

const (
	ModeFM Mode = "fm"
	ModeAM Mode = "am"
)

const (
	// DefaultOutputRate is the fixed audio output rate in Hz.
	DefaultOutputRate = 48000

	// dcBlockAlpha is the pole of the one-pole DC-block filter.
	dcBlockAlpha = 0.95
	// deemphasisTau is the de-emphasis time constant for broadcast FM.
	deemphasisTau = 75e-6

	agcTargetRMS = 0.25
	agcMaxGain   = 100.0
	// agcAttack blends the current gain toward the desired gain; 90% old,
	// 10% new avoids audible gain jumps.
	agcAttack = 0.1

	// quantizeHeadroom keeps quantized output below full scale.
	quantizeHeadroom = 0.9
)

// Demodulator converts IQ chunks of one stream into audio at a fixed output
// rate. It must not be shared between concurrently demodulated streams.
type Demodulator struct {
	outputRate int
	sampleRate int

	lastPhase    float64
	hasLastPhase bool

	dcPrevInput  float64
	dcPrevOutput float64

	deemphasisAlpha float64
	deemphasisState float64

	resampler *Resampler
	agcGain   float64
}

// New returns a new Demodulator producing audio at the given output rate.
// An output rate <= 0 defaults to DefaultOutputRate.
func New(outputRate int) *Demodulator {
	if outputRate <= 0 {
		outputRate = DefaultOutputRate
	}
	return &Demodulator{
		outputRate: outputRate,
		agcGain:    1,
	}
}

// OutputRate returns the fixed audio output rate in Hz.
func (d *Demodulator) OutputRate() int {
	return d.outputRate
}

// Reset clears all continuity state. The next chunk starts a new stream.
func (d *Demodulator) Reset() {
	d.sampleRate = 0
	d.lastPhase = 0
	d.hasLastPhase = false
	d.dcPrevInput = 0
	d.dcPrevOutput = 0
	d.deemphasisState = 0
	d.resampler = nil
	d.agcGain = 1
}

// Demodulate converts one chunk of IQ samples into audio samples at the
// output rate, in the range (-1, 1). A change of the input sample rate
// resets the filter and resampler state.
func (d *Demodulator) Demodulate(samples []complex128, sampleRate int, mode Mode) []float64 {
	if sampleRate != d.sampleRate {
		d.configureRate(sampleRate)
	}

	var baseband []float64
	switch mode {
	case ModeAM:
		baseband = d.demodulateAM(samples)
	default:
		baseband = d.demodulateFM(samples)
		d.applyDeemphasis(baseband)
	}

	audio := d.resampler.Resample(baseband)
	d.applyAGC(audio)
	return audio
}

// configureRate rebuilds the state that is keyed to the input sample rate.
func (d *Demodulator) configureRate(sampleRate int) {
	d.sampleRate = sampleRate
	dt := 1 / float64(sampleRate)
	d.deemphasisAlpha = dt / (deemphasisTau + dt)
	d.resampler = NewResampler(d.outputRate, sampleRate)
	d.hasLastPhase = false
}

// demodulateFM differentiates the unwrapped instantaneous phase. The phase
// sequence is shifted by a constant offset so it continues the previous
// chunk, which eliminates inter-chunk discontinuity clicks.
func (d *Demodulator) demodulateFM(samples []complex128) []float64 {
	phases := make([]float64, len(samples))
	prevRaw := 0.0
	for i, s := range samples {
		raw := cmplx.Phase(s)
		if i == 0 {
			phases[0] = raw
		} else {
			phases[i] = phases[i-1] + wrapPhase(raw-prevRaw)
		}
		prevRaw = raw
	}

	demodulated := make([]float64, len(samples))
	if len(samples) == 0 {
		return demodulated
	}

	if d.hasLastPhase {
		offset := -2 * math.Pi * math.Round((phases[0]-d.lastPhase)/(2*math.Pi))
		for i := range phases {
			phases[i] += offset
		}
		demodulated[0] = (phases[0] - d.lastPhase) / math.Pi
	}

	for i := 1; i < len(phases); i++ {
		demodulated[i] = (phases[i] - phases[i-1]) / math.Pi
	}

	d.lastPhase = wrapPhase(phases[len(phases)-1])
	d.hasLastPhase = true

	return demodulated
}

// demodulateAM takes the magnitude envelope and removes its DC component
// with a one-pole high-pass filter whose state persists across chunks.
func (d *Demodulator) demodulateAM(samples []complex128) []float64 {
	demodulated := make([]float64, len(samples))
	for i, s := range samples {
		envelope := cmplx.Abs(s)
		demodulated[i] = envelope - d.dcPrevInput + dcBlockAlpha*d.dcPrevOutput
		d.dcPrevInput = envelope
		d.dcPrevOutput = demodulated[i]
	}
	return demodulated
}

func (d *Demodulator) applyDeemphasis(samples []float64) {
	for i, s := range samples {
		d.deemphasisState += d.deemphasisAlpha * (s - d.deemphasisState)
		samples[i] = d.deemphasisState
	}
}

// applyAGC blends the gain toward target/rms and applies it, followed by a
// soft limiter. The smooth gain must come before the hard limiting to avoid
// clipping artifacts on transients.
func (d *Demodulator) applyAGC(samples []float64) {
	if len(samples) == 0 {
		return
	}

	var sumSquares float64
	for _, s := range samples {
		sumSquares += s * s
	}
	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if rms > 0 {
		desired := agcTargetRMS / rms
		d.agcGain = (1-agcAttack)*d.agcGain + agcAttack*desired
		d.agcGain = min(d.agcGain, agcMaxGain)
	}

	for i, s := range samples {
		samples[i] = math.Tanh(s * d.agcGain)
	}
}

// Quantize scales audio in (-1, 1) to 16-bit PCM with a small headroom
// below full scale.
func Quantize(audio []float64) []int16 {
	result := make([]int16, len(audio))
	for i, s := range audio {
		value := s * quantizeHeadroom * math.MaxInt16
		value = max(math.MinInt16, min(math.MaxInt16, value))
		result[i] = int16(value)
	}
	return result
}

// wrapPhase maps the given phase difference into (-π, π].
func wrapPhase(phase float64) float64 {
	for phase > math.Pi {
		phase -= 2 * math.Pi
	}
	for phase <= -math.Pi {
		phase += 2 * math.Pi
	}
	return phase
}
