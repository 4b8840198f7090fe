package dsp

import "math"

// BiQuad is a biquadratic IIR filter section in direct form 1. The filter
// state persists between calls, so one instance must not be shared between
// concurrently processed streams.
type BiQuad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewLowPass returns a biquad low-pass filter with the given cutoff
// frequency and quality factor.
func NewLowPass(cutoff float64, sampleRate float64, q float64) *BiQuad {
	omega := 2 * math.Pi * cutoff / sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	alpha := sinOmega / (2 * q)

	a0 := 1 + alpha
	return &BiQuad{
		b0: ((1 - cosOmega) / 2) / a0,
		b1: (1 - cosOmega) / a0,
		b2: ((1 - cosOmega) / 2) / a0,
		a1: (-2 * cosOmega) / a0,
		a2: (1 - alpha) / a0,
	}
}

// Filter processes a single sample.
func (f *BiQuad) Filter(input float64) float64 {
	output := f.b0*input + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2

	f.x2 = f.x1
	f.x1 = input
	f.y2 = f.y1
	f.y1 = output

	return output
}

// FilterBlock processes all samples in place.
func (f *BiQuad) FilterBlock(samples []float64) {
	for i, s := range samples {
		samples[i] = f.Filter(s)
	}
}

// Reset clears the filter state.
func (f *BiQuad) Reset() {
	f.x1 = 0
	f.x2 = 0
	f.y1 = 0
	f.y2 = 0
}
