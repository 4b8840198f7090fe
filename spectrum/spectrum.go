// Package spectrum computes power spectra from IQ sample blocks, detects and
// classifies the occupied signals, and keeps averaged, peak-hold, and
// waterfall traces of the observed spectrum.
package spectrum

import "time"

// Signal is one detected emission in a spectrum frame. Signals are never
// mutated after creation, their lifetime is the frame they belong to.
type Signal struct {
	// Frequency of the signal's peak in Hz.
	Frequency float64
	// Power of the signal's peak in dB.
	Power float64
	// Bandwidth is the 3 dB-down width of the signal in Hz.
	Bandwidth float64
	// SNR is the peak power above the noise floor in dB.
	SNR float64
	// ModulationHint is a coarse, bandwidth-based classification, possibly
	// annotated with a known-band label.
	ModulationHint string
	// Confidence of the classification in [0, 1].
	Confidence float64
}

// Frame is an immutable snapshot of one spectrum analysis. The Frequencies
// and PowerDB slices have equal length, the FFT size of the analysis.
type Frame struct {
	Timestamp       time.Time
	CenterFrequency float64
	SampleRate      float64
	Frequencies     []float64
	PowerDB         []float64
	PeakPower       float64
	NoiseFloor      float64
	Signals         []Signal
}
