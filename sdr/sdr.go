// Package sdr defines the capability contract of a tunable sample source and
// the range validation that guards it. The actual radio hardware lives behind
// this contract; the package provides a simulated source for offline use.
package sdr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFrequencyRange indicates a tuning request outside the source's range.
	ErrFrequencyRange = errors.New("frequency out of range")
	// ErrSampleRateRange indicates a sample rate outside the source's range.
	ErrSampleRateRange = errors.New("sample rate out of range")
)

// Source provides complex baseband samples at its current sample rate.
// Read is the only blocking operation; Tune and SetSampleRate take effect
// asynchronously and may fail with a range-violation error that callers must
// propagate, not swallow.
type Source interface {
	Read(ctx context.Context, n int) ([]complex128, error)
	Tune(frequency float64) error
	SetSampleRate(rate float64) error
	SampleRate() float64
}

// Range is a closed interval of valid values.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(value float64) bool {
	return r.Min <= value && value <= r.Max
}

// ValidateFrequency checks the given frequency against the range and returns
// ErrFrequencyRange if it is outside.
func ValidateFrequency(frequency float64, validRange Range) error {
	if !validRange.Contains(frequency) {
		return fmt.Errorf("%w: %.3f MHz not in [%.3f, %.3f] MHz",
			ErrFrequencyRange, frequency/1e6, validRange.Min/1e6, validRange.Max/1e6)
	}
	return nil
}

// ValidateSampleRate checks the given sample rate against the range and
// returns ErrSampleRateRange if it is outside.
func ValidateSampleRate(rate float64, validRange Range) error {
	if !validRange.Contains(rate) {
		return fmt.Errorf("%w: %.3f Msps not in [%.3f, %.3f] Msps",
			ErrSampleRateRange, rate/1e6, validRange.Min/1e6, validRange.Max/1e6)
	}
	return nil
}

// restrictedBands are frequency ranges that must not be transmitted on and
// deserve a warning when tuned to.
var restrictedBands = []Range{
	{108e6, 137e6},    // aviation
	{406e6, 406.1e6},  // emergency beacons
	{1.215e9, 1.39e9}, // GPS/GNSS
}

// IsRestrictedFrequency indicates if the given frequency falls into a
// restricted band.
func IsRestrictedFrequency(frequency float64) bool {
	for _, band := range restrictedBands {
		if band.Contains(frequency) {
			return true
		}
	}
	return false
}
