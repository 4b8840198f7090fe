package sdr

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"
)

// Tone is a continuous carrier emitted by the simulated source.
type Tone struct {
	// Frequency is the absolute frequency of the carrier in Hz.
	Frequency float64
	// Amplitude relative to full scale.
	Amplitude float64
}

// SimulatedSource produces synthetic noise and carriers through the Source
// contract. It stands in for the radio hardware in tests and offline runs.
type SimulatedSource struct {
	frequencyRange  Range
	sampleRateRange Range

	mutex           sync.Mutex
	centerFrequency float64
	sampleRate      float64
	noise           float64
	tones           []Tone
	phase           float64
	rng             *rand.Rand
}

// NewSimulatedSource returns a simulated source with HackRF-like frequency
// and sample-rate ranges.
func NewSimulatedSource(centerFrequency float64, sampleRate float64) *SimulatedSource {
	return &SimulatedSource{
		frequencyRange:  Range{1e6, 6e9},
		sampleRateRange: Range{2e6, 20e6},
		centerFrequency: centerFrequency,
		sampleRate:      sampleRate,
		noise:           0.01,
		rng:             rand.New(rand.NewSource(1)),
	}
}

// SetNoise sets the standard deviation of the Gaussian noise per component.
func (s *SimulatedSource) SetNoise(noise float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.noise = noise
}

// SetTones replaces the set of emitted carriers.
func (s *SimulatedSource) SetTones(tones ...Tone) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tones = tones
}

func (s *SimulatedSource) Tune(frequency float64) error {
	if err := ValidateFrequency(frequency, s.frequencyRange); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.centerFrequency = frequency
	return nil
}

func (s *SimulatedSource) SetSampleRate(rate float64) error {
	if err := ValidateSampleRate(rate, s.sampleRateRange); err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sampleRate = rate
	return nil
}

func (s *SimulatedSource) SampleRate() float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.sampleRate
}

// Read produces n samples of noise plus all carriers that fall into the
// currently tuned bandwidth.
func (s *SimulatedSource) Read(ctx context.Context, n int) ([]complex128, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	samples := make([]complex128, n)
	for i := range samples {
		samples[i] = complex(s.rng.NormFloat64()*s.noise, s.rng.NormFloat64()*s.noise)
	}

	for _, tone := range s.tones {
		offset := tone.Frequency - s.centerFrequency
		if math.Abs(offset) > s.sampleRate/2 {
			continue
		}
		for i := range samples {
			phase := 2 * math.Pi * offset * (s.phase + float64(i)) / s.sampleRate
			samples[i] += cmplx.Exp(complex(0, phase)) * complex(tone.Amplitude, 0)
		}
	}
	s.phase += float64(n)

	return samples, nil
}
