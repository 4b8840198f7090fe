package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerSpectrumDB_TonePeak(t *testing.T) {
	const blockSize = 128
	const toneBin = 10

	samples := make([]complex128, blockSize)
	for i := range samples {
		phase := 2 * math.Pi * toneBin * float64(i) / blockSize
		samples[i] = cmplx.Exp(complex(0, phase))
	}

	window := NewSampleWindow(WindowRectangular, blockSize)
	powerDB := make([]float64, blockSize)
	NewFFT().PowerSpectrumDB(powerDB, samples, window)

	maxValue := powerDB[0]
	maxI := 0
	for i, v := range powerDB {
		if v > maxValue {
			maxValue = v
			maxI = i
		}
	}

	assert.Equal(t, blockSize/2+toneBin, maxI, "the tone must end up in the DC-centered bin")
}

func TestPowerSpectrumDB_WindowNormalization(t *testing.T) {
	const blockSize = 256
	samples := make([]complex128, blockSize)
	for i := range samples {
		phase := 2 * math.Pi * 20 * float64(i) / blockSize
		samples[i] = cmplx.Exp(complex(0, phase))
	}

	peak := func(windowType WindowType) float64 {
		window := NewSampleWindow(windowType, blockSize)
		powerDB := make([]float64, blockSize)
		NewFFT().PowerSpectrumDB(powerDB, samples, window)
		result := powerDB[0]
		for _, v := range powerDB {
			if v > result {
				result = v
			}
		}
		return result
	}

	rectangular := peak(WindowRectangular)
	for _, windowType := range []WindowType{WindowHamming, WindowHann, WindowBlackman, WindowBlackmanHarris, WindowKaiser} {
		assert.InDeltaf(t, rectangular, peak(windowType), 4, "peak level with %s window", windowType)
	}
}

func TestFrequencyMapping(t *testing.T) {
	mapping := NewFrequencyMapping(128000, 128, 1e6)

	assert.Equal(t, 1000.0, mapping.BinSize())
	assert.Equal(t, 1e6, mapping.BinToFrequency(64, BinCenter))
	assert.Equal(t, 936000.0, mapping.BinToFrequency(0, BinCenter))
	assert.Equal(t, 64, mapping.FrequencyToBin(1e6))

	mapping.SetCenterFrequency(2e6)
	assert.Equal(t, 2e6, mapping.BinToFrequency(64, BinCenter))
}

func TestPercentile(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(99 - i)
	}

	assert.InDelta(t, 20, Percentile(values, 0.2), 1)
	assert.InDelta(t, 50, Percentile(values, 0.5), 1)
}

func TestKnownWindowType(t *testing.T) {
	assert.True(t, KnownWindowType(WindowRectangular))
	assert.True(t, KnownWindowType(WindowBlackmanHarris))
	assert.False(t, KnownWindowType(WindowType("parzen")))
}

func TestSampleWindowEnergy(t *testing.T) {
	window := NewSampleWindow(WindowRectangular, 64)
	assert.Equal(t, 64.0, window.Energy())

	hamming := NewSampleWindow(WindowHamming, 64)
	assert.Less(t, hamming.Energy(), window.Energy())
	assert.Greater(t, hamming.Energy(), 0.0)
}
