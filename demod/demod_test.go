package demod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultOutputRate(t *testing.T) {
	assert.Equal(t, DefaultOutputRate, New(0).OutputRate())
	assert.Equal(t, 24000, New(24000).OutputRate())
}

// fmTone generates a constant-amplitude tone offset from the center
// frequency, starting at the given sample index.
func fmTone(offset float64, sampleRate int, start, count int) []complex128 {
	samples := make([]complex128, count)
	for i := range samples {
		phase := 2 * math.Pi * offset * float64(start+i) / float64(sampleRate)
		samples[i] = complex(math.Cos(phase), math.Sin(phase))
	}
	return samples
}

func TestDemodulator_FMGainConvergence(t *testing.T) {
	const sampleRate = 48000
	const chunkSize = 4800
	d := New(sampleRate)

	// a 1200 Hz offset demodulates to a constant 2*1200/48000 = 0.05,
	// which the AGC amplifies toward the target RMS
	var lastRMS float64
	for chunk := 0; chunk < 60; chunk++ {
		samples := fmTone(1200, sampleRate, chunk*chunkSize, chunkSize)
		audio := d.Demodulate(samples, sampleRate, ModeFM)
		require.NotEmpty(t, audio)

		var sumSquares float64
		for _, s := range audio {
			sumSquares += s * s
			require.LessOrEqual(t, math.Abs(s), 1.0)
		}
		lastRMS = math.Sqrt(sumSquares / float64(len(audio)))
	}

	assert.InDelta(t, math.Tanh(agcTargetRMS), lastRMS, 0.01)
}

func TestDemodulator_FMContinuityAcrossChunks(t *testing.T) {
	const sampleRate = 48000
	const chunkSize = 4800
	d := New(sampleRate)

	// once de-emphasis and AGC settled, a constant-offset tone must produce
	// a flat output with no transient at chunk boundaries
	for chunk := 0; chunk < 20; chunk++ {
		samples := fmTone(1200, sampleRate, chunk*chunkSize, chunkSize)
		audio := d.Demodulate(samples, sampleRate, ModeFM)

		if chunk < 10 {
			continue
		}
		low, high := audio[0], audio[0]
		for _, s := range audio {
			low = min(low, s)
			high = max(high, s)
		}
		assert.Less(t, high-low, 1e-6, "chunk %d is not flat", chunk)
	}
}

func TestDemodulator_AMRemovesCarrier(t *testing.T) {
	const sampleRate = 48000
	const chunkSize = 4800
	d := New(sampleRate)

	carrier := make([]complex128, chunkSize)
	for i := range carrier {
		carrier[i] = complex(1, 0)
	}

	d.Demodulate(carrier, sampleRate, ModeAM)
	audio := d.Demodulate(carrier, sampleRate, ModeAM)

	require.NotEmpty(t, audio)
	for _, s := range audio {
		assert.Less(t, math.Abs(s), 1e-6)
	}
}

func TestDemodulator_AMEnvelope(t *testing.T) {
	const sampleRate = 48000
	const chunkSize = 4800
	d := New(sampleRate)

	modulated := func(start int) []complex128 {
		samples := make([]complex128, chunkSize)
		for i := range samples {
			envelope := 1 + 0.5*math.Cos(2*math.Pi*1000*float64(start+i)/sampleRate)
			samples[i] = complex(envelope, 0)
		}
		return samples
	}

	d.Demodulate(modulated(0), sampleRate, ModeAM)
	audio := d.Demodulate(modulated(chunkSize), sampleRate, ModeAM)

	require.NotEmpty(t, audio)
	var sum, sumSquares float64
	for _, s := range audio {
		sum += s
		sumSquares += s * s
	}
	mean := sum / float64(len(audio))
	rms := math.Sqrt(sumSquares / float64(len(audio)))

	assert.InDelta(t, 0, mean, 0.02)
	assert.Greater(t, rms, 0.1)
}

func TestDemodulator_RateChangeResetsResampler(t *testing.T) {
	d := New(48000)

	audio := d.Demodulate(fmTone(1200, 240000, 0, 2400), 240000, ModeFM)
	assert.InDelta(t, 480, len(audio), 2)

	audio = d.Demodulate(fmTone(1200, 48000, 0, 480), 48000, ModeFM)
	assert.InDelta(t, 480, len(audio), 2)
}

func TestQuantize(t *testing.T) {
	quantized := Quantize([]float64{0, 0.5, 1, -1, 2})

	assert.Equal(t, int16(0), quantized[0])
	assert.InDelta(t, 0.5*quantizeHeadroom*math.MaxInt16, float64(quantized[1]), 1)
	assert.InDelta(t, quantizeHeadroom*math.MaxInt16, float64(quantized[2]), 1)
	assert.InDelta(t, -quantizeHeadroom*math.MaxInt16, float64(quantized[3]), 1)
	assert.Equal(t, int16(math.MaxInt16), quantized[4])
}
