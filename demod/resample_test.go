package demod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampler_Identity(t *testing.T) {
	r := NewResampler(48000, 48000)
	assert.True(t, r.Identity())

	input := []float64{1, 2, 3, 4}
	output := r.Resample(input)
	assert.Equal(t, input, output)
}

func TestResampler_OutputCount(t *testing.T) {
	tt := []struct {
		desc       string
		targetRate int
		sourceRate int
		up         int
		down       int
		inputLen   int
		expected   int
	}{
		{"decimate by 5", 48000, 240000, 1, 5, 1000, 200},
		{"decimate by 2", 24000, 48000, 1, 2, 1000, 500},
		{"upsample 5 to 12", 48000, 20000, 12, 5, 1000, 2400},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			r := NewResampler(tc.targetRate, tc.sourceRate)
			up, down := r.Ratio()
			assert.Equal(t, tc.up, up)
			assert.Equal(t, tc.down, down)
			input := make([]float64, tc.inputLen)

			total := 0
			for i := 0; i < 5; i++ {
				total += len(r.Resample(input))
			}

			assert.InDelta(t, 5*tc.expected, total, 2)
		})
	}
}

func TestResampler_UnitDCGain(t *testing.T) {
	r := NewResampler(48000, 240000)
	input := make([]float64, 1000)
	for i := range input {
		input[i] = 1
	}

	r.Resample(input)
	output := r.Resample(input)

	require.NotEmpty(t, output)
	for _, s := range output {
		assert.InDelta(t, 1.0, s, 1e-9)
	}
}

func TestResampler_UnitDCGainUpsampling(t *testing.T) {
	r := NewResampler(48000, 20000)
	input := make([]float64, 1000)
	for i := range input {
		input[i] = 1
	}

	r.Resample(input)
	output := r.Resample(input)

	require.NotEmpty(t, output)
	for _, s := range output {
		assert.InDelta(t, 1.0, s, 0.05)
	}
}
