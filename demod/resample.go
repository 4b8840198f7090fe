package demod

import (
	"math"
	"slices"
)

const tapsPerPhase = 12

// Resampler converts a sample stream between two fixed rates using a
// polyphase windowed-sinc filter. The filter history persists between calls,
// so one instance serves exactly one stream. The ratio is derived from the
// gcd of the two rates; a new Resampler is required when either rate changes.
type Resampler struct {
	up   int
	down int

	taps    []float64
	history []float64
	// t is the position of the next output sample relative to the start of
	// the history buffer, in units of 1/up input samples.
	t int
}

func NewResampler(targetRate int, sourceRate int) *Resampler {
	g := gcd(targetRate, sourceRate)
	up := targetRate / g
	down := sourceRate / g

	r := &Resampler{
		up:   up,
		down: down,
	}
	if r.Identity() {
		return r
	}

	// The prototype low-pass runs at up times the source rate and must stay
	// below both the source and the target Nyquist frequency.
	cutoff := 0.5 / float64(max(up, down))
	r.taps = firLowPass(up*tapsPerPhase, cutoff)
	for i := range r.taps {
		r.taps[i] *= float64(up)
	}
	r.history = make([]float64, tapsPerPhase-1)
	r.t = len(r.history) * up

	return r
}

// Ratio returns the up/down ratio of this resampler.
func (r *Resampler) Ratio() (up int, down int) {
	return r.up, r.down
}

// Identity indicates that source and target rate are equal.
func (r *Resampler) Identity() bool {
	return r.up == 1 && r.down == 1
}

// Resample converts the given samples to the target rate. The number of
// returned samples varies from call to call, but converges to the up/down
// ratio over the stream.
func (r *Resampler) Resample(samples []float64) []float64 {
	if r.Identity() {
		return slices.Clone(samples)
	}

	work := make([]float64, 0, len(r.history)+len(samples))
	work = append(work, r.history...)
	work = append(work, samples...)

	result := make([]float64, 0, (len(samples)*r.up)/r.down+1)
	for {
		inIndex := r.t / r.up
		if inIndex >= len(work) {
			break
		}
		phase := r.t % r.up

		var value float64
		for k := 0; k < tapsPerPhase; k++ {
			value += r.taps[phase+r.up*k] * work[inIndex-k]
		}
		result = append(result, value)

		r.t += r.down
	}

	consumed := len(work) - len(r.history)
	r.history = work[len(work)-len(r.history):]
	r.t -= consumed * r.up

	return result
}

// firLowPass designs a windowed-sinc low-pass filter. The cutoff is given as
// a fraction of the sample rate (0..0.5).
func firLowPass(taps int, cutoff float64) []float64 {
	result := make([]float64, taps)
	center := float64(taps-1) / 2
	for i := range result {
		x := float64(i) - center
		hamming := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(taps-1))
		result[i] = 2 * cutoff * sinc(2*cutoff*x) * hamming
	}

	// normalize to unit DC gain
	var sum float64
	for _, tap := range result {
		sum += tap
	}
	for i := range result {
		result[i] /= sum
	}

	return result
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
