package dsp

import (
	"fmt"
	"math"
	"slices"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// powerEpsilon keeps the dB conversion defined for empty bins.
const powerEpsilon = 1e-10

// FFT transforms blocks of complex baseband samples into power spectra with
// the DC bin shifted to the center.
type FFT struct {
	windowed []complex128
}

func NewFFT() *FFT {
	return &FFT{}
}

// PowerSpectrumDB computes the power spectral density of the given samples in
// dB and writes it to powerDB. The samples are windowed, transformed, and the
// result is normalized by the window energy and shifted so that the DC bin
// ends up in the center of the spectrum. powerDB must have the same length as
// the window.
func (f *FFT) PowerSpectrumDB(powerDB []float64, samples []complex128, window *SampleWindow) {
	if len(f.windowed) != window.Size() {
		f.windowed = make([]complex128, window.Size())
	}
	window.Apply(f.windowed, samples)

	result := fft.FFT(f.windowed)
	blockSize := len(result)
	if len(powerDB) != blockSize {
		panic(fmt.Sprintf("the powerDB slice must have the same length as the FFT's result: %d", blockSize))
	}

	normalization := 10 * math.Log10(window.Energy())
	for i, value := range result {
		k := binToSpectrumIndex(i, blockSize)
		power := real(value)*real(value) + imag(value)*imag(value)
		powerDB[k] = 10*math.Log10(power+powerEpsilon) - normalization
	}
}

func binToSpectrumIndex(bin int, blockSize int) int {
	centerBin := blockSize / 2
	return (bin + centerBin) % blockSize
}

// BinLocation describes a horizontal position within a frequency bin.
type BinLocation float64

const (
	BinFrom   BinLocation = -0.5
	BinCenter BinLocation = 0
	BinTo     BinLocation = 0.5
)

// FrequencyMapping maps between absolute frequencies in Hz and the bins of a
// DC-centered spectrum.
type FrequencyMapping struct {
	sampleRate float64
	blockSize  int
	binSize    float64

	centerFrequency float64
	fromFrequency   float64
}

func NewFrequencyMapping(sampleRate float64, blockSize int, centerFrequency float64) *FrequencyMapping {
	result := &FrequencyMapping{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		binSize:    sampleRate / float64(blockSize),
	}
	result.SetCenterFrequency(centerFrequency)

	return result
}

func (m *FrequencyMapping) String() string {
	return fmt.Sprintf("[%v - %v - %v]", m.fromFrequency, m.centerFrequency, m.BinToFrequency(m.blockSize-1, BinTo))
}

func (m *FrequencyMapping) SetCenterFrequency(frequency float64) {
	m.centerFrequency = frequency
	m.fromFrequency = m.centerFrequency - m.sampleRate/2
}

// BinSize returns the width of one frequency bin in Hz.
func (m *FrequencyMapping) BinSize() float64 {
	return m.binSize
}

// BinToFrequency returns the absolute frequency of the given bin. The bin
// center is at BinCenter, its edges at BinFrom and BinTo.
func (m *FrequencyMapping) BinToFrequency(bin int, location BinLocation) float64 {
	return m.fromFrequency + (float64(bin)+float64(location))*m.binSize
}

func (m *FrequencyMapping) FrequencyToBin(frequency float64) int {
	bin := int((frequency - m.fromFrequency) / m.binSize)
	return max(0, min(bin, m.blockSize-1))
}

// Percentile returns the p-quantile (0 ≤ p ≤ 1) of the given values. The
// input remains unmodified.
func Percentile(values []float64, p float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
