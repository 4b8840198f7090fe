package spectrum

import (
	"slices"
)

const (
	// signalThresholdDB is the height above the noise floor a peak must reach.
	signalThresholdDB = 10.0
	// minPeakDistance is the minimum bin separation between two peaks.
	minPeakDistance = 10
	// minPeakProminence in dB suppresses shoulder lobes of the same emission.
	minPeakProminence = 6.0
	// bandwidthCutoffDB is the drop below the peak that delimits its bandwidth.
	bandwidthCutoffDB = 3.0
	// confidenceSNRScale maps SNR in dB to a confidence in [0, 1].
	confidenceSNRScale = 30.0
)

// detectSignals finds the discrete signals in the given power trace. freqs
// carries the absolute frequency of each bin.
func detectSignals(powerDB []float64, freqs []float64, noiseFloor float64) []Signal {
	threshold := noiseFloor + signalThresholdDB
	peaks := findPeaks(powerDB, threshold)

	signals := make([]Signal, 0, len(peaks))
	for _, idx := range peaks {
		peakPower := powerDB[idx]
		cutoff := peakPower - bandwidthCutoffDB

		left := idx
		for left > 0 && powerDB[left] > cutoff {
			left--
		}
		right := idx
		for right < len(powerDB)-1 && powerDB[right] > cutoff {
			right++
		}
		bandwidth := freqs[right] - freqs[left]

		snr := peakPower - noiseFloor
		signal := Signal{
			Frequency:      freqs[idx],
			Power:          peakPower,
			Bandwidth:      bandwidth,
			SNR:            snr,
			ModulationHint: guessModulation(bandwidth),
			Confidence:     min(snr/confidenceSNRScale, 1.0),
		}
		annotateKnownBand(&signal)
		signals = append(signals, signal)
	}
	return signals
}

// findPeaks returns the indexes of all local maxima that reach the threshold,
// have at least minPeakProminence above their bases, and keep minPeakDistance
// bins between each other. When two peaks are too close, the higher one wins.
func findPeaks(powerDB []float64, threshold float64) []int {
	candidates := make([]int, 0)
	for i := 1; i < len(powerDB)-1; i++ {
		if powerDB[i] <= powerDB[i-1] || powerDB[i] <= powerDB[i+1] {
			continue
		}
		if powerDB[i] < threshold {
			continue
		}
		if prominence(powerDB, i) < minPeakProminence {
			continue
		}
		candidates = append(candidates, i)
	}

	// enforce the minimum distance, highest peaks first
	slices.SortFunc(candidates, func(a, b int) int {
		switch {
		case powerDB[a] > powerDB[b]:
			return -1
		case powerDB[a] < powerDB[b]:
			return 1
		default:
			return a - b
		}
	})
	accepted := make([]int, 0, len(candidates))
	for _, candidate := range candidates {
		tooClose := false
		for _, peak := range accepted {
			if abs(candidate-peak) < minPeakDistance {
				tooClose = true
				break
			}
		}
		if !tooClose {
			accepted = append(accepted, candidate)
		}
	}

	slices.Sort(accepted)
	return accepted
}

// prominence is the height of the peak above the higher of its two bases. A
// base is the lowest point between the peak and the next higher value in that
// direction, or the edge of the spectrum.
func prominence(powerDB []float64, peak int) float64 {
	leftBase := powerDB[peak]
	for i := peak - 1; i >= 0; i-- {
		if powerDB[i] > powerDB[peak] {
			break
		}
		leftBase = min(leftBase, powerDB[i])
	}

	rightBase := powerDB[peak]
	for i := peak + 1; i < len(powerDB); i++ {
		if powerDB[i] > powerDB[peak] {
			break
		}
		rightBase = min(rightBase, powerDB[i])
	}

	return powerDB[peak] - max(leftBase, rightBase)
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
