// Package scan drives a tunable sample source through a frequency range and
// aggregates the spectrum analysis of each step into a scan report.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sdrkit/sigstream/sdr"
	"github.com/sdrkit/sigstream/spectrum"
)

const defaultSettlingTime = 50 * time.Millisecond

// StepResult is the outcome of one scan step that detected at least one
// signal. Steps without signals are omitted from the report.
type StepResult struct {
	Frequency float64
	Timestamp time.Time
	Signals   []spectrum.Signal
}

// Summary aggregates a whole scan.
type Summary struct {
	ScanPoints   int
	TotalSignals int
	// SignalTypes is a histogram of the modulation-hint labels.
	SignalTypes map[string]int
	// Strongest is the single strongest signal by power across the scan,
	// nil if nothing was detected. Equal powers keep the first-seen signal.
	Strongest *spectrum.Signal
}

// Scanner steps a source through a frequency range. It is not safe for
// concurrent use; one scan must finish before the next starts.
type Scanner struct {
	engine   *spectrum.Engine
	logger   *slog.Logger
	settling time.Duration

	results []StepResult
}

func NewScanner(engine *spectrum.Engine, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		engine:   engine,
		logger:   logger,
		settling: defaultSettlingTime,
	}
}

// SetSettlingTime sets the wait between tuning and reading samples.
func (s *Scanner) SetSettlingTime(settling time.Duration) {
	s.settling = settling
}

// Scan tunes the source to each frequency from start to stop inclusive,
// analyzes one dwell period of samples per step, and returns the steps that
// detected signals. Tuning and read errors abort the scan and are propagated.
func (s *Scanner) Scan(ctx context.Context, source sdr.Source, startFrequency, stopFrequency, step float64, dwellTime time.Duration) ([]StepResult, error) {
	if step <= 0 {
		return nil, fmt.Errorf("scan step must be positive, got %f", step)
	}
	s.results = s.results[:0]

	for frequency := startFrequency; frequency <= stopFrequency; frequency += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := source.Tune(frequency); err != nil {
			return nil, fmt.Errorf("cannot tune to %.3f MHz: %w", frequency/1e6, err)
		}
		if err := s.settle(ctx); err != nil {
			return nil, err
		}

		sampleRate := source.SampleRate()
		// a dwell below one sample period still reads one sample
		count := max(1, int(sampleRate*dwellTime.Seconds()))
		samples, err := source.Read(ctx, count)
		if err != nil {
			return nil, fmt.Errorf("cannot read samples at %.3f MHz: %w", frequency/1e6, err)
		}

		frame := s.engine.Analyze(samples, sampleRate, frequency)
		if len(frame.Signals) == 0 {
			continue
		}
		s.logger.Debug("scan step with signals", "frequency", frequency, "signals", len(frame.Signals))
		s.results = append(s.results, StepResult{
			Frequency: frequency,
			Timestamp: frame.Timestamp,
			Signals:   frame.Signals,
		})
	}

	result := make([]StepResult, len(s.results))
	copy(result, s.results)
	return result, nil
}

func (s *Scanner) settle(ctx context.Context) error {
	if s.settling <= 0 {
		return nil
	}
	timer := time.NewTimer(s.settling)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Summary aggregates the results of the last scan.
func (s *Scanner) Summary() Summary {
	summary := Summary{
		ScanPoints:  len(s.results),
		SignalTypes: make(map[string]int),
	}

	maxPower := -200.0
	for _, result := range s.results {
		summary.TotalSignals += len(result.Signals)
		for i, signal := range result.Signals {
			summary.SignalTypes[signal.ModulationHint]++
			if signal.Power > maxPower {
				maxPower = signal.Power
				summary.Strongest = &result.Signals[i]
			}
		}
	}

	return summary
}
