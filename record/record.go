// Package record writes and replays IQ recordings. A recording is a raw file
// of interleaved 32-bit little-endian float I/Q samples next to a JSON
// sidecar describing it, so a capture can be replayed offline through the
// same pipelines that run against live hardware.
package record

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/sdrkit/sigstream/registry"
)

const (
	iqExtension      = ".iq"
	sidecarExtension = ".json"

	bytesPerSample = 8
)

// Metadata is the JSON sidecar written next to each IQ file.
type Metadata struct {
	ID              string    `json:"id"`
	CenterFrequency float64   `json:"center_frequency"`
	SampleRate      float64   `json:"sample_rate"`
	Gain            float64   `json:"gain"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	SampleCount     int64     `json:"sample_count"`
}

// Recorder streams IQ chunks of one capture to disk. It is not safe for
// concurrent use; chunks must be written in order by a single pipeline.
type Recorder struct {
	logger *slog.Logger
	clock  registry.Clock

	basePath string
	file     *os.File
	writer   *bufio.Writer
	buffer   []byte

	metadata Metadata
}

// NewRecorder starts a new capture in the given directory. The recording
// gets a fresh ID which names both the IQ file and the sidecar. A nil logger
// uses slog.Default, a nil clock the wall clock.
func NewRecorder(dir string, centerFrequency, sampleRate, gain float64, logger *slog.Logger, clock registry.Clock) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = registry.WallClock
	}

	id := uuid.NewString()
	basePath := filepath.Join(dir, id)
	file, err := os.Create(basePath + iqExtension)
	if err != nil {
		return nil, fmt.Errorf("cannot create IQ file: %w", err)
	}

	return &Recorder{
		logger:   logger,
		clock:    clock,
		basePath: basePath,
		file:     file,
		writer:   bufio.NewWriter(file),
		metadata: Metadata{
			ID:              id,
			CenterFrequency: centerFrequency,
			SampleRate:      sampleRate,
			Gain:            gain,
			StartTime:       clock.Now(),
		},
	}, nil
}

// ID returns the recording's identifier.
func (r *Recorder) ID() string {
	return r.metadata.ID
}

// Write appends one chunk of samples to the recording.
func (r *Recorder) Write(samples []complex128) error {
	if cap(r.buffer) < len(samples)*bytesPerSample {
		r.buffer = make([]byte, len(samples)*bytesPerSample)
	}
	buffer := r.buffer[:len(samples)*bytesPerSample]

	for i, s := range samples {
		binary.LittleEndian.PutUint32(buffer[i*8:], math.Float32bits(float32(real(s))))
		binary.LittleEndian.PutUint32(buffer[i*8+4:], math.Float32bits(float32(imag(s))))
	}
	if _, err := r.writer.Write(buffer); err != nil {
		return fmt.Errorf("cannot write IQ samples: %w", err)
	}

	r.metadata.SampleCount += int64(len(samples))
	return nil
}

// Close finishes the capture and writes the sidecar.
func (r *Recorder) Close() error {
	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("cannot flush IQ file: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("cannot close IQ file: %w", err)
	}

	r.metadata.EndTime = r.clock.Now()
	sidecar, err := json.MarshalIndent(r.metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal recording metadata: %w", err)
	}
	if err := os.WriteFile(r.basePath+sidecarExtension, sidecar, 0644); err != nil {
		return fmt.Errorf("cannot write recording metadata: %w", err)
	}

	r.logger.Info("recording finished",
		"id", r.metadata.ID,
		"samples", humanize.Comma(r.metadata.SampleCount),
		"size", humanize.Bytes(uint64(r.metadata.SampleCount*bytesPerSample)),
		"duration", r.metadata.EndTime.Sub(r.metadata.StartTime),
	)
	return nil
}

// Player replays a recording through the sample source contract, so offline
// captures feed the same pipelines as live hardware.
type Player struct {
	metadata Metadata
	file     *os.File
	reader   *bufio.Reader
}

// Open opens the recording identified by its sidecar path (with or without
// the .json extension).
func Open(path string) (*Player, error) {
	basePath := strings.TrimSuffix(path, sidecarExtension)

	sidecar, err := os.ReadFile(basePath + sidecarExtension)
	if err != nil {
		return nil, fmt.Errorf("cannot read recording metadata: %w", err)
	}
	var metadata Metadata
	if err := json.Unmarshal(sidecar, &metadata); err != nil {
		return nil, fmt.Errorf("cannot parse recording metadata: %w", err)
	}

	file, err := os.Open(basePath + iqExtension)
	if err != nil {
		return nil, fmt.Errorf("cannot open IQ file: %w", err)
	}

	return &Player{
		metadata: metadata,
		file:     file,
		reader:   bufio.NewReader(file),
	}, nil
}

// Metadata returns the recording's sidecar contents.
func (p *Player) Metadata() Metadata {
	return p.metadata
}

// Read returns up to n samples from the recording. It returns io.EOF once
// the recording is exhausted.
func (p *Player) Read(ctx context.Context, n int) ([]complex128, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buffer := make([]byte, n*bytesPerSample)
	read, err := io.ReadFull(p.reader, buffer)
	if err == io.ErrUnexpectedEOF {
		read -= read % bytesPerSample
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if read == 0 {
		return nil, io.EOF
	}

	samples := make([]complex128, read/bytesPerSample)
	for i := range samples {
		re := math.Float32frombits(binary.LittleEndian.Uint32(buffer[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buffer[i*8+4:]))
		samples[i] = complex(float64(re), float64(im))
	}
	return samples, nil
}

// Tune accepts only the recording's center frequency; a recording cannot be
// retuned.
func (p *Player) Tune(frequency float64) error {
	if frequency != p.metadata.CenterFrequency {
		return fmt.Errorf("cannot retune a recording to %.3f MHz, it was captured at %.3f MHz",
			frequency/1e6, p.metadata.CenterFrequency/1e6)
	}
	return nil
}

// SetSampleRate accepts only the recording's sample rate.
func (p *Player) SetSampleRate(rate float64) error {
	if rate != p.metadata.SampleRate {
		return fmt.Errorf("cannot resample a recording to %.3f Msps, it was captured at %.3f Msps",
			rate/1e6, p.metadata.SampleRate/1e6)
	}
	return nil
}

func (p *Player) SampleRate() float64 {
	return p.metadata.SampleRate
}

// Close closes the underlying IQ file.
func (p *Player) Close() error {
	return p.file.Close()
}
