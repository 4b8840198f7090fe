// Package apt decodes APT (Automatic Picture Transmission) weather-satellite
// passes into image scan lines. Each 0.5 s line is accepted only if the
// channel A sync pattern correlates strongly enough; failed lines are
// dropped, never interpolated.
package apt

import (
	"math/cmplx"
	"sync"
	"time"

	"github.com/sdrkit/sigstream/decode"
	"github.com/sdrkit/sigstream/demod"
	"github.com/sdrkit/sigstream/dsp"
	"github.com/sdrkit/sigstream/registry"
)

const (
	// SampleRate is the APT audio rate in Hz.
	SampleRate = 11025
	// SubcarrierHz is the AM picture subcarrier.
	SubcarrierHz = 2400
	// ImageWidth is the pixel count of one full line, both channels.
	ImageWidth = 2080
	// LineDuration is the on-air duration of one line.
	LineDuration = 500 * time.Millisecond

	channelWidth   = ImageWidth / 2
	samplesPerLine = SampleRate / 2
	lowpassCutoff  = 4200

	// syncThreshold is the minimum accepted correlation peak. It is scaled
	// from the pattern length and the 0..255 pixel range.
	syncThreshold = len(syncPatternA) * 200
)

// Downlink frequencies of the active satellites in Hz.
var Frequencies = map[string]float64{
	"NOAA-15": 137.620e6,
	"NOAA-18": 137.9125e6,
	"NOAA-19": 137.100e6,
}

// syncPatternA is the square-wave burst that opens every channel A line.
var syncPatternA = [8]float64{0, 0, 255, 255, 0, 0, 255, 255}

// Image is one decoded satellite pass. ChannelA carries the visible or
// near-IR instrument, ChannelB the thermal IR one; Combined holds both side
// by side. Quality is accepted lines over attempted lines.
type Image struct {
	Satellite string
	Timestamp time.Time
	ChannelA  [][]uint8
	ChannelB  [][]uint8
	Combined  [][]uint8
	Lines     int
	Quality   float64
}

// LineDecoder decodes APT passes and scan lines. DecodePass must be called
// from a single goroutine; the image list and statistics may be read
// concurrently.
type LineDecoder struct {
	clock registry.Clock

	mu     sync.RWMutex
	images []*Image

	linesAttempted int64
	linesDecoded   int64
}

// NewLineDecoder returns an APT decoder. A nil clock uses the wall clock.
func NewLineDecoder(clock registry.Clock) *LineDecoder {
	if clock == nil {
		clock = registry.WallClock
	}
	return &LineDecoder{clock: clock}
}

func (d *LineDecoder) Name() string {
	return "apt"
}

// DecodeLine decodes one line segment of APT audio into its channel A and
// channel B pixel rows. It reports false if the segment is too short, has
// no usable dynamic range, fails the sync correlation, or lacks enough
// samples after the sync marker.
func (d *LineDecoder) DecodeLine(audio []float64) ([]uint8, []uint8, bool) {
	if len(audio) < ImageWidth {
		return nil, nil, false
	}

	syncPos, ok := findSync(audio)
	if !ok {
		return nil, nil, false
	}

	lineStart := syncPos + len(syncPatternA)
	if lineStart+ImageWidth > len(audio) {
		return nil, nil, false
	}

	pixels, ok := normalizePixels(audio[lineStart : lineStart+ImageWidth])
	if !ok {
		return nil, nil, false
	}
	return pixels[:channelWidth], pixels[channelWidth:], true
}

// DecodePass AM-demodulates a recorded pass, resamples it to the APT audio
// rate and decodes it line by line. It reports false when no line could be
// decoded.
func (d *LineDecoder) DecodePass(samples []complex128, sampleRate int, satellite string) (*Image, bool) {
	audio := demodulateAM(samples, sampleRate)
	if sampleRate != SampleRate {
		audio = demod.NewResampler(SampleRate, sampleRate).Resample(audio)
	}

	image := &Image{
		Satellite: satellite,
		Timestamp: d.clock.Now(),
	}

	attempted := int64(0)
	for start := 0; start+samplesPerLine <= len(audio); start += samplesPerLine {
		attempted++
		channelA, channelB, ok := d.DecodeLine(audio[start : start+samplesPerLine])
		if !ok {
			continue
		}
		image.ChannelA = append(image.ChannelA, channelA)
		image.ChannelB = append(image.ChannelB, channelB)
		combined := make([]uint8, 0, ImageWidth)
		combined = append(combined, channelA...)
		combined = append(combined, channelB...)
		image.Combined = append(image.Combined, combined)
	}

	image.Lines = len(image.Combined)
	if attempted > 0 {
		image.Quality = float64(image.Lines) / float64(attempted)
	}

	d.mu.Lock()
	d.linesAttempted += attempted
	d.linesDecoded += int64(image.Lines)
	if image.Lines > 0 {
		d.images = append(d.images, image)
	}
	d.mu.Unlock()

	if image.Lines == 0 {
		return nil, false
	}
	return image, true
}

// Images returns a snapshot of the decoded passes.
func (d *LineDecoder) Images() []*Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]*Image, len(d.images))
	copy(result, d.images)
	return result
}

func (d *LineDecoder) Statistics() decode.Statistics {
	d.mu.RLock()
	defer d.mu.RUnlock()

	satellites := make(map[string]struct{})
	qualitySum := 0.0
	for _, image := range d.images {
		satellites[image.Satellite] = struct{}{}
		qualitySum += image.Quality
	}
	averageQuality := 0.0
	if len(d.images) > 0 {
		averageQuality = qualitySum / float64(len(d.images))
	}

	return decode.Statistics{
		"total_images":    len(d.images),
		"satellites":      len(satellites),
		"lines_decoded":   d.linesDecoded,
		"lines_attempted": d.linesAttempted,
		"avg_quality":     averageQuality,
	}
}

// demodulateAM recovers the picture subcarrier envelope and low-pass filters
// it to the APT video bandwidth.
func demodulateAM(samples []complex128, sampleRate int) []float64 {
	audio := make([]float64, len(samples))
	for i, s := range samples {
		audio[i] = cmplx.Abs(s)
	}

	filter := dsp.NewLowPass(lowpassCutoff, float64(sampleRate), 0.7071)
	filter.FilterBlock(audio)
	return audio
}

// findSync locates the channel A sync pattern by cross-correlating the
// normalized line against it. The correlation peak must clear syncThreshold.
func findSync(line []float64) (int, bool) {
	normalized, ok := normalize(line)
	if !ok {
		return 0, false
	}

	bestIndex := -1
	bestValue := 0.0
	for i := 0; i+len(syncPatternA) <= len(normalized); i++ {
		var sum float64
		for j, p := range syncPatternA {
			sum += normalized[i+j] * p
		}
		if sum > bestValue {
			bestValue = sum
			bestIndex = i
		}
	}

	if bestIndex < 0 || bestValue <= float64(syncThreshold) {
		return 0, false
	}
	return bestIndex, true
}

// normalize scales the samples to the 0..255 pixel range. It reports false
// when the input has no dynamic range.
func normalize(samples []float64) ([]float64, bool) {
	block := dsp.Block[float64](samples)
	low, _ := block.Min(0, block.Size()-1)
	high, _ := block.Max(0, block.Size()-1)
	if high == low {
		return nil, false
	}

	normalized := make([]float64, len(samples))
	scale := 255 / (high - low)
	for i, s := range samples {
		normalized[i] = (s - low) * scale
	}
	return normalized, true
}

func normalizePixels(samples []float64) ([]uint8, bool) {
	normalized, ok := normalize(samples)
	if !ok {
		return nil, false
	}
	pixels := make([]uint8, len(normalized))
	for i, s := range normalized {
		pixels[i] = uint8(s)
	}
	return pixels, true
}
