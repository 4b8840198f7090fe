package record

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	clock := &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	recorder, err := NewRecorder(dir, 100.3e6, 2e6, 30, nil, clock)
	require.NoError(t, err)

	chunk1 := []complex128{complex(0.5, -0.5), complex(0.25, 0.125)}
	chunk2 := []complex128{complex(-1, 1)}
	require.NoError(t, recorder.Write(chunk1))
	require.NoError(t, recorder.Write(chunk2))

	clock.now = clock.now.Add(2 * time.Second)
	require.NoError(t, recorder.Close())

	player, err := Open(filepath.Join(dir, recorder.ID()))
	require.NoError(t, err)
	defer player.Close()

	metadata := player.Metadata()
	assert.Equal(t, recorder.ID(), metadata.ID)
	assert.InDelta(t, 100.3e6, metadata.CenterFrequency, 1)
	assert.InDelta(t, 2e6, metadata.SampleRate, 1)
	assert.InDelta(t, 30, metadata.Gain, 0.001)
	assert.Equal(t, int64(3), metadata.SampleCount)
	assert.Equal(t, 2*time.Second, metadata.EndTime.Sub(metadata.StartTime))

	samples, err := player.Read(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.InDelta(t, 0.5, real(samples[0]), 1e-6)
	assert.InDelta(t, -0.5, imag(samples[0]), 1e-6)
	assert.InDelta(t, -1, real(samples[2]), 1e-6)

	_, err = player.Read(context.Background(), 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPlayer_PartialLastRead(t *testing.T) {
	dir := t.TempDir()

	recorder, err := NewRecorder(dir, 433.92e6, 2e6, 0, nil, nil)
	require.NoError(t, err)
	require.NoError(t, recorder.Write(make([]complex128, 5)))
	require.NoError(t, recorder.Close())

	player, err := Open(filepath.Join(dir, recorder.ID()))
	require.NoError(t, err)
	defer player.Close()

	samples, err := player.Read(context.Background(), 8)
	require.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestPlayer_RejectsRetuning(t *testing.T) {
	dir := t.TempDir()

	recorder, err := NewRecorder(dir, 100.3e6, 2e6, 0, nil, nil)
	require.NoError(t, err)
	require.NoError(t, recorder.Write(make([]complex128, 1)))
	require.NoError(t, recorder.Close())

	player, err := Open(filepath.Join(dir, recorder.ID()))
	require.NoError(t, err)
	defer player.Close()

	assert.NoError(t, player.Tune(100.3e6))
	assert.Error(t, player.Tune(101e6))
	assert.NoError(t, player.SetSampleRate(2e6))
	assert.Error(t, player.SetSampleRate(1e6))
	assert.InDelta(t, 2e6, player.SampleRate(), 1)
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	audio := []int16{0, 16384, -16384, 32767}

	require.NoError(t, WriteWAV(path, audio, 48000))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 44+len(audio)*2)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	assert.Equal(t, uint32(len(audio)*2), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, uint16(16384), binary.LittleEndian.Uint16(data[46:48]))
}
