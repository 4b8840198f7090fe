package pocsag

import (
	"math/bits"
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

// evenParity flips the lowest check bit if needed; the decoder does not use
// the check-bit area for anything else.
func evenParity(codeword uint32) uint32 {
	if bits.OnesCount32(codeword)%2 != 0 {
		codeword ^= 1
	}
	return codeword
}

func addressCodeword(address, function uint32) uint32 {
	return evenParity(address<<13 | function<<11)
}

func dataCodeword(data uint32) uint32 {
	return evenParity(1<<31 | data<<11)
}

// packAlphanumeric packs 7-bit characters LSB first into 20-bit data words.
func packAlphanumeric(text string) []uint32 {
	var bitstream []uint32
	for _, char := range text {
		for i := 0; i < 7; i++ {
			bitstream = append(bitstream, uint32(char)>>i&1)
		}
	}
	for len(bitstream)%20 != 0 {
		bitstream = append(bitstream, 0)
	}

	var words []uint32
	for i := 0; i < len(bitstream); i += 20 {
		var word uint32
		for j := 0; j < 20; j++ {
			word |= bitstream[i+j] << j
		}
		words = append(words, word)
	}
	return words
}

func alphanumericBatch(address uint32, text string) []uint32 {
	batch := []uint32{addressCodeword(address, 3)}
	for _, word := range packAlphanumeric(text) {
		batch = append(batch, dataCodeword(word))
	}
	for len(batch) < BatchSize {
		batch = append(batch, IdleCodeword)
	}
	return batch
}

func TestDecoder_AlphanumericRoundTrip(t *testing.T) {
	d := NewDecoder(0, nil)

	messages := d.DecodeBatch(alphanumericBatch(123456, "HELLO"))

	require.Len(t, messages, 1)
	assert.Equal(t, uint32(123456), messages[0].Address)
	assert.Equal(t, uint32(3), messages[0].Function)
	assert.Equal(t, "HELLO", messages[0].Text)
	assert.Equal(t, DefaultBitrate, messages[0].Bitrate)
	assert.False(t, messages[0].Numeric)
}

func TestDecoder_NumericRoundTrip(t *testing.T) {
	d := NewDecoder(512, nil)

	// nibbles are sent low first, five digits per word
	word := uint32(1 | 2<<4 | 3<<8 | 4<<12 | 5<<16)
	batch := []uint32{addressCodeword(42, 0), dataCodeword(word)}

	messages := d.DecodeBatch(batch)

	require.Len(t, messages, 1)
	assert.Equal(t, "12345", messages[0].Text)
	assert.True(t, messages[0].Numeric)
	assert.Equal(t, 512, messages[0].Bitrate)
}

func TestDecoder_ParityFailureDropsOnlyThatCodeword(t *testing.T) {
	d := NewDecoder(0, nil)

	corrupted := dataCodeword(0x22222) ^ 2
	batch := []uint32{
		addressCodeword(42, 0),
		dataCodeword(0x11111),
		corrupted,
		dataCodeword(0x33333),
	}

	messages := d.DecodeBatch(batch)

	require.Len(t, messages, 1)
	assert.Equal(t, "1111133333", messages[0].Text)
	assert.Equal(t, int64(1), d.Statistics()["parity_drops"])
}

func TestDecoder_TwoMessagesInOneBatch(t *testing.T) {
	d := NewDecoder(0, nil)

	batch := []uint32{
		addressCodeword(100, 3),
	}
	batch = append(batch, dataCodewords(packAlphanumeric("ONE"))...)
	batch = append(batch, addressCodeword(200, 3))
	batch = append(batch, dataCodewords(packAlphanumeric("TWO"))...)

	messages := d.DecodeBatch(batch)

	require.Len(t, messages, 2)
	assert.Equal(t, uint32(100), messages[0].Address)
	assert.Equal(t, "ONE", messages[0].Text)
	assert.Equal(t, uint32(200), messages[1].Address)
	assert.Equal(t, "TWO", messages[1].Text)
}

func dataCodewords(words []uint32) []uint32 {
	result := make([]uint32, len(words))
	for i, word := range words {
		result[i] = dataCodeword(word)
	}
	return result
}

func TestDecoder_EmptyTextNotEmitted(t *testing.T) {
	d := NewDecoder(0, nil)

	batch := []uint32{addressCodeword(42, 3), dataCodeword(0)}
	messages := d.DecodeBatch(batch)

	assert.Empty(t, messages)
	assert.Equal(t, int64(0), d.Statistics()["total_messages"])
}

func TestDecoder_DataBeforeAddressIgnored(t *testing.T) {
	d := NewDecoder(0, nil)

	batch := append(dataCodewords(packAlphanumeric("LOST")), alphanumericBatch(42, "KEPT")...)
	messages := d.DecodeBatch(batch)

	require.Len(t, messages, 1)
	assert.Equal(t, "KEPT", messages[0].Text)
}

func TestDecoder_RecentMessages(t *testing.T) {
	clock := &manualClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDecoder(0, clock)

	d.DecodeBatch(alphanumericBatch(100, "OLD"))
	clock.now = clock.now.Add(10 * time.Minute)
	d.DecodeBatch(alphanumericBatch(200, "NEW"))

	recent := d.RecentMessages(5 * time.Minute)
	require.Len(t, recent, 1)
	assert.Equal(t, "NEW", recent[0].Text)

	assert.Len(t, d.Messages(), 2)
	assert.Equal(t, 2, d.Statistics()["addresses_seen"])
}
