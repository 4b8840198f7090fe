// Package pocsag decodes POCSAG pager codeword batches into messages. The
// codeword check is a plain even-parity bit count, which matches the accept
// and reject behavior of the transmissions this decoder was built against;
// it is deliberately not a full BCH(31,21) verification.
package pocsag

import (
	"math/bits"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdrkit/sigstream/decode"
	"github.com/sdrkit/sigstream/registry"
)

const (
	// SyncCodeword delimits batches on the air.
	SyncCodeword = 0x7CD215D8
	// IdleCodeword fills unused batch slots and is skipped during decode.
	IdleCodeword = 0x7A89C197
	// BatchSize is the number of codewords per batch.
	BatchSize = 16

	// DefaultBitrate is the declared bitrate recorded on messages when the
	// transport does not report one.
	DefaultBitrate = 1200
)

// numericTable maps the BCD nibbles of a numeric message.
var numericTable = [16]rune{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'*', 'U', ' ', '-', '(', ')',
}

// Message is one finalized pager message.
type Message struct {
	Address   uint32
	Function  uint32
	Text      string
	Timestamp time.Time
	Bitrate   int
	Numeric   bool
}

// Decoder decodes codeword batches and keeps a message history. DecodeBatch
// must be called from a single goroutine; history and statistics may be read
// concurrently.
type Decoder struct {
	clock   registry.Clock
	bitrate int

	mu        sync.RWMutex
	messages  []Message
	addresses map[uint32]struct{}

	total        atomic.Int64
	parityDrops  atomic.Int64
	batchesTotal atomic.Int64
}

// NewDecoder returns a POCSAG decoder declaring the given bitrate on its
// messages. A bitrate <= 0 uses DefaultBitrate, a nil clock the wall clock.
func NewDecoder(bitrate int, clock registry.Clock) *Decoder {
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	if clock == nil {
		clock = registry.WallClock
	}
	return &Decoder{
		clock:     clock,
		bitrate:   bitrate,
		addresses: make(map[uint32]struct{}),
	}
}

func (d *Decoder) Name() string {
	return "pocsag"
}

// DecodeBatch runs the address/message association state machine over one
// batch of codewords and returns the messages finalized by it. An address
// codeword opens a message and finalizes the previous one; data codewords
// accumulate under the open address; the batch end finalizes the last open
// message. Codewords failing the parity check are dropped silently.
func (d *Decoder) DecodeBatch(codewords []uint32) []Message {
	d.batchesTotal.Add(1)

	var result []Message
	open := false
	var address, function uint32
	var words []uint32

	finalize := func() {
		if !open || len(words) == 0 {
			return
		}
		message, ok := d.buildMessage(address, function, words)
		if ok {
			result = append(result, message)
			d.store(message)
		}
		words = nil
	}

	for _, codeword := range codewords {
		if codeword == IdleCodeword {
			continue
		}
		if bits.OnesCount32(codeword)%2 != 0 {
			d.parityDrops.Add(1)
			continue
		}

		if codeword>>31&1 == 1 {
			if open {
				words = append(words, codeword>>11&0xFFFFF)
			}
			continue
		}

		finalize()
		address = codeword >> 13 & 0x3FFFF
		function = codeword >> 11 & 0x3
		open = true
		words = nil
	}
	finalize()

	return result
}

// buildMessage decodes the accumulated payload words. Function code 0 selects
// numeric decode, everything else alphanumeric. Messages decoding to empty
// text are not emitted.
func (d *Decoder) buildMessage(address, function uint32, words []uint32) (Message, bool) {
	var text string
	numeric := function == 0
	if numeric {
		text = decodeNumeric(words)
	} else {
		text = decodeAlphanumeric(words)
	}
	if text == "" {
		return Message{}, false
	}
	return Message{
		Address:   address,
		Function:  function,
		Text:      text,
		Timestamp: d.clock.Now(),
		Bitrate:   d.bitrate,
		Numeric:   numeric,
	}, true
}

func (d *Decoder) store(message Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
	d.addresses[message.Address] = struct{}{}
	d.total.Add(1)
}

// RecentMessages returns the messages younger than the given age, oldest
// first.
func (d *Decoder) RecentMessages(maxAge time.Duration) []Message {
	now := d.clock.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()

	var recent []Message
	for _, message := range d.messages {
		if now.Sub(message.Timestamp) < maxAge {
			recent = append(recent, message)
		}
	}
	return recent
}

// Messages returns a snapshot of the full message history.
func (d *Decoder) Messages() []Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]Message, len(d.messages))
	copy(result, d.messages)
	return result
}

func (d *Decoder) Statistics() decode.Statistics {
	d.mu.RLock()
	stored := len(d.messages)
	addresses := len(d.addresses)
	d.mu.RUnlock()

	return decode.Statistics{
		"total_messages":  d.total.Load(),
		"messages_stored": stored,
		"addresses_seen":  addresses,
		"parity_drops":    d.parityDrops.Load(),
		"batches":         d.batchesTotal.Load(),
	}
}

// decodeNumeric maps each 4-bit BCD nibble of the payload words through the
// numeric table, low nibble first, five digits per word.
func decodeNumeric(words []uint32) string {
	var builder strings.Builder
	for _, word := range words {
		for i := 0; i < 5; i++ {
			builder.WriteRune(numericTable[word>>(i*4)&0xF])
		}
	}
	return strings.TrimSpace(builder.String())
}

// decodeAlphanumeric repacks the 20-bit payload words LSB first into a 7-bit
// character stream and keeps the printable ASCII characters.
func decodeAlphanumeric(words []uint32) string {
	bitstream := make([]byte, 0, len(words)*20)
	for _, word := range words {
		for i := 0; i < 20; i++ {
			bitstream = append(bitstream, byte(word>>i&1))
		}
	}

	var builder strings.Builder
	for i := 0; i+7 <= len(bitstream); i += 7 {
		var value int
		for j, bit := range bitstream[i : i+7] {
			value |= int(bit) << j
		}
		if value >= 32 && value <= 126 {
			builder.WriteRune(rune(value))
		}
	}
	return strings.TrimSpace(builder.String())
}
