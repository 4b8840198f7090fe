// Package ais decodes AIS (Automatic Identification System) vessel traffic
// frames and maintains a registry of tracked vessels. Position reports
// (message types 1 to 3) and static/voyage data (message type 5) are
// supported; the extracted field set covers what the tracker displays, not
// the full ITU-R M.1371 catalogue.
package ais

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sdrkit/sigstream/decode"
	"github.com/sdrkit/sigstream/registry"
)

// AIS channel frequencies in Hz.
const (
	ChannelA = 161.975e6
	ChannelB = 162.025e6
)

// ActiveTTL is the age limit for the active-vessel view.
const ActiveTTL = 600 * time.Second

// Raw field values that denote "not available".
const (
	latitudeUnavailable  = 0x3412140
	longitudeUnavailable = 0x6791AC0
	speedUnavailable     = 1023
	courseUnavailable    = 3600
	headingUnavailable   = 511
)

// Bit offsets and widths of the extracted fields.
const (
	messageTypeOffset = 0
	mmsiOffset        = 8

	speedOffset     = 50
	longitudeOffset = 61
	latitudeOffset  = 89
	courseOffset    = 116
	headingOffset   = 128

	imoOffset         = 40
	callsignOffset    = 70
	nameOffset        = 112
	shipTypeOffset    = 232
	etaOffset         = 274
	destinationOffset = 302
)

var shipTypes = map[uint32]string{
	30: "Fishing",
	31: "Towing",
	32: "Towing (large)",
	33: "Dredging",
	34: "Diving",
	35: "Military",
	36: "Sailing",
	37: "Pleasure craft",
	40: "High speed craft",
	41: "High speed craft (hazardous)",
	42: "High speed craft (medical)",
	50: "Pilot vessel",
	51: "SAR",
	52: "Tug",
	53: "Port tender",
	54: "Anti-pollution",
	55: "Law enforcement",
	60: "Passenger",
	70: "Cargo",
	80: "Tanker",
	90: "Other",
}

// ShipTypeLabel maps an AIS ship-type code to its label.
func ShipTypeLabel(code uint32) string {
	if label, ok := shipTypes[code]; ok {
		return label
	}
	return fmt.Sprintf("Type %d", code)
}

// Vessel is the tracked state of one MMSI. Fields are filled in as messages
// carrying them arrive; a pointer field is nil until the value was reported.
type Vessel struct {
	MMSI        string
	Name        string
	Callsign    string
	IMO         uint32
	ShipType    string
	Latitude    *float64
	Longitude   *float64
	Speed       *float64
	Course      *float64
	Heading     *float64
	Destination string
	ETA         string
}

// Report is the result of decoding one frame.
type Report struct {
	MMSI        string
	MessageType int
	Vessel      registry.Entry[Vessel]
}

// Decoder decodes AIS frames into vessel reports. Decode must be called from
// a single goroutine; the vessel registry and statistics may be read
// concurrently.
type Decoder struct {
	vessels *registry.Store[Vessel]

	messages atomic.Int64
	dropped  atomic.Int64
}

// NewDecoder returns an AIS decoder using the given clock for last-seen
// timestamps. A nil clock uses the wall clock.
func NewDecoder(clock registry.Clock) *Decoder {
	return &Decoder{vessels: registry.NewStore[Vessel](clock)}
}

func (d *Decoder) Name() string {
	return "ais"
}

// Decode extracts the fields of one raw AIS frame and updates the vessel
// registry. Truncated or unsupported frames are dropped; the second return
// value reports whether a usable message was decoded.
func (d *Decoder) Decode(frame []byte) (Report, bool) {
	messageType, ok := bitField(frame, messageTypeOffset, 6)
	if !ok {
		d.dropped.Add(1)
		return Report{}, false
	}
	mmsiRaw, ok := bitField(frame, mmsiOffset, 30)
	if !ok {
		d.dropped.Add(1)
		return Report{}, false
	}
	mmsi := strconv.FormatUint(uint64(mmsiRaw), 10)

	d.vessels.Upsert(mmsi, func(vessel *Vessel, created bool) {
		if created {
			vessel.MMSI = mmsi
		}
		switch messageType {
		case 1, 2, 3:
			d.applyPositionReport(frame, vessel)
		case 5:
			d.applyStaticData(frame, vessel)
		}
	})
	entry, _ := d.vessels.Get(mmsi)
	d.messages.Add(1)

	return Report{MMSI: mmsi, MessageType: int(messageType), Vessel: entry}, true
}

// applyPositionReport fills in position, speed, course and heading. A field
// carrying its "not available" sentinel leaves the previously known value in
// place instead of clearing it.
func (d *Decoder) applyPositionReport(frame []byte, vessel *Vessel) {
	if raw, ok := bitField(frame, latitudeOffset, 27); ok && raw != latitudeUnavailable {
		vessel.Latitude = ptr(float64(raw) / 600000)
	}
	if raw, ok := bitField(frame, longitudeOffset, 28); ok && raw != longitudeUnavailable {
		vessel.Longitude = ptr(float64(raw) / 600000)
	}
	if raw, ok := bitField(frame, speedOffset, 10); ok && raw != speedUnavailable {
		vessel.Speed = ptr(float64(raw) / 10)
	}
	if raw, ok := bitField(frame, courseOffset, 12); ok && raw != courseUnavailable {
		vessel.Course = ptr(float64(raw) / 10)
	}
	if raw, ok := bitField(frame, headingOffset, 9); ok && raw != headingUnavailable {
		vessel.Heading = ptr(float64(raw))
	}
}

// applyStaticData fills in the identity and voyage fields of message type 5.
func (d *Decoder) applyStaticData(frame []byte, vessel *Vessel) {
	if name := textField(frame, nameOffset, 120); name != "" {
		vessel.Name = name
	}
	if callsign := textField(frame, callsignOffset, 42); callsign != "" {
		vessel.Callsign = callsign
	}
	if imo, ok := bitField(frame, imoOffset, 30); ok && imo != 0 {
		vessel.IMO = imo
	}
	if code, ok := bitField(frame, shipTypeOffset, 8); ok {
		vessel.ShipType = ShipTypeLabel(code)
	}
	if eta := etaField(frame); eta != "" {
		vessel.ETA = eta
	}
	if destination := textField(frame, destinationOffset, 120); destination != "" {
		vessel.Destination = destination
	}
}

// etaField formats the 20-bit ETA field as "MM-DD HH:MM". A month of zero
// means the ETA was not reported.
func etaField(frame []byte) string {
	month, ok := bitField(frame, etaOffset, 4)
	if !ok || month == 0 {
		return ""
	}
	day, _ := bitField(frame, etaOffset+4, 5)
	hour, _ := bitField(frame, etaOffset+9, 5)
	minute, _ := bitField(frame, etaOffset+14, 6)
	return fmt.Sprintf("%02d-%02d %02d:%02d", month, day, hour, minute)
}

// Vessels returns a snapshot of all tracked vessels.
func (d *Decoder) Vessels() []registry.Entry[Vessel] {
	return d.vessels.All()
}

// ActiveVessels returns the vessels seen within the given age. A zero age
// uses ActiveTTL.
func (d *Decoder) ActiveVessels(maxAge time.Duration) []registry.Entry[Vessel] {
	if maxAge <= 0 {
		maxAge = ActiveTTL
	}
	return d.vessels.Active(maxAge)
}

func (d *Decoder) Statistics() decode.Statistics {
	return decode.Statistics{
		"total_messages": d.messages.Load(),
		"dropped_frames": d.dropped.Load(),
		"total_vessels":  d.vessels.Len(),
		"active_vessels": len(d.vessels.Active(ActiveTTL)),
	}
}

// bitField extracts width bits starting at the given bit offset, MSB first.
// It reports false if the frame is too short.
func bitField(frame []byte, offset, width int) (uint32, bool) {
	if offset < 0 || width <= 0 || offset+width > len(frame)*8 {
		return 0, false
	}
	var value uint32
	for i := offset; i < offset+width; i++ {
		value = value<<1 | uint32(frame[i/8]>>(7-i%8)&1)
	}
	return value, true
}

// textField decodes a six-bit text field from the frame and strips the `@`
// padding.
func textField(frame []byte, offset, width int) string {
	var builder strings.Builder
	for i := 0; i+6 <= width; i += 6 {
		value, ok := bitField(frame, offset+i, 6)
		if !ok {
			break
		}
		builder.WriteRune(sixBitRune(value))
	}
	return strings.TrimSpace(strings.Trim(builder.String(), "@"))
}

// sixBitRune maps a six-bit value to its character per the AIS text table.
func sixBitRune(value uint32) rune {
	if value < 32 {
		return rune(value + 64)
	}
	return rune(value)
}

// DecodeSixBit decodes payload text that arrives in the ASCII-armored form
// used by AIS data links: each character carries one six-bit value offset
// into the printable range.
func DecodeSixBit(data string) string {
	var builder strings.Builder
	for _, char := range data {
		value := int(char) - 48
		if value > 40 {
			value -= 8
		}
		if mapped := value + 32; mapped >= 32 && mapped <= 95 {
			builder.WriteRune(rune(mapped))
		} else {
			builder.WriteRune('?')
		}
	}
	return strings.Trim(builder.String(), "@")
}

func ptr(v float64) *float64 {
	return &v
}
