// Package sid implements reading of PSID/RSID tune containers, as specified
// by the HVSC PSID header layout.
//
// Rules and Definitions
//
//   - All multi-byte header fields are big-endian, unlike the C64 data they
//     describe, which is little-endian.
//   - A zero LoadAddr means the load address is stored in the first two
//     (little-endian) bytes of the payload instead of the header.
//   - Versions higher than 2 are read with the version-2 header layout.
package sid

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"psid64/errs"
	"psid64/storage"
)

// MemSize is the size of a C64 address space.
const MemSize = 0x10000

const (
	magicPSID = "PSID"
	magicRSID = "RSID"

	// v1HeaderSize and v2HeaderSize are the header lengths (incl. magic and
	// version) for the two supported generations; see psid.h's
	// PSID_V1_DATA_OFFSET / PSID_V2_DATA_OFFSET.
	v1HeaderSize = 0x76
	v2HeaderSize = 0x7c
)

// Compatibility is the tune's compatibility mode, derived from the
// container magic and, for RSID files, whether an init address is present.
type Compatibility uint8

const (
	CompatibilityPSID Compatibility = iota
	CompatibilityRSID
	CompatibilityBASIC
	CompatibilityR64
)

func (c Compatibility) String() string {
	switch c {
	case CompatibilityPSID:
		return "PSID"
	case CompatibilityRSID:
		return "RSID"
	case CompatibilityBASIC:
		return "BASIC"
	case CompatibilityR64:
		return "R64"
	default:
		return "unknown"
	}
}

// ClockSpeed is the tune's declared video clock requirement.
type ClockSpeed uint8

const (
	ClockUnknown ClockSpeed = iota
	ClockPAL
	ClockNTSC
	ClockAny
)

// SIDModel is the tune's declared SID chip requirement.
type SIDModel uint8

const (
	SIDModelUnknown SIDModel = iota
	SIDModel6581
	SIDModel8580
	SIDModelAny
)

// Tune is an immutable, parsed PSID/RSID container together with its
// placed C64 memory image.
type Tune struct {
	Version       uint16
	Compatibility Compatibility

	LoadAddr uint16
	InitAddr uint16
	PlayAddr uint16

	Songs     uint16
	StartSong uint16

	// SpeedBits holds the raw 32-bit speed field: bit i (i in [0,32)) set
	// means subtune i+1 runs on the CIA timer rather than the default VBI.
	SpeedBits uint32

	Name     string
	Author   string
	Released string

	PlaySID    bool
	ClockSpeed ClockSpeed
	SIDModel   SIDModel

	// RelocStartPage / RelocPages encode the reloc window from the header:
	// RelocStartPage == 0 means "derive from the load image"; RelocStartPage
	// == 0xFF means no pages are available at all.
	RelocStartPage uint8
	RelocPages     uint8

	// DataLen is the number of payload bytes placed into Memory at LoadAddr.
	DataLen int
	Memory  [MemSize]byte
}

// SongSpeedIsCIA reports whether the given 1-based subtune index runs on the
// CIA timer. Subtune indices beyond the 32 bits the driver can store report
// false (VBI), matching the on-C64 driver's storage limit.
func (t *Tune) SongSpeedIsCIA(subtune int) bool {
	i := subtune - 1
	if i < 0 || i >= 32 {
		return false
	}
	return t.SpeedBits&(1<<uint(i)) != 0
}

func be16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// Load parses a PSID/RSID container from r.
func Load(r *storage.Reader) (*Tune, error) {
	head, err := r.ReadBytes(6)
	if err != nil {
		return nil, errs.New(errs.IoError, errors.Wrap(err, "reading magic/version"))
	}

	magic := string(head[0:4])
	if magic != magicPSID && magic != magicRSID {
		return nil, errs.New(errs.InvalidHeader, errors.Errorf("unrecognised magic %q", magic))
	}

	version := be16(head[4:6])
	if version < 1 {
		return nil, errs.New(errs.UnsupportedVersion, errors.Errorf("version %d", version))
	}
	if version > 2 {
		version = 2
	}

	headerSize := v1HeaderSize
	if version >= 2 {
		headerSize = v2HeaderSize
	}

	rest, err := r.ReadBytes(headerSize - 6)
	if err != nil {
		return nil, errs.New(errs.InvalidHeader, errors.Wrap(err, "reading header body"))
	}

	t := &Tune{Version: version}

	// offsets below are relative to `rest`, i.e. header offset - 6.
	dataOffset := be16(rest[0:2])
	_ = dataOffset // informational: payload always follows the parsed header exactly
	rawLoadAddr := be16(rest[2:4])
	t.InitAddr = be16(rest[4:6])
	t.PlayAddr = be16(rest[6:8])
	t.Songs = be16(rest[8:10])
	t.StartSong = be16(rest[10:12])
	t.SpeedBits = uint32(be16(rest[12:14]))<<16 | uint32(be16(rest[14:16]))
	t.Name = trimInfoString(rest[16:48])
	t.Author = trimInfoString(rest[48:80])
	t.Released = trimInfoString(rest[80:112])

	var flags uint16
	if version >= 2 {
		flags = be16(rest[112:114])
		t.RelocStartPage = rest[114]
		t.RelocPages = rest[115]
		// rest[116:118] is the reserved field; intentionally ignored.
	}

	if flags&0x01 != 0 {
		return nil, errs.New(errs.UnsupportedMus, errors.New("SIDPLAYER MUS data is not supported"))
	}
	t.PlaySID = flags&0x02 != 0
	t.ClockSpeed = ClockSpeed((flags >> 2) & 0x03)
	t.SIDModel = SIDModel((flags >> 4) & 0x03)

	switch magic {
	case magicPSID:
		t.Compatibility = CompatibilityPSID
	case magicRSID:
		// An RSID tune with no init routine is a bare BASIC program: it is
		// loaded and RUN, never called through an init/play JSR pair.
		if t.InitAddr == 0 {
			t.Compatibility = CompatibilityBASIC
		} else {
			t.Compatibility = CompatibilityR64
		}
	}

	payload, err := r.ReadAll()
	if err != nil {
		return nil, errs.New(errs.IoError, errors.Wrap(err, "reading payload"))
	}

	loadAddr := rawLoadAddr
	if loadAddr == 0 {
		if len(payload) < 2 {
			return nil, errs.New(errs.LoadAddressError, errors.New("payload too short for embedded load address"))
		}
		loadAddr = uint16(payload[0]) | uint16(payload[1])<<8
		payload = payload[2:]
	}
	t.LoadAddr = loadAddr

	if t.InitAddr == 0 {
		t.InitAddr = t.LoadAddr
	}

	maxLen := MemSize - int(loadAddr)
	if len(payload) > maxLen {
		return nil, errs.New(errs.DataTooLarge, errors.Errorf("%d bytes at $%04X overflows C64 memory", len(payload), loadAddr))
	}
	t.DataLen = len(payload)
	copy(t.Memory[loadAddr:], payload)

	return t, nil
}

// trimInfoString trims trailing NUL padding from a fixed-width info field.
func trimInfoString(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
