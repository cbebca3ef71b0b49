// Package driver relocates and parameterises the on-C64 PSID player driver,
// grounded on the original psid64's initDriver.
//
// Rules and Definitions
//
//   - The driver object is supplied by the caller as a raw o65 object (the
//     assembled psiddrv/psidextdrv binary lives outside this module); this
//     package only knows how to relocate and patch it.
//   - Patched parameter bytes start at offset 6 in the relocated text
//     segment, immediately after the driver's own three-entry JMP table
//     (init, play, and a reserved slot).
package driver

import (
	"github.com/pkg/errors"

	"psid64/errs"
	"psid64/o65"
	"psid64/placer"
	"psid64/screen"
	"psid64/sid"
)

const paramOffset = 6

// Patch relocates obj (the driver's o65 object) to load at
// placement.DriverPage and writes the tune-specific parameter block the
// driver reads at startup: init/play entry points, subtune count, the CIA
// speed-bit mask, the load-address threshold byte, bank-select bytes for
// init and play, and (for the extended driver only) the STIL text's page.
func Patch(obj []byte, tune *sid.Tune, placement *placer.Placement) (*o65.Result, error) {
	externals := o65.Externals{
		"screen":         uint16(placement.ScreenPage) << 8,
		"screen_songnum": screenSongNum(placement.ScreenPage, tune.Songs),
		"dd00":           dd00(placement.ScreenPage),
		"d018":           d018(placement.ScreenPage, placement.CharPage),
	}

	res, err := o65.Relocate(obj, uint16(placement.DriverPage)<<8, externals)
	if err != nil {
		return nil, err
	}

	needed := paramOffset + 14
	if placement.ScreenPage != 0 {
		needed++
	}
	if len(res.Text) < needed {
		return nil, errs.New(errs.RelocationFailed, errors.New("driver object too small for parameter block"))
	}

	addr := paramOffset
	writeEntry(res.Text, &addr, tune.InitAddr)
	writeEntry(res.Text, &addr, tune.PlayAddr)

	res.Text[addr] = byte(tune.Songs)
	addr++

	speed := speedMask(tune)
	res.Text[addr] = byte(speed)
	res.Text[addr+1] = byte(speed >> 8)
	res.Text[addr+2] = byte(speed >> 16)
	res.Text[addr+3] = byte(speed >> 24)
	addr += 4

	if tune.LoadAddr < 0x031a {
		res.Text[addr] = 0xff
	} else {
		res.Text[addr] = 0x05
	}
	addr++

	res.Text[addr] = iomap(tune.Compatibility, tune.InitAddr)
	addr++
	res.Text[addr] = iomap(tune.Compatibility, tune.PlayAddr)
	addr++

	if placement.ScreenPage != 0 {
		res.Text[addr] = placement.StilPage
		addr++
	}

	return res, nil
}

// writeEntry writes a JMP (0x4C) opcode when entry is non-zero or an RTS
// (0x60) opcode when it is zero, followed in both cases by entry as a
// little-endian operand, advancing *addr by three bytes.
func writeEntry(text []byte, addr *int, entry uint16) {
	if entry != 0 {
		text[*addr] = 0x4c
	} else {
		text[*addr] = 0x60
	}
	text[*addr+1] = byte(entry)
	text[*addr+2] = byte(entry >> 8)
	*addr += 3
}

// speedMask packs the CIA/VBI speed bit for each of the first 32 subtunes
// into a 32-bit mask, matching the on-C64 driver's storage limit.
func speedMask(tune *sid.Tune) uint32 {
	songs := int(tune.Songs)
	if songs > 32 {
		songs = 32
	}
	var speed uint32
	for i := 0; i < songs; i++ {
		if tune.SongSpeedIsCIA(i + 1) {
			speed |= 1 << uint(i)
		}
	}
	return speed
}

// iomap returns the default bank-select value for $01 appropriate for a
// call to addr. Real C64 compatibility (an RSID tune requiring hardware
// banking) and a zero address both return 0, which the driver itself later
// rewrites to 0x37.
func iomap(compat sid.Compatibility, addr uint16) uint8 {
	if compat == sid.CompatibilityR64 {
		return 0
	}
	switch {
	case addr == 0:
		return 0
	case addr < 0xa000:
		return 0x37 // BASIC-ROM, Kernal-ROM, I/O
	case addr < 0xd000:
		return 0x36 // Kernal-ROM, I/O
	case addr >= 0xe000:
		return 0x35 // I/O only
	default:
		return 0x34 // RAM only
	}
}

// screenSongNum returns the absolute C64 address (the screen's base page
// plus screen.SongNumOffset) the driver pokes the current subtune number
// into, or 0 when there is only one song or no screen at all.
func screenSongNum(screenPage uint8, songs uint16) uint16 {
	if screenPage == 0 {
		return 0
	}
	offset := screen.SongNumOffset(songs)
	if offset == 0 {
		return 0
	}
	return uint16(screenPage)<<8 + uint16(offset)
}

// dd00 derives the CIA2 port A value that selects the VIC bank containing
// the screen.
func dd00(screenPage uint8) uint16 {
	return uint16((((screenPage & 0xc0) >> 6) ^ 3) | 0x04)
}

// d018 derives the VIC-II memory control register value pointing at the
// screen and, if set, the copied character set.
func d018(screenPage, charPage uint8) uint16 {
	vsa := (screenPage & 0x3c) << 2
	var cba uint8
	if charPage != 0 {
		cba = (charPage >> 2) & 0x0e
	} else {
		cba = 0x06
	}
	return uint16(vsa | cba)
}
