// Package boot assembles the final C64 .prg image: the psidboot
// bootstrapper plus the placed driver/music/screen/STIL blocks, grounded on
// the original psid64's convert().
//
// Rules and Definitions
//
//   - template is the assembled psidboot.a65 binary, supplied by the
//     caller; this package only knows how to patch its fixed parameter
//     offsets and append the block payloads.
//   - Blocks are written to the output in ascending load-address order,
//     matching the bootstrapper's own unpacking loop.
//   - MaxBlocks bounds the four parallel load/size arrays the bootstrapper
//     keeps; Assemble rejects a call with more blocks than that.
package boot

import (
	"sort"

	"github.com/pkg/errors"

	"psid64/errs"
)

// MaxBlocks is the number of blocks the bootstrapper's parallel arrays have
// room for.
const MaxBlocks = 4

// paramOffset is the byte offset, within the boot template, of the first
// patched parameter; see psidboot.a65's own layout comment for the value
// 0x0801 (BASIC program start) this offset is relative to.
const paramOffset = 19

// initialSongOffset is the byte offset of the 16-bit address (relative to
// $0801) the initial subtune number was assembled to live at.
const initialSongOffset = 0x0801 - 2

// Block is one relocatable payload (driver code, music data, screen,
// STIL text) placed at a fixed C64 address.
type Block struct {
	Load uint16
	Data []byte
}

// Params carries the per-conversion values the bootstrapper needs beyond
// the block list itself.
type Params struct {
	// InitialSong is the 1-based subtune to autostart, already resolved
	// from the user's request and the tune's own default.
	InitialSong int
	DriverPage  uint8
	CharPage    uint8
}

// Assemble patches template's fixed parameter offsets with the sorted block
// table and appends every block's payload, returning the finished .prg
// image (without its own 2-byte load-address prefix; callers prepend that
// the same way every other C64 program does).
func Assemble(template []byte, blocks []Block, params Params) ([]byte, error) {
	if len(blocks) == 0 {
		return nil, errs.New(errs.NotConverted, errors.New("no blocks to assemble"))
	}
	if len(blocks) > MaxBlocks {
		return nil, errs.New(errs.NotConverted, errors.Errorf("%d blocks exceeds the bootstrapper's limit of %d", len(blocks), MaxBlocks))
	}

	sorted := append([]Block(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Load < sorted[j].Load })

	var size int
	for _, b := range sorted {
		size += len(b.Data)
	}

	bootSize := len(template)
	dest := append([]byte(nil), template...)

	numBlocks := len(sorted)
	addr := paramOffset
	if addr+13+4*MaxBlocks > len(dest) {
		return nil, errs.New(errs.NotConverted, errors.New("boot template too small"))
	}

	songSlot := initialSongSlot(dest, addr)
	if songSlot < 0 || songSlot >= len(dest) {
		return nil, errs.New(errs.NotConverted, errors.New("boot template's initial-song pointer is out of range"))
	}
	dest[songSlot] = byte((params.InitialSong - 1) & 0xff)

	eof := 0x0801 + bootSize - 2 + size
	dest[addr] = byte(eof)
	dest[addr+1] = byte(eof >> 8)
	dest[addr+2] = byte(0x10000 & 0xff)
	dest[addr+3] = byte(0x10000 >> 8)
	dest[addr+4] = byte((size + 0xff) >> 8)
	dest[addr+5] = byte((0x10000 - size) & 0xff)
	dest[addr+6] = byte((0x10000 - size) >> 8)
	dest[addr+7] = byte(numBlocks - 1)
	dest[addr+8] = params.CharPage
	jmpAddr := uint16(params.DriverPage) << 8
	dest[addr+9] = byte(jmpAddr)
	dest[addr+10] = byte(jmpAddr >> 8)
	dest[addr+11] = byte(jmpAddr + 3)
	dest[addr+12] = byte((jmpAddr + 3) >> 8)
	addr += 13

	for i, b := range sorted {
		offs := addr + numBlocks - 1 - i
		dest[offs] = byte(b.Load)
		dest[offs+MaxBlocks] = byte(b.Load >> 8)
		dest[offs+2*MaxBlocks] = byte(len(b.Data))
		dest[offs+3*MaxBlocks] = byte(len(b.Data) >> 8)
	}

	out := make([]byte, 0, bootSize+size)
	out = append(out, dest...)
	for _, b := range sorted {
		out = append(out, b.Data...)
	}
	return out, nil
}

// initialSongSlot reads the 16-bit address the boot template itself
// encodes at paramOffset (the bootstrapper's own idea of where the initial
// song byte lives) and translates it to an index into dest.
func initialSongSlot(dest []byte, addr int) int {
	song := int(dest[addr]) + int(dest[addr+1])<<8
	return song - initialSongOffset
}
