// Package screen implements the 40x25 C64 text screen the converter draws
// its information panel into, grounded on the original psid64's Screen
// class.
//
// Rules and Definitions
//
//   - The screen buffer holds C64 screen codes, not PETSCII or ASCII; every
//     character written through Write passes through the
//     iso2scr table first.
//   - The cursor clamps at the right and bottom edges instead of wrapping,
//     except on '\n', which returns to column 0 and advances one row.
package screen

import (
	"golang.org/x/text/encoding/charmap"
)

const (
	// Width and Height are the C64 text screen's fixed dimensions.
	Width  = 40
	Height = 25
	// Size is the number of screen-code bytes the buffer holds.
	Size = Width * Height
)

// Screen is a 40x25 buffer of C64 screen codes with a cursor, mirroring the
// VIC-II's text-mode screen memory layout.
type Screen struct {
	data [Size]byte
	x, y int
}

// New returns a cleared Screen with the cursor at the origin.
func New() *Screen {
	s := &Screen{}
	s.Clear()
	return s
}

// Clear fills the screen with spaces and homes the cursor.
func (s *Screen) Clear() {
	c := iso2scr(' ')
	for i := range s.data {
		s.data[i] = c
	}
	s.x, s.y = 0, 0
}

// MoveTo places the cursor at (x, y). Out-of-range coordinates are ignored,
// leaving the cursor where it was.
func (s *Screen) MoveTo(x, y int) {
	if x < Width && y < Height {
		s.x, s.y = x, y
	}
}

// Write renders str into the screen buffer starting at the cursor,
// advancing the cursor as it goes. '\n' moves to column 0 of the next row;
// every other byte is mapped through iso2scr and written at the cursor
// before it advances right.
func (s *Screen) Write(str string) {
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c == '\n' {
			s.x = 0
			s.moveDown()
			continue
		}
		s.data[s.offset(s.x, s.y)] = iso2scr(c)
		s.moveRight()
	}
}

// Poke writes a raw screen code directly to (x, y), bypassing iso2scr. Used
// for the title bar's colour-effect characters, which are not text.
func (s *Screen) Poke(x, y int, value byte) {
	if x < Width && y < Height {
		s.data[s.offset(x, y)] = value
	}
}

// Data returns the screen's raw screen-code bytes, ready to be placed into
// C64 memory at the screen's load page.
func (s *Screen) Data() []byte {
	return s.data[:]
}

func (s *Screen) offset(x, y int) int {
	return x + Width*y
}

func (s *Screen) moveRight() {
	if s.x < Width-1 {
		s.x++
	}
}

func (s *Screen) moveDown() {
	if s.y < Height-1 {
		s.y++
	}
}

// iso8859Decoder folds an ISO-8859-1 byte to its rune before the result is
// looked up in scrtab; every table entry is indexed by Latin-1 code point,
// so this is effectively an identity step that documents the encoding the
// table is keyed by.
var iso8859Decoder = charmap.ISO8859_1.NewDecoder()

// MapChar maps a single ISO-8859-1 byte to the corresponding C64 screen
// code; exported so other packages (the STIL scroll-text formatter) can
// reuse the same table without duplicating it.
func MapChar(c byte) byte {
	return iso2scr(c)
}

// iso2scr maps a single ISO-8859-1 byte to the corresponding C64 screen
// code, per the original's literal scrtab: control codes fold to graphics
// tiles, digits, punctuation and upper-case letters mostly keep their
// codes, lower-case letters map to 0x01-0x1A, and accented Latin-1
// characters fold to their nearest unaccented base letter.
func iso2scr(c byte) byte {
	r, err := iso8859Decoder.Bytes([]byte{c})
	if err != nil || len(r) != 1 {
		return scrtab[c]
	}
	return scrtab[r[0]]
}

// scrtab is the literal 256-entry ISO-8859-1 to C64 screen-code table from
// the original psid64's screen.h.
var scrtab = [256]byte{
	0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87, // 0x00
	0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f, // 0x08
	0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, // 0x10
	0x98, 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e, 0x9f, // 0x18
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, // 0x20  !"#$%&'
	0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f, // 0x28 ()*+,-./
	0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, // 0x30 01234567
	0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f, // 0x38 89:;<=>?
	0x00, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47, // 0x40 @ABCDEFG
	0x48, 0x49, 0x4a, 0x4b, 0x4c, 0x4d, 0x4e, 0x4f, // 0x48 HIJKLMNO
	0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57, // 0x50 PQRSTUVW
	0x58, 0x59, 0x5a, 0x1b, 0xbf, 0x1d, 0x1e, 0x64, // 0x58 XYZ[\]^_
	0x27, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, // 0x60 `abcdefg
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, // 0x68 hijklmno
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, // 0x70 pqrstuvw
	0x18, 0x19, 0x1a, 0x1b, 0x5d, 0x1d, 0x1f, 0x20, // 0x78 xyz{|}~
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, // 0x80
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, // 0x88
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, // 0x90
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, // 0x98
	0x20, 0x21, 0x03, 0x1c, 0xbf, 0x59, 0x5d, 0xbf, // 0xa0
	0x22, 0x43, 0x01, 0x3c, 0xbf, 0x2d, 0x52, 0x63, // 0xa8
	0x0f, 0xbf, 0x32, 0x33, 0x27, 0x15, 0xbf, 0xbf, // 0xb0
	0x2c, 0x31, 0x0f, 0x3e, 0xbf, 0xbf, 0xbf, 0x3f, // 0xb8
	0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x43, // 0xc0
	0x45, 0x45, 0x45, 0x45, 0x49, 0x49, 0x49, 0x49, // 0xc8
	0xbf, 0x4e, 0x4f, 0x4f, 0x4f, 0x4f, 0x4f, 0x18, // 0xd0
	0x4f, 0x55, 0x55, 0x55, 0x55, 0x59, 0xbf, 0xbf, // 0xd8
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x03, // 0xe0
	0x05, 0x05, 0x05, 0x05, 0x09, 0x09, 0x09, 0x09, // 0xe8
	0xbf, 0x0e, 0x0f, 0x0f, 0x0f, 0x0f, 0x0f, 0xbf, // 0xf0
	0x0f, 0x15, 0x15, 0x15, 0x15, 0x19, 0xbf, 0x19, // 0xf8
}
