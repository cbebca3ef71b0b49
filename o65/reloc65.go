// Package o65 implements the subset of the "o65" relocatable object format
// needed to relocate a single text segment to an arbitrary page boundary and
// resolve its undefined external symbols, grounded on xa65's reloc65.
//
// Rules and Definitions
//
//   - All multi-byte header fields are little-endian.
//   - Only mode words with bits 13 and 14 clear are accepted; those bits
//     select object variants (paged or a non-byte-addressable CPU) this
//     converter never produces or consumes.
//   - A relocation table is a byte stream of entries terminated by a zero
//     byte; a 0xFF delta means "advance the cursor 254 without emitting an
//     entry" rather than a real relocation.
package o65

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"psid64/errs"
)

var magic = [5]byte{0x01, 0x00, 0x6f, '6', '5'}

const headerFixedSize = 26 // 9 words + 8 header bytes, per xa65's BUF

// segments, keyed by the low 3 bits of a relocation entry's type/seg byte.
const (
	segExternal = 0
	segText     = 2
	segData     = 3
	segBss      = 4
	segZeroPage = 5
)

const (
	typeWord = 0x80
	typeHigh = 0x40
	typeLow  = 0x20
)

// Externals maps an undefined symbol name to the 16-bit value it resolves
// to in the target image.
type Externals map[string]uint16

// Result carries the relocated text segment plus any diagnostics.
type Result struct {
	Text     []byte
	Warnings []string
}

type header struct {
	mode             uint16
	tbase, tlen      uint16
	dbase, dlen      uint16
	bbase, blen      uint16
	zbase, zlen      uint16
}

// Relocate relocates the text segment of the o65 object obj so that it
// loads at newBase, resolving external references through externals.
// Unresolved externals produce a warning and relocate as if the external
// value were 0.
func Relocate(obj []byte, newBase uint16, externals Externals) (*Result, error) {
	if len(obj) < 5 || [5]byte{obj[0], obj[1], obj[2], obj[3], obj[4]} != magic {
		return nil, errs.New(errs.RelocationFailed, errors.New("bad o65 magic"))
	}
	if len(obj) < headerFixedSize {
		return nil, errs.New(errs.RelocationFailed, errors.New("truncated o65 header"))
	}

	h := header{
		mode:  binary.LittleEndian.Uint16(obj[6:8]),
		tbase: binary.LittleEndian.Uint16(obj[8:10]),
		tlen:  binary.LittleEndian.Uint16(obj[10:12]),
		dbase: binary.LittleEndian.Uint16(obj[12:14]),
		dlen:  binary.LittleEndian.Uint16(obj[14:16]),
		bbase: binary.LittleEndian.Uint16(obj[16:18]),
		blen:  binary.LittleEndian.Uint16(obj[18:20]),
		zbase: binary.LittleEndian.Uint16(obj[20:22]),
		zlen:  binary.LittleEndian.Uint16(obj[22:24]),
	}
	if h.mode&0x2000 != 0 || h.mode&0x4000 != 0 {
		return nil, errs.New(errs.RelocationFailed, errors.Errorf("unsupported o65 mode 0x%04x", h.mode))
	}

	optLen, err := readOptions(obj[headerFixedSize:])
	if err != nil {
		return nil, errs.New(errs.RelocationFailed, errors.Wrap(err, "reading option block"))
	}

	pos := headerFixedSize + optLen
	if pos+int(h.tlen)+int(h.dlen) > len(obj) {
		return nil, errs.New(errs.RelocationFailed, errors.New("truncated o65 segments"))
	}
	text := append([]byte(nil), obj[pos:pos+int(h.tlen)]...)
	pos += int(h.tlen)
	data := append([]byte(nil), obj[pos:pos+int(h.dlen)]...)
	pos += int(h.dlen)

	names, n, err := readUndefined(obj[pos:])
	if err != nil {
		return nil, errs.New(errs.RelocationFailed, errors.Wrap(err, "reading undefined symbol table"))
	}
	pos += n

	tdiff := int(newBase) - int(h.tbase)
	segDelta := func(seg int) int {
		switch seg {
		case segText:
			return tdiff
		default:
			// Data, bss and zero-page segments are never relocated by this
			// converter: their base stays put, so their delta is zero.
			return 0
		}
	}

	var warnings []string
	resolve := func(name string) int {
		if v, ok := externals[name]; ok {
			return int(v)
		}
		warnings = append(warnings, "unresolved external symbol: "+name)
		return 0
	}

	textConsumed, err := applyRelocations(text, obj[pos:], names, segDelta, resolve)
	if err != nil {
		return nil, errs.New(errs.RelocationFailed, errors.Wrap(err, "relocating text segment"))
	}
	pos += textConsumed

	dataConsumed, err := applyRelocations(data, obj[pos:], names, segDelta, resolve)
	if err != nil {
		return nil, errs.New(errs.RelocationFailed, errors.Wrap(err, "relocating data segment"))
	}
	pos += dataConsumed

	// The exported-globals table follows; this converter never resolves
	// symbols exported by the driver, so it is intentionally left unparsed.
	_ = pos

	return &Result{Text: text, Warnings: warnings}, nil
}

// readOptions returns the length, including the terminating zero byte, of
// the variable-length option block starting at buf[0].
func readOptions(buf []byte) (int, error) {
	l := 0
	for {
		if l >= len(buf) {
			return 0, errors.New("option block runs past end of object")
		}
		c := int(buf[l])
		if c == 0 {
			return l + 1, nil
		}
		l += c
	}
}

// readUndefined parses the undefined-symbol table: a 16-bit count followed
// by that many NUL-terminated names. It returns the names and the number of
// bytes consumed.
func readUndefined(buf []byte) ([]string, int, error) {
	if len(buf) < 2 {
		return nil, 0, errors.New("truncated undefined symbol count")
	}
	n := int(binary.LittleEndian.Uint16(buf))
	pos := 2
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := pos
		for {
			if pos >= len(buf) {
				return nil, 0, errors.New("truncated undefined symbol name")
			}
			if buf[pos] == 0 {
				break
			}
			pos++
		}
		names = append(names, string(buf[start:pos]))
		pos++ // NUL terminator
	}
	return names, pos, nil
}

// applyRelocations walks one relocation table, patching buf in place, and
// returns the number of bytes consumed from tab (including its terminating
// zero byte).
func applyRelocations(buf, tab []byte, names []string, segDelta func(int) int, resolve func(string) int) (int, error) {
	addr := -1
	pos := 0

	for {
		if pos >= len(tab) {
			return 0, errors.New("truncated relocation table")
		}
		step := tab[pos]
		pos++
		if step == 0 {
			return pos, nil
		}
		if step == 0xFF {
			addr += 254
			continue
		}
		addr += int(step)

		if pos >= len(tab) {
			return 0, errors.New("truncated relocation entry")
		}
		typeSeg := tab[pos]
		pos++
		typ := int(typeSeg) & 0xE0
		seg := int(typeSeg) & 0x07

		var external int
		if seg == segExternal {
			if pos+2 > len(tab) {
				return 0, errors.New("truncated external name index")
			}
			idx := int(binary.LittleEndian.Uint16(tab[pos : pos+2]))
			pos += 2
			if idx < 0 || idx >= len(names) {
				return 0, errors.New("external name index out of range")
			}
			external = resolve(names[idx])
		}

		delta := 0
		if seg != segExternal {
			delta = segDelta(seg)
		} else {
			delta = external
		}

		if err := patch(buf, addr, typ, delta, &pos, tab); err != nil {
			return 0, err
		}
	}
}

// patch applies a single relocation entry to buf at addr. For type 0x40
// entries it also consumes one extra byte from tab: the low byte of the
// original address, which the text/data segment itself never stores.
func patch(buf []byte, addr, typ, delta int, pos *int, tab []byte) error {
	switch typ {
	case typeWord:
		if addr+1 >= len(buf) {
			return errors.New("relocation address past end of segment")
		}
		old := int(buf[addr]) | int(buf[addr+1])<<8
		n := old + delta
		buf[addr] = byte(n)
		buf[addr+1] = byte(n >> 8)
	case typeHigh:
		if *pos >= len(tab) {
			return errors.New("truncated high-byte relocation")
		}
		low := tab[*pos]
		*pos++
		if addr >= len(buf) {
			return errors.New("relocation address past end of segment")
		}
		old := int(buf[addr])<<8 | int(low)
		n := old + delta
		buf[addr] = byte(n >> 8)
	case typeLow:
		if addr >= len(buf) {
			return errors.New("relocation address past end of segment")
		}
		old := int(buf[addr])
		n := old + delta
		buf[addr] = byte(n)
	default:
		return errors.Errorf("unknown relocation type 0x%02x", typ)
	}
	return nil
}
