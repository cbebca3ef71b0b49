// Package placer finds free space in the C64 memory map for the relocated
// driver, screen and character-set copy, grounded on the original psid64's
// findFreeSpace.
//
// Rules and Definitions
//
//   - Every size is in 256-byte pages; page N covers C64 addresses
//     [N*0x100, N*0x100+0xFF].
//   - The driver takes priority over the screen: a screen is only placed if
//     a big enough driver location is also found nearby.
//   - Placement never touches the zero page/stack ($0000-$03FF), the BASIC
//     ROM/cartridge area ($A000-$BFFF) or the I/O/Kernal area ($D000-$FFFF);
//     a relocation window in the tune's header that overlaps any of them is
//     rejected.
package placer

import (
	"github.com/pkg/errors"

	"psid64/errs"
	"psid64/sid"
)

const (
	// MaxPages is the number of 256-byte pages in a C64 address space.
	MaxPages = 256

	// NumMinDrvPages is the driver's footprint with no screen display.
	NumMinDrvPages = 2
	// NumExtDrvPages is the driver's footprint with a screen display, per
	// the revision that grew the extended driver from 4 to 5 pages.
	NumExtDrvPages = 5
	// NumScreenPages is the size of a C64 text screen in pages.
	NumScreenPages = 4
	// NumCharPages is the size of a character set in pages.
	NumCharPages = 8
)

// Placement is where the converter decided to put each relocatable piece.
// A zero page number means that piece was not placed.
type Placement struct {
	DriverPage uint8
	ScreenPage uint8
	CharPage   uint8
	StilPage   uint8
}

// Place finds free space for the driver, the screen and (if the screen was
// placed) a character-set copy, and if stilPages is non-zero, space for the
// STIL text too. tune's relocation window (or, if unset, the tune's own
// load image and the memory areas reserved for zero page/stack, BASIC ROM
// and I/O/Kernal) constrains where anything may go.
func Place(tune *sid.Tune, stilPages uint8) (*Placement, error) {
	pages, err := usedPages(tune)
	if err != nil {
		return nil, err
	}

	for i := 0; i < 4; i++ {
		// VIC bank offset. Screens in banks 1 and 3 require a character
		// ROM copy in RAM; swapping banks 1 and 2 checks 0 and 2 (which
		// need no copy) before 1 and 3.
		bankIndex := i
		if (i&1)^(i>>1) != 0 {
			bankIndex = i ^ 3
		}
		bank := uint8(bankIndex << 6)

		for j := uint8(0); j < 0x40; j += 4 {
			if bank&0x40 == 0 && j >= 0x10 && j < 0x20 {
				// screen may not reside in the char ROM mirror area
				continue
			}

			scr := bank + j
			if pages[scr] || pages[scr+1] || pages[scr+2] || pages[scr+3] {
				continue
			}

			if bank&0x40 != 0 {
				for k := uint8(0); k < 0x40; k += 8 {
					if k == j&0x38 {
						continue
					}
					chars := bank + k
					if anyUsed(pages, chars, NumCharPages) {
						continue
					}
					if driver := findDriverSpace(pages, scr, chars, NumExtDrvPages); driver != 0 {
						p := &Placement{DriverPage: driver, ScreenPage: scr, CharPage: chars}
						if stilPages != 0 {
							p.StilPage = findStilSpace(pages, scr, chars, driver, stilPages)
						}
						return p, nil
					}
				}
			} else {
				if driver := findDriverSpace(pages, scr, 0, NumExtDrvPages); driver != 0 {
					p := &Placement{DriverPage: driver, ScreenPage: scr}
					if stilPages != 0 {
						p.StilPage = findStilSpace(pages, scr, 0, driver, stilPages)
					}
					return p, nil
				}
			}
		}
	}

	driver := findDriverSpace(pages, 0, 0, NumMinDrvPages)
	if driver == 0 {
		return nil, errs.New(errs.NotEnoughMemory, errors.New("no free space for the driver"))
	}
	return &Placement{DriverPage: driver}, nil
}

// usedPages builds the 256-entry used/free page bitmap, true meaning used.
func usedPages(tune *sid.Tune) ([MaxPages]bool, error) {
	var pages [MaxPages]bool

	startp := int(tune.RelocStartPage)
	maxp := int(tune.RelocPages)

	switch {
	case startp == 0x00:
		loadStart := tune.LoadAddr >> 8
		loadEnd := (int(tune.LoadAddr) + tune.DataLen - 1) >> 8

		ranges := [][2]int{
			{0x00, 0x03},
			{0xa0, 0xbf},
			{0xd0, 0xff},
			{int(loadStart), loadEnd},
		}
		for _, r := range ranges {
			for p := r[0]; p <= r[1] && p < MaxPages; p++ {
				pages[p] = true
			}
		}

	case startp != 0xff && maxp != 0:
		endp := startp + maxp
		if endp > MaxPages {
			endp = MaxPages
		}
		for p := startp; p < endp; p++ {
			if p < 0x04 || (p >= 0xa0 && p <= 0xbf) || p >= 0xd0 {
				return pages, errs.New(errs.NotEnoughMemory, errors.New("relocation window overlaps a reserved memory area"))
			}
		}
		for p := 0; p < MaxPages; p++ {
			pages[p] = !(p >= startp && p < endp)
		}

	default:
		return pages, errs.New(errs.NotEnoughMemory, errors.New("no pages available for relocation"))
	}

	return pages, nil
}

func anyUsed(pages [MaxPages]bool, start uint8, count int) bool {
	for i := 0; i < count; i++ {
		if pages[int(start)+i] {
			return true
		}
	}
	return false
}

// findDriverSpace returns the first page of a run of size free pages, also
// avoiding the screen and character-set areas already claimed at scr/chars.
// It returns 0 if no such run exists.
func findDriverSpace(pages [MaxPages]bool, scr, chars uint8, size int) uint8 {
	firstPage := 0
	for i := 0; i < MaxPages; i++ {
		blocked := pages[i] ||
			(scr != 0 && int(scr) <= i && i < int(scr)+NumScreenPages) ||
			(chars != 0 && int(chars) <= i && i < int(chars)+NumCharPages)
		if blocked {
			if i-firstPage >= size {
				return uint8(firstPage)
			}
			firstPage = i + 1
		}
	}
	return 0
}

// findStilSpace returns the first page of a run of size free pages, also
// avoiding the screen, character-set and driver areas already claimed. It
// returns 0 if no such run exists.
func findStilSpace(pages [MaxPages]bool, scr, chars, driver uint8, size uint8) uint8 {
	firstPage := 0
	for i := 0; i < MaxPages; i++ {
		blocked := pages[i] ||
			(scr != 0 && int(scr) <= i && i < int(scr)+NumScreenPages) ||
			(chars != 0 && int(chars) <= i && i < int(chars)+NumCharPages) ||
			(int(driver) <= i && i < int(driver)+NumExtDrvPages)
		if blocked {
			if i-firstPage >= int(size) {
				return uint8(firstPage)
			}
			firstPage = i + 1
		}
	}
	return 0
}
