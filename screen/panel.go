package screen

import (
	"fmt"

	"psid64/sid"
)

// Version is the banner version string the title line advertises.
const Version = "4.0"

// Draw renders the tune's information panel onto s, in the exact layout of
// the original converter's title bar, field block and flashing footer.
func Draw(s *Screen, tune *sid.Tune) {
	s.Clear()

	s.MoveTo(5, 1)
	s.Write(fmt.Sprintf("PSID64 v%s by Roland Hermans!", Version))

	// characters for the title bar's colour-line effect
	s.Poke(4, 0, 0x70)
	s.Poke(35, 0, 0x6e)
	s.Poke(4, 1, 0x5d)
	s.Poke(35, 1, 0x5d)
	s.Poke(4, 2, 0x6d)
	s.Poke(35, 2, 0x7d)
	for i := 0; i < 30; i++ {
		s.Poke(5+i, 0, 0x40)
		s.Poke(5+i, 2, 0x40)
	}

	s.MoveTo(0, 4)
	s.Write("Name   : ")
	s.Write(truncate(tune.Name, 31))

	s.Write("\nAuthor : ")
	s.Write(truncate(tune.Author, 31))

	s.Write("\nRelease: ")
	s.Write(truncate(tune.Released, 31))

	s.Write("\nLoad   : $")
	s.Write(toHexWord(tune.LoadAddr))
	s.Write("-$")
	s.Write(toHexWord(tune.LoadAddr + uint16(tune.DataLen)))

	s.Write("\nInit   : $")
	s.Write(toHexWord(tune.InitAddr))

	s.Write("\nPlay   : ")
	if tune.PlayAddr != 0 {
		s.Write("$")
		s.Write(toHexWord(tune.PlayAddr))
	} else {
		s.Write("N/A")
	}

	s.Write("\nTunes  : ")
	s.Write(fmt.Sprintf("%d", tune.Songs))
	if tune.Songs > 1 {
		s.Write(" (now playing")
	}

	hasFlags := false
	addFlag := func(name string) {
		if hasFlags {
			s.Write(", ")
		} else {
			hasFlags = true
		}
		s.Write(name)
	}

	s.Write("\nFlags  : ")
	if tune.Compatibility == sid.CompatibilityPSID {
		addFlag("PlaySID")
	}
	switch tune.ClockSpeed {
	case sid.ClockPAL:
		addFlag("PAL")
	case sid.ClockNTSC:
		addFlag("NTSC")
	case sid.ClockAny:
		addFlag("PAL/NTSC")
	}
	switch tune.SIDModel {
	case sid.SIDModel6581:
		addFlag("6581")
	case sid.SIDModel8580:
		addFlag("8580")
	case sid.SIDModelAny:
		addFlag("6581/8580")
	}
	if !hasFlags {
		s.Write("-")
	}
	s.Write("\nClock  :   :  :")

	s.Write("\n\nThis is an experimental PSID player that\n" +
		"supports the PSID V2 NG standard. The\n" +
		"driver and screen are relocated based on\n" +
		"information stored inside the PSID.")

	// flashing bottom line (exactly 38 characters)
	s.MoveTo(1, 24)
	s.Write("Website: http://psid64.sourceforge.net")
}

// SongNumOffset returns the screen-buffer offset the driver pokes the
// currently playing subtune number into, or 0 when the tune has only one
// song and no indicator is drawn.
func SongNumOffset(songs uint16) int {
	if songs <= 1 {
		return 0
	}
	offset := 10*Width + 24
	if songs >= 100 {
		offset++
	}
	if songs >= 10 {
		offset++
	}
	return offset
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func toHexWord(v uint16) string {
	return fmt.Sprintf("%04X", v)
}
