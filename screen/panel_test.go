package screen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"psid64/screen"
	"psid64/sid"
)

func TestDrawTitleLine(t *testing.T) {
	s := screen.New()
	tune := &sid.Tune{Name: "Test Tune", Author: "Someone", Released: "2024", Songs: 1, Compatibility: sid.CompatibilityPSID}
	screen.Draw(s, tune)

	// title bar colour-effect poke survives the write of the banner text.
	assert.Equal(t, byte(0x70), s.Data()[4+0*screen.Width])
}

func TestDrawFooterLine(t *testing.T) {
	s := screen.New()
	tune := &sid.Tune{Songs: 1, Compatibility: sid.CompatibilityPSID}
	screen.Draw(s, tune)

	// "W" of "Website" screen-codes to 0x57 at column 1, row 24.
	assert.Equal(t, byte(0x57), s.Data()[1+24*screen.Width])
}

func TestSongNumOffsetSingleSongIsZero(t *testing.T) {
	assert.Equal(t, 0, screen.SongNumOffset(1))
}

func TestSongNumOffsetMultiDigitAdjusts(t *testing.T) {
	base := 10*screen.Width + 24
	assert.Equal(t, base+1, screen.SongNumOffset(15))
	assert.Equal(t, base+2, screen.SongNumOffset(100))
}
