package screen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/screen"
)

func TestNewIsBlank(t *testing.T) {
	s := screen.New()
	data := s.Data()
	require.Len(t, data, screen.Size)
	for _, b := range data {
		assert.Equal(t, byte(0x20), b)
	}
}

func TestWriteMapsPrintableAscii(t *testing.T) {
	s := screen.New()
	s.MoveTo(0, 0)
	s.Write("A")
	assert.Equal(t, byte(0x41), s.Data()[0])
}

func TestWriteNewlineMovesToNextRow(t *testing.T) {
	s := screen.New()
	s.MoveTo(5, 0)
	s.Write("\nX")
	assert.Equal(t, byte(0x58), s.Data()[screen.Width])
}

func TestWriteClampsAtRightEdge(t *testing.T) {
	s := screen.New()
	s.MoveTo(screen.Width-1, 0)
	s.Write("AB")
	assert.Equal(t, byte(0x42), s.Data()[screen.Width-1])
}

func TestPokeBypassesMapping(t *testing.T) {
	s := screen.New()
	s.Poke(4, 0, 0x70)
	assert.Equal(t, byte(0x70), s.Data()[4])
}

func TestMoveToIgnoresOutOfRange(t *testing.T) {
	s := screen.New()
	s.MoveTo(5, 5)
	s.MoveTo(screen.Width, 0)
	s.Write("Z")
	assert.Equal(t, byte(0x5a), s.Data()[5+screen.Width*5])
}

func TestControlCharactersFoldToGraphicsTiles(t *testing.T) {
	s := screen.New()
	s.MoveTo(0, 0)
	s.Write("\x01")
	assert.Equal(t, byte(0x81), s.Data()[0])
}
