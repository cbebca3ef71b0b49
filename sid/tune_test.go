package sid_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/sid"
	"psid64/storage"
)

// buildV2Header assembles a minimal valid PSID v2 header followed by data.
func buildV2Header(t *testing.T, magic string, loadAddr, initAddr, playAddr, songs, startSong uint16, data []byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	buf.WriteString(magic)
	binary.Write(buf, binary.BigEndian, uint16(2))  // version
	binary.Write(buf, binary.BigEndian, uint16(124)) // dataOffset
	binary.Write(buf, binary.BigEndian, loadAddr)
	binary.Write(buf, binary.BigEndian, initAddr)
	binary.Write(buf, binary.BigEndian, playAddr)
	binary.Write(buf, binary.BigEndian, songs)
	binary.Write(buf, binary.BigEndian, startSong)
	binary.Write(buf, binary.BigEndian, uint32(0)) // speed
	buf.Write(make([]byte, 32))                    // name
	buf.Write(make([]byte, 32))                    // author
	buf.Write(make([]byte, 32))                    // released
	binary.Write(buf, binary.BigEndian, uint16(0)) // flags
	buf.WriteByte(0)                               // start page
	buf.WriteByte(0)                               // page length
	binary.Write(buf, binary.BigEndian, uint16(0)) // reserved
	buf.Write(data)
	return buf.Bytes()
}

func TestLoadMinimalPSIDv1(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("PSID")
	binary.Write(buf, binary.BigEndian, uint16(1))
	binary.Write(buf, binary.BigEndian, uint16(0x76))
	binary.Write(buf, binary.BigEndian, uint16(0x1000)) // load
	binary.Write(buf, binary.BigEndian, uint16(0))      // init -> derive
	binary.Write(buf, binary.BigEndian, uint16(0))      // play -> none
	binary.Write(buf, binary.BigEndian, uint16(1))      // songs
	binary.Write(buf, binary.BigEndian, uint16(1))      // start song
	binary.Write(buf, binary.BigEndian, uint32(0))      // speed
	buf.Write(make([]byte, 32*3))
	buf.Write([]byte{0x60})

	tune, err := sid.Load(storage.NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	assert.EqualValues(t, 0x1000, tune.LoadAddr)
	assert.EqualValues(t, 0x1000, tune.InitAddr)
	assert.EqualValues(t, 0, tune.PlayAddr)
	assert.EqualValues(t, 1, tune.DataLen)
	assert.Equal(t, byte(0x60), tune.Memory[0x1000])
	assert.Equal(t, sid.CompatibilityPSID, tune.Compatibility)
}

func TestLoadZeroLoadAddrEmbedsInPayload(t *testing.T) {
	data := []byte{0x00, 0x10, 0x60} // load addr 0x1000 little-endian, then one byte
	raw := buildV2Header(t, "PSID", 0, 0, 0, 1, 1, data)

	tune, err := sid.Load(storage.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.EqualValues(t, 0x1000, tune.LoadAddr)
	assert.EqualValues(t, 1, tune.DataLen)
	assert.Equal(t, byte(0x60), tune.Memory[0x1000])
}

func TestLoadRejectsBadMagic(t *testing.T) {
	raw := buildV2Header(t, "XXXX", 0x1000, 0, 0, 1, 1, []byte{0x60})
	_, err := sid.Load(storage.NewReader(bytes.NewReader(raw)))
	require.Error(t, err)
}

func TestLoadRejectsMus(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("PSID")
	binary.Write(buf, binary.BigEndian, uint16(2))
	binary.Write(buf, binary.BigEndian, uint16(124))
	binary.Write(buf, binary.BigEndian, uint16(0x1000))
	binary.Write(buf, binary.BigEndian, uint16(0))
	binary.Write(buf, binary.BigEndian, uint16(0))
	binary.Write(buf, binary.BigEndian, uint16(1))
	binary.Write(buf, binary.BigEndian, uint16(1))
	binary.Write(buf, binary.BigEndian, uint32(0))
	buf.Write(make([]byte, 32*3))
	binary.Write(buf, binary.BigEndian, uint16(0x01)) // MUS flag
	buf.WriteByte(0)
	buf.WriteByte(0)
	binary.Write(buf, binary.BigEndian, uint16(0))
	buf.Write([]byte{0x60})

	_, err := sid.Load(storage.NewReader(bytes.NewReader(buf.Bytes())))
	require.Error(t, err)
}

func TestRSIDBasicCompatibility(t *testing.T) {
	raw := buildV2Header(t, "RSID", 0x0801, 0, 0, 1, 1, []byte{0x00, 0x00})
	tune, err := sid.Load(storage.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, sid.CompatibilityBASIC, tune.Compatibility)
}

func TestRSIDR64Compatibility(t *testing.T) {
	raw := buildV2Header(t, "RSID", 0x1000, 0x1000, 0, 1, 1, []byte{0x60})
	tune, err := sid.Load(storage.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, sid.CompatibilityR64, tune.Compatibility)
}

func TestSongSpeedIsCIA(t *testing.T) {
	tune := &sid.Tune{SpeedBits: 0b101}
	assert.True(t, tune.SongSpeedIsCIA(1))
	assert.False(t, tune.SongSpeedIsCIA(2))
	assert.True(t, tune.SongSpeedIsCIA(3))
	assert.False(t, tune.SongSpeedIsCIA(40))
}
