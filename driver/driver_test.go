package driver_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/driver"
	"psid64/placer"
	"psid64/sid"
)

// buildDriverObject assembles a minimal o65 object with a text segment of
// the given size and no relocations, standing in for the assembled
// psiddrv/psidextdrv binary.
func buildDriverObject(t *testing.T, tbase uint16, size int) []byte {
	t.Helper()
	le := func(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }

	buf := []byte{0x01, 0x00, 0x6f, '6', '5'}
	buf = append(buf, 0)    // version
	buf = append(buf, 0, 0) // mode
	buf = append(buf, le(tbase)...)
	buf = append(buf, le(uint16(size))...)
	buf = append(buf, le(0)...) // dbase
	buf = append(buf, le(0)...) // dlen
	buf = append(buf, le(0)...) // bbase
	buf = append(buf, le(0)...) // blen
	buf = append(buf, le(0)...) // zbase
	buf = append(buf, le(0)...) // zlen
	buf = append(buf, le(0)...) // stack
	buf = append(buf, 0)        // option block terminator
	buf = append(buf, make([]byte, size)...)
	buf = append(buf, le(0)...) // undefined symbol count 0
	buf = append(buf, 0)        // text relocation table: empty
	buf = append(buf, 0)        // data relocation table: empty
	buf = append(buf, le(0)...) // exported globals: count 0
	return buf
}

func TestPatchWritesEntryPoints(t *testing.T) {
	obj := buildDriverObject(t, 0x1000, 32)
	tune := &sid.Tune{InitAddr: 0x1000, PlayAddr: 0x1003, Songs: 1, LoadAddr: 0x1000, Compatibility: sid.CompatibilityPSID}
	placement := &placer.Placement{DriverPage: 0x10}

	res, err := driver.Patch(obj, tune, placement)
	require.NoError(t, err)
	assert.Equal(t, byte(0x4c), res.Text[6])
	assert.Equal(t, byte(0x4c), res.Text[9])
	assert.Equal(t, byte(1), res.Text[12])
}

func TestPatchNoPlayAddrWritesRTS(t *testing.T) {
	obj := buildDriverObject(t, 0x1000, 32)
	tune := &sid.Tune{InitAddr: 0x1000, PlayAddr: 0, Songs: 1, LoadAddr: 0x1000}
	placement := &placer.Placement{DriverPage: 0x10}

	res, err := driver.Patch(obj, tune, placement)
	require.NoError(t, err)
	assert.Equal(t, byte(0x60), res.Text[9])
}

func TestPatchAppendsStilPageWhenScreenPresent(t *testing.T) {
	obj := buildDriverObject(t, 0x1000, 33)
	tune := &sid.Tune{InitAddr: 0x1000, PlayAddr: 0, Songs: 1, LoadAddr: 0x1000}
	placement := &placer.Placement{DriverPage: 0x10, ScreenPage: 0x20, StilPage: 0x30}

	res, err := driver.Patch(obj, tune, placement)
	require.NoError(t, err)
	assert.Equal(t, byte(0x30), res.Text[20])
}

func TestPatchErrorsWhenObjectTooSmall(t *testing.T) {
	obj := buildDriverObject(t, 0x1000, 4)
	tune := &sid.Tune{InitAddr: 0x1000, Songs: 1}
	placement := &placer.Placement{DriverPage: 0x10}

	_, err := driver.Patch(obj, tune, placement)
	require.Error(t, err)
}
