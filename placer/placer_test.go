package placer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/placer"
	"psid64/sid"
)

func TestPlaceFindsScreenAndDriverInBank0(t *testing.T) {
	tune := &sid.Tune{LoadAddr: 0x1000, DataLen: 0x100}
	p, err := placer.Place(tune, 0)
	require.NoError(t, err)
	assert.NotZero(t, p.ScreenPage)
	assert.NotZero(t, p.DriverPage)
	assert.Zero(t, p.CharPage)
}

func TestPlaceFallsBackToDriverOnlyWhenMemoryTight(t *testing.T) {
	// Reserve every page except a tiny window around the minimal driver
	// footprint: the relocation window covers only two pages, too small
	// for a screen but big enough for NumMinDrvPages.
	tune := &sid.Tune{
		LoadAddr:       0x1000,
		DataLen:        1,
		RelocStartPage: 0x40,
		RelocPages:     placer.NumMinDrvPages,
	}
	p, err := placer.Place(tune, 0)
	require.NoError(t, err)
	assert.NotZero(t, p.DriverPage)
	assert.Zero(t, p.ScreenPage)
}

func TestPlaceErrorsWhenRelocWindowOverlapsReservedArea(t *testing.T) {
	tune := &sid.Tune{
		LoadAddr:       0x1000,
		DataLen:        1,
		RelocStartPage: 0x02,
		RelocPages:     4,
	}
	_, err := placer.Place(tune, 0)
	require.Error(t, err)
}

func TestPlaceErrorsWhenNoPagesAvailable(t *testing.T) {
	tune := &sid.Tune{
		LoadAddr:       0x1000,
		DataLen:        1,
		RelocStartPage: 0xff,
	}
	_, err := placer.Place(tune, 0)
	require.Error(t, err)
}
