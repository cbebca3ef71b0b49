package songlength_test

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/songlength"
)

func TestLoadParsesDurations(t *testing.T) {
	data := []byte("RSID dummy tune bytes")
	hash := md5.Sum(data)
	content := "; HVSC Songlengths\n[Database]\n" + hex.EncodeToString(hash[:]) + "=2:08 1:30.500\n"

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/Songlengths.md5", []byte(content), 0o644))

	db, err := songlength.Load(fs, "/Songlengths.md5")
	require.NoError(t, err)

	got := db.Lengths(data)
	require.Len(t, got, 2)
	assert.Equal(t, 2*time.Minute+8*time.Second, got[0])
	assert.Equal(t, time.Minute+30*time.Second+500*time.Millisecond, got[1])
}

func TestLengthsReturnsNilForUnknownTune(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/Songlengths.md5", []byte(""), 0o644))

	db, err := songlength.Load(fs, "/Songlengths.md5")
	require.NoError(t, err)
	assert.Nil(t, db.Lengths([]byte("unknown")))
}

func TestLoadSkipsCommentsAndSections(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "; comment\n[Database]\n\nnotahash\n"
	require.NoError(t, afero.WriteFile(fs, "/Songlengths.md5", []byte(content), 0o644))

	db, err := songlength.Load(fs, "/Songlengths.md5")
	require.NoError(t, err)
	assert.Empty(t, db.Lengths([]byte("x")))
}
