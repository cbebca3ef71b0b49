package stil_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psid64/stil"
)

type fakeProvider struct {
	global, entry, bug string
	critical           bool
	errStr             string
}

func (p *fakeProvider) SetBaseDir(string) error { return nil }
func (p *fakeProvider) GetGlobalComment(string) (string, error) {
	return p.global, nil
}
func (p *fakeProvider) GetEntry(string) (string, error) { return p.entry, nil }
func (p *fakeProvider) GetBug(string) (string, error)   { return p.bug, nil }
func (p *fakeProvider) HasCriticalError() bool          { return p.critical }
func (p *fakeProvider) ErrorString() string             { return p.errStr }

func TestFormatCollapsesWhitespace(t *testing.T) {
	p := &fakeProvider{entry: "  hello   world  \n\n"}
	out, err := stil.Format(p, "/MUSICIANS/H/Hermans_Rob/test.sid", false)
	require.NoError(t, err)

	leading := out[:stil.EotSpaces-1]
	for _, b := range leading {
		assert.Equal(t, byte(0x20), b)
	}
	assert.Equal(t, byte(stil.EndOfText), out[len(out)-1])
	// EotSpaces-1 lead-in, then " hello world" with each run folded to one space
	assert.Len(t, out, stil.EotSpaces-1+len(" hello world")+1)
}

func TestFormatReturnsNilForBlankText(t *testing.T) {
	p := &fakeProvider{entry: "   \n\n  "}
	out, err := stil.Format(p, "/x.sid", false)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFormatSkipsGlobalCommentUnlessRequested(t *testing.T) {
	p := &fakeProvider{global: "GLOBAL", entry: ""}
	out, err := stil.Format(p, "/x.sid", false)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFormatPropagatesCriticalError(t *testing.T) {
	p := &fakeProvider{critical: true, errStr: "boom"}
	_, err := stil.Format(p, "/x.sid", false)
	require.Error(t, err)
}

func TestFileProviderParsesStilDatabase(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/hvsc/DOCUMENTS", 0o755))
	content := "/MUSICIANS/H/Hermans_Rob/Test.sid\n   NAME: Test Tune\n\n"
	require.NoError(t, afero.WriteFile(fs, "/hvsc/DOCUMENTS/STIL.txt", []byte(content), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/hvsc/DOCUMENTS/BUGlist.txt", []byte(""), 0o644))

	p := stil.NewFileProvider(fs)
	require.NoError(t, p.SetBaseDir("/hvsc"))

	entry, err := p.GetEntry("/MUSICIANS/H/Hermans_Rob/Test.sid")
	require.NoError(t, err)
	assert.Contains(t, entry, "NAME: Test Tune")
}
