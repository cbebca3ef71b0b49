// Package stil formats SID Tune Information List text into the C64 scroll
// text the driver displays, grounded on the original psid64's
// formatStilText.
//
// Rules and Definitions
//
//   - Provider is the HVSC STIL database lookup itself; this package only
//     formats whatever text a Provider returns.
//   - Runs of whitespace collapse to a single space, and the result is
//     prefixed with EotSpaces-1 leading spaces so the color effect reaches
//     the end of the line before the scrolling text starts, matching the
//     revision of the original that widened this gap from 5 to 10 spaces.
//   - A message containing no graphical character produces no STIL text
//     at all, not an empty scroll of spaces.
package stil

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"psid64/errs"
	"psid64/screen"
)

// EotSpaces is the number of lead-in space screen codes written before the
// STIL text itself, matching the revision that widened the original's gap
// of 5 spaces to 10.
const EotSpaces = 10

// EndOfText is the sentinel byte the driver scans for to stop scrolling.
const EndOfText = 0xff

// Provider looks up STIL/bug database entries for one HVSC-relative file
// path; SetBaseDir anchors path resolution at the HVSC root.
type Provider interface {
	SetBaseDir(root string) error
	GetGlobalComment(hvscPath string) (string, error)
	GetEntry(hvscPath string) (string, error)
	GetBug(hvscPath string) (string, error)
	HasCriticalError() bool
	ErrorString() string
}

// Format looks up hvscPath's STIL text (global comment, entry and bug
// report, in that order, with globalComment skipped unless
// useGlobalComment is set), collapses its whitespace, maps it through the
// C64 screen-code table and appends the end-of-text marker. It returns nil
// with no error when there is nothing to show.
func Format(p Provider, hvscPath string, useGlobalComment bool) ([]byte, error) {
	var sb strings.Builder

	if !p.HasCriticalError() && useGlobalComment {
		comment, err := p.GetGlobalComment(hvscPath)
		if err != nil {
			return nil, errs.New(errs.StilError, errors.Wrap(err, "reading global comment"))
		}
		sb.WriteString(comment)
	}
	if !p.HasCriticalError() {
		entry, err := p.GetEntry(hvscPath)
		if err != nil {
			return nil, errs.New(errs.StilError, errors.Wrap(err, "reading STIL entry"))
		}
		sb.WriteString(entry)
	}
	if !p.HasCriticalError() {
		bug, err := p.GetBug(hvscPath)
		if err != nil {
			return nil, errs.New(errs.StilError, errors.Wrap(err, "reading bug entry"))
		}
		sb.WriteString(bug)
	}
	if p.HasCriticalError() {
		return nil, errs.New(errs.StilError, errors.New(p.ErrorString()))
	}

	return collapse(sb.String()), nil
}

// collapse folds runs of whitespace to a single space, maps the result
// through the C64 screen-code table, and prepends the lead-in spaces and
// appends the end-of-text marker. It returns nil if the source contained
// no graphical character at all.
func collapse(s string) []byte {
	var out []byte
	for i := 0; i < EotSpaces-1; i++ {
		out = append(out, screen.MapChar(' '))
	}

	space := true
	realText := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			out = append(out, screen.MapChar(' '))
			space = false
		}
		if r > 0xff {
			r = '?'
		}
		out = append(out, screen.MapChar(byte(r)))
		realText = true
	}

	if !realText {
		return nil
	}
	return append(out, EndOfText)
}
