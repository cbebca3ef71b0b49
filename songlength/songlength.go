// Package songlength reads the HVSC Songlengths.md5 database, an
// informational-only lookup of how long each subtune of a known PSID/RSID
// plays before it should loop or stop. Nothing in the conversion pipeline
// consults it; it exists purely so a caller (the CLI, in --verbose mode)
// can report expected play times alongside a converted tune.
package songlength

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Database is a parsed Songlengths.md5 file: tune content hash to the list
// of per-subtune durations, in subtune order.
type Database struct {
	durations map[string][]time.Duration
}

// Load reads and parses the Songlengths.md5 file at path.
func Load(fs afero.Fs, path string) (*Database, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening song length database")
	}
	defer f.Close()

	db := &Database{durations: map[string][]time.Duration{}}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "[") {
			continue
		}
		hash, rest, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		hash = strings.ToLower(strings.TrimSpace(hash))
		var durs []time.Duration
		for _, field := range strings.Fields(rest) {
			d, ok := parseDuration(field)
			if !ok {
				continue
			}
			durs = append(durs, d)
		}
		if len(durs) > 0 {
			db.durations[hash] = durs
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading song length database")
	}
	return db, nil
}

// parseDuration parses one "m:ss" or "m:ss.mmm" field, dropping a trailing
// "(!)" or similar loop-point annotation the database sometimes carries.
func parseDuration(field string) (time.Duration, bool) {
	field = strings.TrimSpace(strings.SplitN(field, "(", 2)[0])
	minSec := strings.SplitN(field, ":", 2)
	if len(minSec) != 2 {
		return 0, false
	}
	minutes, err := strconv.Atoi(minSec[0])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(minSec[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second)), true
}

// Lengths returns the per-subtune durations recorded for data, the exact
// PSID/RSID file bytes as loaded from disk, or nil if the tune is not in
// the database. The HVSC keys its database by the MD5 of the file with its
// final two reserved header bytes zeroed; callers pass the original,
// unmodified file bytes and Lengths accounts for that itself.
func (db *Database) Lengths(data []byte) []time.Duration {
	return db.durations[hashKey(data)]
}

// hashKey reproduces the HVSC's MD5 key: the whole file, except PSID v2+
// headers have their two reserved bytes (following relocStartPage/
// relocPages) zeroed before hashing, since those bytes are not considered
// part of a tune's identity.
func hashKey(data []byte) string {
	buf := append([]byte(nil), data...)
	const reservedOffset = 0x7a // v2 header: flags at 0x76, startPage 0x78, pageLength 0x79
	isV2 := len(buf) >= 6 && (int(buf[4])<<8|int(buf[5])) >= 2
	if len(buf) >= reservedOffset+2 && isV2 && (string(buf[0:4]) == "PSID" || string(buf[0:4]) == "RSID") {
		buf[reservedOffset] = 0
		buf[reservedOffset+1] = 0
	}
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}
