// Package exo implements the Compressor collaborator that shrinks a
// finished .prg image before it is written out, standing in for the
// original psid64's Exomizer integration.
//
// Rules and Definitions
//
//   - Exomizer's self-extracting 6502 stub format is not reproduced; a
//     Compressor only needs to be a total, reversible byte transform, not
//     a byte-identical Exomizer implementation.
//   - loadAddr/startAddr are carried through for collaborators that do
//     need to embed them in a decompression stub; FlateCompressor ignores
//     them, since raw DEFLATE carries no self-extracting stub at all.
package exo

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"psid64/errs"
)

// Compressor shrinks a program image. loadAddr is the image's own load
// address and startAddr is the address execution resumes at after
// decompression; most implementations never need them, but they are part
// of the interface because a self-extracting stub does.
type Compressor interface {
	Compress(data []byte, loadAddr, startAddr uint16) ([]byte, error)
}

// FlateCompressor implements Compressor with stdlib-adjacent DEFLATE via
// klauspost/compress, a drop-in, allocation-light replacement for
// compress/flate used as the concrete compression transform in place of
// Exomizer's bespoke 6502 decompressor.
type FlateCompressor struct {
	// Level is the flate compression level; zero selects
	// flate.DefaultCompression.
	Level int
}

// Compress deflates data at Level, ignoring loadAddr/startAddr.
func (c FlateCompressor) Compress(data []byte, loadAddr, startAddr uint16) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, errs.New(errs.CompressionFailed, errors.Wrap(err, "creating flate writer"))
	}
	if _, err := w.Write(data); err != nil {
		return nil, errs.New(errs.CompressionFailed, errors.Wrap(err, "writing compressed data"))
	}
	if err := w.Close(); err != nil {
		return nil, errs.New(errs.CompressionFailed, errors.Wrap(err, "closing flate writer"))
	}
	return buf.Bytes(), nil
}

// Decompress reverses a FlateCompressor.Compress call; it exists so the
// round trip is independently testable without a C64 emulator.
func Decompress(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.CompressionFailed, errors.Wrap(err, "reading decompressed data"))
	}
	return out, nil
}
