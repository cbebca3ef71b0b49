// Package psid64 converts a PSID/RSID tune into a self-contained C64 .prg
// program, wiring together the tune loader, memory placer, driver
// relocator, screen renderer, STIL formatter, bootstrap assembler and an
// optional compressor. It is the Go counterpart of the original psid64
// command's Psid64 class.
package psid64

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"psid64/boot"
	"psid64/driver"
	"psid64/errs"
	"psid64/exo"
	"psid64/placer"
	"psid64/screen"
	"psid64/sid"
	"psid64/stil"
	"psid64/storage"
)

// basicLoadAddr is the fixed C64 address every bootstrapper (and every bare
// BASIC program) loads at: the start of BASIC's program text area.
const basicLoadAddr = 0x0801

// bootEntryOffset is psidboot's entry point relative to its own load
// address ($0801), i.e. $080d - $0801.
const bootEntryOffset = 0x0c

// Config holds the conversion options a caller can set before calling
// Convert, mirroring the original converter's setter methods.
type Config struct {
	// BlankScreen disables the information screen, freeing its memory for
	// the tune itself and shrinking the driver to its minimal footprint.
	BlankScreen bool
	// Compress runs the finished program through a Compressor.
	Compress bool
	// InitialSong overrides the tune's own default starting subtune.
	// Values outside [1, tune.Songs] fall back to the tune's StartSong.
	InitialSong int
	// UseGlobalComment includes a STIL provider's per-directory comment
	// ahead of the tune's own entry.
	UseGlobalComment bool
	// HvscRoot is the HVSC root directory. The file name given to Load,
	// with this prefix removed, is the key for the tune's STIL/bug-list
	// entries. Empty disables STIL lookup.
	HvscRoot string
	Verbose  bool
}

// Assets are the pre-assembled binaries the converter relocates and
// patches; they live outside this module (see the driver/boot packages'
// doc comments) and must be supplied by the caller.
type Assets struct {
	// Driver is the o65 object for the minimal, screen-less player.
	Driver []byte
	// ExtDriver is the o65 object for the player variant that also
	// refreshes the information screen and scrolls the STIL text.
	ExtDriver []byte
	// BootTemplate is the assembled psidboot bootstrapper.
	BootTemplate []byte
}

// Converter holds one conversion's configuration, loaded tune and result.
type Converter struct {
	Config Config
	Assets Assets

	StilProvider stil.Provider
	Compressor   exo.Compressor
	Logger       *logrus.Logger

	fileName    string
	tune        *sid.Tune
	programData []byte
	warnings    []string
}

// New returns a Converter ready to Load a tune, with a new logrus.Logger
// at WarnLevel (InfoLevel when config.Verbose is set).
func New(config Config, assets Assets) *Converter {
	c := &Converter{Config: config, Assets: assets}
	c.Logger = logrus.New()
	c.Logger.SetLevel(logrus.WarnLevel)
	if config.Verbose {
		c.Logger.SetLevel(logrus.InfoLevel)
	}
	return c
}

// Load parses a PSID/RSID tune from r. fileName is recorded for STIL
// lookups and carries no filesystem meaning to this package.
func (c *Converter) Load(r io.Reader, fileName string) error {
	tune, err := sid.Load(storage.NewReader(r))
	if err != nil {
		return err
	}
	c.tune = tune
	c.fileName = fileName
	return nil
}

// Warnings returns every non-fatal diagnostic recorded by the last
// Convert, in the order they occurred.
func (c *Converter) Warnings() []string {
	return c.warnings
}

// Convert runs the full pipeline and leaves the finished program available
// through Write. It must be called after a successful Load.
func (c *Converter) Convert() error {
	if c.tune == nil {
		return errs.New(errs.NotLoaded, errors.New("no tune loaded"))
	}
	c.warnings = nil

	if c.tune.Compatibility == sid.CompatibilityBASIC {
		return c.convertBASIC()
	}

	stilText, err := c.formatStilText()
	if err != nil {
		return err
	}
	stilPages := uint8((len(stilText) + 255) >> 8)

	placement, err := placer.Place(c.tune, stilPages)
	if err != nil {
		return err
	}

	if c.Config.BlankScreen {
		placement.ScreenPage = 0
		placement.CharPage = 0
		placement.StilPage = 0
	}

	obj := c.Assets.Driver
	if placement.ScreenPage != 0 {
		obj = c.Assets.ExtDriver
	}
	res, err := driver.Patch(obj, c.tune, placement)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		c.warn(w)
	}

	var blocks []boot.Block
	blocks = append(blocks, boot.Block{Load: uint16(placement.DriverPage) << 8, Data: res.Text})
	blocks = append(blocks, boot.Block{
		Load: c.tune.LoadAddr,
		Data: c.tune.Memory[c.tune.LoadAddr : int(c.tune.LoadAddr)+c.tune.DataLen],
	})

	if placement.ScreenPage != 0 {
		scr := screen.New()
		screen.Draw(scr, c.tune)
		blocks = append(blocks, boot.Block{Load: uint16(placement.ScreenPage) << 8, Data: scr.Data()})
	}
	if placement.StilPage != 0 {
		blocks = append(blocks, boot.Block{Load: uint16(placement.StilPage) << 8, Data: stilText})
	}

	if c.Config.Verbose {
		logMemoryMap(c.Logger, blocks, placement)
	}

	params := boot.Params{
		InitialSong: c.resolveInitialSong(),
		DriverPage:  placement.DriverPage,
		CharPage:    placement.CharPage,
	}
	program, err := boot.Assemble(c.Assets.BootTemplate, blocks, params)
	if err != nil {
		return err
	}

	c.programData = withLoadAddrPrefix(basicLoadAddr, program)

	if c.Config.Compress {
		if err := c.compress(); err != nil {
			return err
		}
	}

	return nil
}

// convertBASIC handles the special case of a bare BASIC program: it is
// copied into the output verbatim, with no driver, screen or bootstrapper
// at all.
func (c *Converter) convertBASIC() error {
	data := c.tune.Memory[c.tune.LoadAddr : int(c.tune.LoadAddr)+c.tune.DataLen]
	c.programData = withLoadAddrPrefix(c.tune.LoadAddr, data)

	if c.Config.Verbose {
		c.Logger.WithFields(logrus.Fields{
			"start": hexWord(c.tune.LoadAddr),
			"end":   hexWord(c.tune.LoadAddr + uint16(c.tune.DataLen)),
		}).Info("BASIC program")
	}

	return nil
}

// compress replaces programData with its compressed form, skipping the
// 2-byte load-address prefix the way the original skips it around
// Exomizer.
func (c *Converter) compress() error {
	if c.Compressor == nil {
		return errs.New(errs.CompressionFailed, errors.New("no compressor configured"))
	}
	load := uint16(c.programData[0]) | uint16(c.programData[1])<<8
	start := load + bootEntryOffset

	compressed, err := c.Compressor.Compress(c.programData[2:], load, start)
	if err != nil {
		return err
	}
	c.programData = withLoadAddrPrefix(load, compressed)
	return nil
}

// formatStilText looks up and formats the STIL text for the loaded tune,
// returning nil with no error when no provider/HVSC root is configured.
func (c *Converter) formatStilText() ([]byte, error) {
	if c.StilProvider == nil || c.Config.HvscRoot == "" {
		return nil, nil
	}
	hvscPath := strings.TrimPrefix(c.fileName, c.Config.HvscRoot)
	return stil.Format(c.StilProvider, hvscPath, c.Config.UseGlobalComment)
}

// resolveInitialSong returns the requested initial song when it lies in
// [1, tune.Songs], and the tune's own declared start song otherwise.
func (c *Converter) resolveInitialSong() int {
	if c.Config.InitialSong >= 1 && c.Config.InitialSong <= int(c.tune.Songs) {
		return c.Config.InitialSong
	}
	return int(c.tune.StartSong)
}

func (c *Converter) warn(msg string) {
	c.warnings = append(c.warnings, msg)
	c.Logger.Warn(msg)
}

// Write writes the finished program to w. It must be called after a
// successful Convert.
func (c *Converter) Write(w io.Writer) error {
	if c.programData == nil {
		return errs.New(errs.NotConverted, errors.New("no tune converted"))
	}
	if _, err := w.Write(c.programData); err != nil {
		return errs.New(errs.IoError, errors.Wrap(err, "writing program"))
	}
	return nil
}

func withLoadAddrPrefix(addr uint16, data []byte) []byte {
	out := make([]byte, 2+len(data))
	out[0] = byte(addr)
	out[1] = byte(addr >> 8)
	copy(out[2:], data)
	return out
}

func hexWord(v uint16) string {
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{
		hexDigits[(v>>12)&0xf], hexDigits[(v>>8)&0xf],
		hexDigits[(v>>4)&0xf], hexDigits[v&0xf],
	})
}

func logMemoryMap(logger *logrus.Logger, blocks []boot.Block, placement *placer.Placement) {
	for _, b := range blocks {
		logger.WithFields(logrus.Fields{
			"start": hexWord(b.Load),
			"end":   hexWord(b.Load + uint16(len(b.Data))),
		}).Info("memory block")
	}
	if placement.CharPage != 0 {
		charStart := uint16(placement.CharPage) << 8
		logger.WithFields(logrus.Fields{
			"start": hexWord(charStart),
			"end":   hexWord(charStart + 256*placer.NumCharPages),
		}).Info("character set")
	}
}
