package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"psid64"
	"psid64/exo"
	"psid64/songlength"
	"psid64/stil"
)

var (
	outFile          string
	driverPath       string
	extDriverPath    string
	bootTemplatePath string
	blankScreen      bool
	compress         bool
	initialSong      int
	useGlobalComment bool
	hvscRoot         string
	songLengthDbPath string
	verbose          bool
)

var convertCmd = &cobra.Command{
	Use:                   "convert FILE",
	Short:                 "Convert a PSID/RSID tune into a C64 .prg program",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE:                  runConvert,
}

func init() {
	flags := convertCmd.Flags()
	flags.StringVarP(&outFile, "output", "o", "", "output .prg file, default: input file with its extension replaced")
	flags.StringVar(&driverPath, "driver", "psiddrv.o65", "relocatable o65 object for the screen-less player driver")
	flags.StringVar(&extDriverPath, "ext-driver", "psidextdrv.o65", "relocatable o65 object for the player driver with screen/STIL support")
	flags.StringVar(&bootTemplatePath, "boot-template", "psidboot.prg", "assembled bootstrapper template")
	flags.BoolVar(&blankScreen, "blank-screen", false, "do not draw the information screen")
	flags.BoolVar(&compress, "compress", false, "compress the resulting program")
	flags.IntVar(&initialSong, "song", 0, "initial subtune to play, default: the tune's own default")
	flags.BoolVar(&useGlobalComment, "global-comment", false, "include the STIL database's directory-level comment")
	flags.StringVar(&hvscRoot, "hvsc-root", "", "HVSC root directory, enables STIL scroll text")
	flags.StringVar(&songLengthDbPath, "song-length-db", "", "HVSC Songlengths.md5 file, reported in --verbose output only")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log the memory layout and other conversion diagnostics")
}

func runConvert(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	inFile := args[0]

	assets, err := loadAssets(fs)
	if err != nil {
		return err
	}

	conv := psid64.New(psid64.Config{
		BlankScreen:      blankScreen,
		Compress:         compress,
		InitialSong:      initialSong,
		UseGlobalComment: useGlobalComment,
		HvscRoot:         hvscRoot,
		Verbose:          verbose,
	}, assets)

	if compress {
		conv.Compressor = exo.FlateCompressor{}
	}

	if hvscRoot != "" {
		provider := stil.NewFileProvider(fs)
		if err := provider.SetBaseDir(hvscRoot); err != nil {
			return err
		}
		conv.StilProvider = provider
	}

	tuneData, err := afero.ReadFile(fs, inFile)
	if err != nil {
		return errors.Wrap(err, "reading input tune")
	}

	if err := conv.Load(bytes.NewReader(tuneData), inFile); err != nil {
		return err
	}

	if songLengthDbPath != "" && verbose {
		if db, err := songlength.Load(fs, songLengthDbPath); err != nil {
			conv.Logger.WithError(err).Warn("could not read song length database")
		} else if lengths := db.Lengths(tuneData); lengths != nil {
			conv.Logger.WithField("lengths", lengths).Info("known song lengths")
		}
	}

	if err := conv.Convert(); err != nil {
		return err
	}

	for _, w := range conv.Warnings() {
		cmd.PrintErrln("warning:", w)
	}

	out := outFile
	if out == "" {
		out = buildOutputFilename(inFile)
	}

	w, err := fs.Create(out)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer w.Close()

	if err := conv.Write(w); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", out)
	return nil
}

func loadAssets(fs afero.Fs) (psid64.Assets, error) {
	driver, err := afero.ReadFile(fs, driverPath)
	if err != nil {
		return psid64.Assets{}, errors.Wrap(err, "reading driver object")
	}
	extDriver, err := afero.ReadFile(fs, extDriverPath)
	if err != nil {
		return psid64.Assets{}, errors.Wrap(err, "reading extended driver object")
	}
	bootTemplate, err := afero.ReadFile(fs, bootTemplatePath)
	if err != nil {
		return psid64.Assets{}, errors.Wrap(err, "reading boot template")
	}
	return psid64.Assets{Driver: driver, ExtDriver: extDriver, BootTemplate: bootTemplate}, nil
}

// buildOutputFilename replaces a trailing .sid/.psid extension (any case)
// with .prg, or appends .prg when the input carries neither.
func buildOutputFilename(inFile string) string {
	lower := strings.ToLower(inFile)
	switch {
	case strings.HasSuffix(lower, ".psid"):
		return inFile[:len(inFile)-len(".psid")] + ".prg"
	case strings.HasSuffix(lower, ".sid"):
		return inFile[:len(inFile)-len(".sid")] + ".prg"
	default:
		return inFile + ".prg"
	}
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{})
}
