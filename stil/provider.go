package stil

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileProvider is a Provider backed by an on-disk (or in-memory, via afero)
// copy of the HVSC's STIL.txt and BUGlist.txt, the two flat text databases
// the real STIL library parses. Entries are looked up by exact HVSC-
// relative path match against a block header line of the form
// "/<path>", e.g. "/MUSICIANS/H/Hermans_Rob/Test.sid".
type FileProvider struct {
	fs   afero.Fs
	root string

	stil    map[string]string
	bug     map[string]string
	global  map[string]string
	lastErr string
}

// NewFileProvider returns a FileProvider that reads STIL.txt and
// BUGlist.txt from fs once SetBaseDir points it at an HVSC root.
func NewFileProvider(fs afero.Fs) *FileProvider {
	return &FileProvider{fs: fs}
}

// SetBaseDir loads STIL.txt and BUGlist.txt from root's DOCUMENTS
// subdirectory, the layout the real HVSC distribution uses.
func (p *FileProvider) SetBaseDir(root string) error {
	p.root = root
	p.lastErr = ""

	allEntries, err := parseDatabase(p.fs, filepath.Join(root, "DOCUMENTS", "STIL.txt"))
	if err != nil {
		p.lastErr = err.Error()
		return errors.Wrap(err, "loading STIL.txt")
	}
	// Entries whose path ends in "/" are a directory's global comment,
	// not a per-tune entry.
	p.stil = map[string]string{}
	p.global = map[string]string{}
	for key, text := range allEntries {
		if strings.HasSuffix(key, "/") {
			p.global[strings.TrimSuffix(key, "/")] = text
		} else {
			p.stil[key] = text
		}
	}

	bugEntries, err := parseDatabase(p.fs, filepath.Join(root, "DOCUMENTS", "BUGlist.txt"))
	if err != nil {
		p.lastErr = err.Error()
		return errors.Wrap(err, "loading BUGlist.txt")
	}
	p.bug = bugEntries

	return nil
}

// GetGlobalComment returns the comment recorded for hvscPath's containing
// directory, or "" if there is none.
func (p *FileProvider) GetGlobalComment(hvscPath string) (string, error) {
	dir := path.Dir(normalize(hvscPath))
	return p.global[dir], nil
}

// GetEntry returns the STIL.txt entry for hvscPath, or "" if there is none.
func (p *FileProvider) GetEntry(hvscPath string) (string, error) {
	return p.stil[normalize(hvscPath)], nil
}

// GetBug returns the BUGlist.txt entry for hvscPath, or "" if there is
// none.
func (p *FileProvider) GetBug(hvscPath string) (string, error) {
	return p.bug[normalize(hvscPath)], nil
}

// HasCriticalError reports whether the last SetBaseDir call failed.
func (p *FileProvider) HasCriticalError() bool {
	return p.lastErr != ""
}

// ErrorString returns the last critical error's message.
func (p *FileProvider) ErrorString() string {
	return p.lastErr
}

func normalize(hvscPath string) string {
	return "/" + strings.TrimPrefix(filepath.ToSlash(hvscPath), "/")
}

// parseDatabase reads one of the HVSC's block-structured text databases:
// entries are separated by blank lines, and each block's first line names
// the tune it describes.
func parseDatabase(fs afero.Fs, dbPath string) (map[string]string, error) {
	f, err := fs.Open(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	entries := map[string]string{}
	var key string
	var body strings.Builder

	flush := func() {
		if key != "" {
			entries[key] = strings.TrimRight(body.String(), "\n")
		}
		key = ""
		body.Reset()
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(raw), "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "/") {
			flush()
			key = strings.TrimSpace(line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return entries, nil
}
