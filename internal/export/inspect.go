// Package export inspects score files produced by an export step before they
// are handed to an external notation editor.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	ftypes "github.com/h2non/filetype/types"
)

// Kind classifies an export file.
type Kind string

const (
	KindMusicXML Kind = "musicxml" // plain MusicXML document
	KindMXL      Kind = "mxl"      // compressed MusicXML (zip container)
)

var (
	// ErrEmptyExport is returned for a zero-length file.
	ErrEmptyExport = errors.New("export file is empty")
	// ErrUnsupportedExport is returned when the header is neither MusicXML nor a zip container.
	ErrUnsupportedExport = errors.New("export file is not MusicXML")
)

// headerSize covers both filetype's 261-byte window and a generous XML prolog.
const headerSize = 512

// filetypeMatchFunc is the matcher used by Inspect. Package-level so tests
// can inject a failing matcher.
var filetypeMatchFunc func([]byte) (ftypes.Type, error) = filetype.Match

// Info describes an inspected export file.
type Info struct {
	Path string
	Kind Kind
	MIME string
	Size int64
}

// Inspect opens path and classifies it by its leading bytes. The file
// extension is ignored.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("export: %w", err)
	}
	if st.IsDir() {
		return Info{}, fmt.Errorf("export: %s is a directory", path)
	}
	if st.Size() == 0 {
		return Info{}, fmt.Errorf("%w: %s", ErrEmptyExport, path)
	}

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, fmt.Errorf("export: cannot read header: %w", err)
	}
	head = head[:n]

	info := Info{Path: path, Size: st.Size()}
	kind, err := filetypeMatchFunc(head)
	if err != nil {
		return Info{}, fmt.Errorf("export: filetype match error: %w", err)
	}
	if kind.Extension == "zip" {
		info.Kind = KindMXL
		info.MIME = "application/vnd.recordare.musicxml"
		return info, nil
	}
	if looksLikeMusicXML(head) {
		info.Kind = KindMusicXML
		info.MIME = "application/vnd.recordare.musicxml+xml"
		return info, nil
	}
	return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedExport, path)
}

var (
	utf8BOM     = []byte{0xEF, 0xBB, 0xBF}
	xmlPrefixes = [][]byte{[]byte("<?xml"), []byte("<!DOCTYPE score-"), []byte("<score-partwise"), []byte("<score-timewise")}
)

func looksLikeMusicXML(head []byte) bool {
	head = bytes.TrimPrefix(head, utf8BOM)
	head = bytes.TrimLeft(head, " \t\r\n")
	for _, p := range xmlPrefixes {
		if bytes.HasPrefix(head, p) {
			return true
		}
	}
	return false
}
