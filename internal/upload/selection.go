package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File is a file chosen in one of the two upload slots.
// Bytes are read from Path only when the request is built.
type File struct {
	Name string
	Path string
	Size int64
}

// FileFromPath stats path and describes it as a selectable File.
func FileFromPath(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{Name: filepath.Base(abs), Path: abs, Size: info.Size()}, nil
}

// Open opens the file contents for upload.
func (f File) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// IsArchive reports whether the name carries the .zip suffix the archive slot requires.
func (f File) IsArchive() bool {
	return strings.HasSuffix(f.Name, ".zip")
}

// Mode identifies which upload slot holds the selection.
type Mode int

const (
	ModeNone Mode = iota
	ModeSingle
	ModeArchive
)

// String returns the slot name.
func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeArchive:
		return "archive"
	default:
		return "none"
	}
}

// UploadType is the discriminator sent in the uploadType form field.
type UploadType string

const (
	UploadTypeSingle UploadType = "single"
	UploadTypeZip    UploadType = "zip"
)

// Selection is the single value behind both upload slots. It is either empty,
// a single source file, or an archive, so the two slots can never both be set.
type Selection struct {
	mode Mode
	file File
}

// NoSelection returns the empty selection.
func NoSelection() Selection { return Selection{} }

// SingleFile selects f in the single-file slot.
func SingleFile(f File) Selection { return Selection{mode: ModeSingle, file: f} }

// ArchiveFile selects f in the archive slot.
func ArchiveFile(f File) Selection { return Selection{mode: ModeArchive, file: f} }

// Mode returns the occupied slot.
func (s Selection) Mode() Mode { return s.mode }

// IsEmpty reports whether neither slot is set.
func (s Selection) IsEmpty() bool { return s.mode == ModeNone }

// File returns the selected file, if any.
func (s Selection) File() (File, bool) {
	if s.mode == ModeNone {
		return File{}, false
	}
	return s.file, true
}

// Single returns the file in the single-file slot.
func (s Selection) Single() (File, bool) {
	if s.mode != ModeSingle {
		return File{}, false
	}
	return s.file, true
}

// Archive returns the file in the archive slot.
func (s Selection) Archive() (File, bool) {
	if s.mode != ModeArchive {
		return File{}, false
	}
	return s.file, true
}

// UploadType returns the wire discriminator for the selection.
func (s Selection) UploadType() UploadType {
	if s.mode == ModeArchive {
		return UploadTypeZip
	}
	return UploadTypeSingle
}
