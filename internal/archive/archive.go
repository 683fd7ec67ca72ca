// Package archive implements the backup container format: a zip file whose
// first logical member is a JSON manifest describing a catalogue snapshot,
// followed by the referenced image files under an images/ namespace.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"wm-go/internal/model"
)

const (
	// FormatVersion is the archive format produced by this build. A decoder
	// must refuse any archive whose manifest reports a newer version.
	FormatVersion = 1

	// ManifestName is the fixed name of the manifest entry.
	ManifestName = "data.json"

	// imagePrefix namespaces image entries apart from the manifest.
	imagePrefix = "images/"
)

var (
	// ErrMissingManifest reports an archive without a manifest entry.
	ErrMissingManifest = errors.New("archive has no manifest entry")

	// ErrVersionTooNew reports a manifest version this build cannot decode.
	ErrVersionTooNew = errors.New("archive format version is newer than supported")
)

// Logger is the slice of wm.Logger the codec needs for skipped-image warnings.
type Logger interface {
	Warn(msg string, args ...any)
}

// ImageSource resolves an image path from the snapshot to its bytes.
// A missing image must report an error from Open; the encoder skips it.
type ImageSource interface {
	Open(path string) (io.ReadCloser, error)
}

// Write encodes the snapshot and its referenced images to w.
//
// The manifest entry is written first, then one entry per distinct image
// under images/<basename>. An image that cannot be opened is skipped with
// a warning; the manifest still lists its clothing item. Any manifest or
// container write error aborts the encode; the caller owns discarding the
// partially written destination.
func Write(w io.Writer, snapshot *model.Snapshot, images ImageSource, logger Logger) error {
	zw := zip.NewWriter(w)

	mw, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("creating manifest entry: %w", err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if _, err := mw.Write(data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	seen := make(map[string]bool)
	for _, imagePath := range snapshot.ImagePaths() {
		name := filepath.Base(imagePath)
		if seen[name] {
			logger.Warn("duplicate image base name, keeping first", "path", imagePath)
			continue
		}

		rc, err := images.Open(imagePath)
		if err != nil {
			// Missing or unreadable images never abort a backup.
			logger.Warn("image not readable, skipping", "path", imagePath, "error", err)
			continue
		}
		seen[name] = true

		ew, err := zw.Create(imagePrefix + name)
		if err != nil {
			rc.Close()
			return fmt.Errorf("creating image entry %s: %w", name, err)
		}
		if _, err := io.Copy(ew, rc); err != nil {
			rc.Close()
			return fmt.Errorf("writing image entry %s: %w", name, err)
		}
		rc.Close()
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// Reader decodes an archive: the manifest eagerly, image entries lazily as
// a one-pass, non-restartable sequence. Reader never writes files.
type Reader struct {
	snapshot *model.Snapshot
	images   []*zip.File
	next     int
}

// NewReader parses the archive in r. It fails if the container is not a zip
// file, the manifest entry is absent, or the manifest does not parse.
// Unknown manifest fields are ignored so newer archives stay partially
// readable; version enforcement is a separate, explicit CheckVersion call
// because the catalog summarizes archives it cannot restore.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("not a valid backup archive: %w", err)
	}

	var manifest *zip.File
	var images []*zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == ManifestName:
			manifest = f
		case len(f.Name) > len(imagePrefix) && f.Name[:len(imagePrefix)] == imagePrefix && !f.FileInfo().IsDir():
			images = append(images, f)
		}
	}
	if manifest == nil {
		return nil, ErrMissingManifest
	}

	mc, err := manifest.Open()
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer mc.Close()
	data, err := io.ReadAll(mc)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return &Reader{snapshot: &snapshot, images: images}, nil
}

// Snapshot returns the decoded manifest.
func (r *Reader) Snapshot() *model.Snapshot {
	return r.snapshot
}

// CheckVersion fails with ErrVersionTooNew when the manifest was written by
// a newer format than this build supports.
func (r *Reader) CheckVersion() error {
	if r.snapshot.Version > FormatVersion {
		return fmt.Errorf("%w: archive is version %d, supported up to %d",
			ErrVersionTooNew, r.snapshot.Version, FormatVersion)
	}
	return nil
}

// ImageCount returns the number of image entries in the archive.
func (r *Reader) ImageCount() int {
	return len(r.images)
}

// NextImage returns the next image entry as its original base name and a
// reader over its bytes. The caller must close the reader before the next
// call. Returns io.EOF after the last entry.
func (r *Reader) NextImage() (string, io.ReadCloser, error) {
	if r.next >= len(r.images) {
		return "", nil, io.EOF
	}
	f := r.images[r.next]
	r.next++

	rc, err := f.Open()
	if err != nil {
		return "", nil, fmt.Errorf("opening image entry %s: %w", f.Name, err)
	}
	return path.Base(f.Name), rc, nil
}

// FileReader is a Reader bound to an open archive file.
type FileReader struct {
	*Reader
	f afero.File
}

// OpenPath opens the archive at the given path and parses it.
// The caller must Close the returned FileReader.
func OpenPath(fsys afero.Fs, archivePath string) (*FileReader, error) {
	f, err := fsys.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	r, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileReader{Reader: r, f: f}, nil
}

// Close closes the underlying archive file.
func (fr *FileReader) Close() error {
	return fr.f.Close()
}
