// Package images is the on-device store for clothing item photos.
// Photos are stored flat in one directory under random names; incoming
// photos are resized and re-encoded so the catalogue stays small.
package images

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	_ "image/gif" // register decoders for the formats cameras and pickers hand us
	_ "image/png"

	"image/jpeg"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/image/draw"

	"wm-go/internal/wm"
)

const (
	// DefaultMaxDimension caps the longest side of a stored photo.
	DefaultMaxDimension = 1024

	// DefaultQuality is the JPEG re-encode quality.
	DefaultQuality = 85
)

// Store keeps photos in a single directory on the given filesystem.
type Store struct {
	fs           afero.Fs
	dir          string
	maxDimension int
	quality      int
}

// New creates a Store over dir. Non-positive maxDimension or quality
// select the defaults.
func New(fs afero.Fs, dir string, maxDimension, quality int) *Store {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Store{fs: fs, dir: dir, maxDimension: maxDimension, quality: quality}
}

// Save stores a new photo under a random name, resized and re-encoded as
// JPEG. Bytes that do not decode as an image are stored untouched: a photo
// the standard decoders cannot read is still better kept than rejected.
func (s *Store) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	data = s.compress(data)

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}
	path := filepath.Join(s.dir, uuid.New().String()+".jpg")
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return path, nil
}

// Write stores raw bytes under the given base name without re-encoding.
// An existing image of the same name is overwritten, which keeps repeated
// restores of the same archive idempotent.
func (s *Store) Write(name string, r io.Reader) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating image directory: %w", err)
	}

	// Base guards against traversal from untrusted archive entry names.
	path := filepath.Join(s.dir, filepath.Base(name))
	f, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.fs.Remove(path)
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(path)
		return "", fmt.Errorf("closing image file: %w", err)
	}
	return path, nil
}

// Open opens a stored image for reading.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	return s.fs.Open(path)
}

// Delete removes a stored image. A missing image is not an error.
func (s *Store) Delete(path string) error {
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing image: %w", err)
	}
	return nil
}

// CleanupUnused removes stored images whose base name is not referenced by
// any of the given paths. Returns the number removed.
func (s *Store) CleanupUnused(used []string) (int, error) {
	usedNames := make(map[string]bool, len(used))
	for _, p := range used {
		usedNames[filepath.Base(p)] = true
	}

	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing image directory: %w", err)
	}

	removed := 0
	for _, info := range infos {
		if info.IsDir() || usedNames[info.Name()] {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, info.Name())); err != nil {
			return removed, fmt.Errorf("removing unused image %s: %w", info.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// compress resizes the image so its longest side fits maxDimension and
// re-encodes it as JPEG. Returns the input unchanged if it does not decode
// or the re-encode fails.
func (s *Store) compress(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > s.maxDimension || height > s.maxDimension {
		newWidth, newHeight := fitDimensions(width, height, s.maxDimension)
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return data
	}
	return buf.Bytes()
}

// Compile-time check that Store implements the wm.ImageStore interface.
var _ wm.ImageStore = (*Store)(nil)

// fitDimensions scales (width, height) down so the longest side equals
// maxDimension, preserving aspect ratio.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width >= height {
		scaled := height * maxDimension / width
		if scaled < 1 {
			scaled = 1
		}
		return maxDimension, scaled
	}
	scaled := width * maxDimension / height
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxDimension
}
