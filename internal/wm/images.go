package wm

import "io"

// ImageStore provides an interface for the on-device image area that
// clothing item photos live in. Items reference images by the path returned
// from Save/Write; the store owns naming and layout.
type ImageStore interface {
	// Save stores a new photo, re-encoding it to the configured size and
	// quality, and returns the stored path. Bytes that do not decode as an
	// image are stored untouched.
	Save(r io.Reader) (string, error)

	// Write stores raw bytes under the given base name without re-encoding.
	// Used when materializing images from an archive. Returns the stored path.
	Write(name string, r io.Reader) (string, error)

	// Open opens a stored image for reading.
	// A missing image reports fs.ErrNotExist.
	Open(path string) (io.ReadCloser, error)

	// Delete removes a stored image. Deleting a missing image is not an error.
	Delete(path string) error

	// CleanupUnused removes stored images whose base name is not referenced
	// by any of the given paths. Returns the number removed.
	CleanupUnused(used []string) (int, error)
}
