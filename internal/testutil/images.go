package testutil

import (
	"testing"

	"github.com/spf13/afero"

	"wm-go/internal/images"
)

// NewTestImageStore creates an image store backed by an in-memory filesystem.
// It returns the store and the filesystem for direct inspection.
func NewTestImageStore(t *testing.T) (*images.Store, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	return images.New(fs, "/images", 0, 0), fs
}
