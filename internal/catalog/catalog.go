// Package catalog is the listing abstraction over previously created backup
// archives in the dedicated backup directory.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"wm-go/internal/archive"
)

const (
	// ArchivePrefix and ArchiveSuffix frame the backup file naming
	// convention: wardrobe_backup_<timestamp>.zip.
	ArchivePrefix = "wardrobe_backup_"
	ArchiveSuffix = ".zip"

	// timestampLayout derives the file name suffix from the backup time,
	// guaranteeing no collision between backups on the same device.
	timestampLayout = "20060102_150405"
)

// ArchiveName builds the file name for a backup taken at t.
func ArchiveName(t time.Time) string {
	return ArchivePrefix + t.Format(timestampLayout) + ArchiveSuffix
}

// Entry is one archive file in the backup directory.
type Entry struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Info is the summary metadata of one archive, decoded from its manifest
// without touching image entries.
type Info struct {
	Path              string
	Timestamp         int64
	ClothingItemCount int
	OutfitCount       int
	Version           int
	Size              int64
}

// Catalog enumerates, inspects and deletes backup archives.
type Catalog struct {
	fs  afero.Fs
	dir string
}

// New creates a catalog over the given backup directory.
func New(fs afero.Fs, dir string) *Catalog {
	return &Catalog{fs: fs, dir: dir}
}

// Dir returns the backup directory this catalog lists.
func (c *Catalog) Dir() string { return c.dir }

// List returns the archives in the backup directory, newest first.
// An absent or empty directory yields an empty list, not an error.
// Only files matching the naming convention are returned.
func (c *Catalog) List() ([]Entry, error) {
	infos, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if exists, _ := afero.DirExists(c.fs, c.dir); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("listing backup directory: %w", err)
	}

	var entries []Entry
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		if !strings.HasPrefix(name, ArchivePrefix) || !strings.HasSuffix(name, ArchiveSuffix) {
			continue
		}
		entries = append(entries, Entry{
			Path:    filepath.Join(c.dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Inspect decodes an archive's manifest and returns its summary, or nil if
// the file is not a readable archive. It deliberately skips the version
// check: the user should still see what an over-new archive contains before
// deciding to delete it.
func (c *Catalog) Inspect(entry Entry) *Info {
	fr, err := archive.OpenPath(c.fs, entry.Path)
	if err != nil {
		return nil
	}
	defer fr.Close()

	snapshot := fr.Snapshot()
	return &Info{
		Path:              entry.Path,
		Timestamp:         snapshot.Timestamp,
		ClothingItemCount: len(snapshot.ClothingItems),
		OutfitCount:       len(snapshot.Outfits),
		Version:           snapshot.Version,
		Size:              entry.Size,
	}
}

// Delete removes an archive file. Failure is reported as false, never as an
// error, so a listing UI can keep going when one deletion fails.
func (c *Catalog) Delete(entry Entry) bool {
	return c.fs.Remove(entry.Path) == nil
}
