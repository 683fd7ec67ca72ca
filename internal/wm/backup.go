package wm

import (
	"fmt"
	"path/filepath"

	"wm-go/internal/archive"
	"wm-go/internal/catalog"
	"wm-go/internal/model"
)

// BackupFile describes a successfully written archive.
type BackupFile struct {
	Path          string
	Name          string
	Size          int64
	ClothingItems int
	Outfits       int
}

// CreateBackup snapshots the whole catalogue and writes it to a new archive
// in the backup directory.
//
// Both stores are only read from: a backup can never corrupt live data. The
// snapshot is fully captured before serialization begins, so the archive
// reflects one consistent point-in-time view. The archive is written to a
// temporary name and renamed into place only after a fully successful
// encode, so no partial archive is ever left under the expected name.
func (s *Service) CreateBackup(onProgress ProgressFunc) (*BackupFile, error) {
	onProgress.report(0, "starting backup")

	onProgress.report(10, "reading clothing items")
	items, err := s.store.ListClothingItems()
	if err != nil {
		return nil, fmt.Errorf("reading clothing items: %w", err)
	}

	onProgress.report(30, "reading outfits")
	outfits, err := s.store.ListOutfits()
	if err != nil {
		return nil, fmt.Errorf("reading outfits: %w", err)
	}

	onProgress.report(50, "assembling snapshot")
	snapshot := &model.Snapshot{
		Version:       archive.FormatVersion,
		Timestamp:     s.clock.Now().UnixMilli(),
		ClothingItems: items,
		Outfits:       outfits,
	}

	onProgress.report(70, "creating archive file")
	if err := s.fs.MkdirAll(s.backupDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	name := catalog.ArchiveName(s.clock.Now())
	finalPath := filepath.Join(s.backupDir, name)
	tmpPath := finalPath + ".tmp"

	f, err := s.fs.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating archive file: %w", err)
	}

	onProgress.report(80, "writing archive")
	if err := archive.Write(f, snapshot, s.images, s.logger); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("closing archive file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, finalPath); err != nil {
		s.fs.Remove(tmpPath)
		return nil, fmt.Errorf("finalizing archive file: %w", err)
	}

	info, err := s.fs.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}

	onProgress.report(100, "backup complete")
	s.logger.Info("backup created", "file", finalPath,
		"items", len(items), "outfits", len(outfits), "size", info.Size())

	return &BackupFile{
		Path:          finalPath,
		Name:          name,
		Size:          info.Size(),
		ClothingItems: len(items),
		Outfits:       len(outfits),
	}, nil
}
