package wm

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"wm-go/internal/archive"
	"wm-go/internal/model"
)

// ErrArchiveTooNew reports an archive written by a newer app version.
var ErrArchiveTooNew = errors.New("backup was created by a newer version, please update the app")

// RestoreResult reports what a completed restore brought in.
type RestoreResult struct {
	ClothingItems int
	Outfits       int
	Quarantined   int // records skipped because they failed validation
}

// RestoreBackup restores the catalogue from the archive at the given path.
//
// The archive is fully decoded and validated before the entity store is
// touched: an unreadable or malformed archive, or one with a format version
// this build does not understand, fails the restore with the store exactly
// as it was. All inserts run in one store transaction, so a store failure
// partway through also rolls back to the pre-restore state.
//
// The store assigns fresh IDs on insert; membership rows are re-established
// against the new IDs, not the ones recorded in the archive. Image entries
// are materialized best-effort before the inserts (a single unwritable
// image is logged and skipped, never fatal) and restored items have their
// image path rewritten to the restored location.
func (s *Service) RestoreBackup(archivePath string, onProgress ProgressFunc) (*RestoreResult, error) {
	onProgress.report(0, "starting restore")

	onProgress.report(10, "reading backup archive")
	fr, err := archive.OpenPath(s.fs, archivePath)
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	snapshot := fr.Snapshot()

	onProgress.report(20, "checking archive version")
	if err := fr.CheckVersion(); err != nil {
		if errors.Is(err, archive.ErrVersionTooNew) {
			return nil, fmt.Errorf("%w (archive version %d)", ErrArchiveTooNew, snapshot.Version)
		}
		return nil, err
	}

	items, outfits, quarantined := s.validateSnapshot(snapshot)

	onProgress.report(40, "restoring images")
	restoredImages := s.restoreImages(fr)

	onProgress.report(60, "restoring clothing items")
	tx, err := s.store.BeginRestore()
	if err != nil {
		return nil, fmt.Errorf("starting restore transaction: %w", err)
	}
	defer tx.Rollback()

	idMap := make(map[int64]int64, len(items))
	for _, item := range items {
		oldID := item.ID
		item.ID = 0
		if path, ok := restoredImages[filepath.Base(item.ImagePath)]; ok {
			item.ImagePath = path
		}
		newID, err := tx.InsertClothingItem(&item)
		if err != nil {
			return nil, fmt.Errorf("restoring clothing item %q: %w", item.Name, err)
		}
		idMap[oldID] = newID
	}

	onProgress.report(80, "restoring outfits")
	for _, outfit := range outfits {
		outfit.ID = 0
		newID, err := tx.InsertOutfit(&outfit)
		if err != nil {
			return nil, fmt.Errorf("restoring outfit %q: %w", outfit.Name, err)
		}
		for _, member := range outfit.ClothingItems {
			itemID, ok := idMap[member.ID]
			if !ok {
				s.logger.Warn("outfit references item missing from archive, skipping",
					"outfit", outfit.Name, "item", member.Name)
				continue
			}
			if err := tx.InsertMembership(newID, itemID); err != nil {
				return nil, fmt.Errorf("restoring membership of %q: %w", outfit.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing restore: %w", err)
	}

	onProgress.report(100, "restore complete")
	s.logger.Info("restore complete", "file", archivePath,
		"items", len(items), "outfits", len(outfits), "quarantined", quarantined)

	return &RestoreResult{
		ClothingItems: len(items),
		Outfits:       len(outfits),
		Quarantined:   quarantined,
	}, nil
}

// validateSnapshot partitions the snapshot into restorable records and a
// quarantine count. Records with an unknown category or otherwise invalid
// fields are skipped with a warning; a damaged record must not crash or
// abort the whole restore.
func (s *Service) validateSnapshot(snapshot *model.Snapshot) ([]model.ClothingItem, []model.Outfit, int) {
	quarantined := 0

	items := make([]model.ClothingItem, 0, len(snapshot.ClothingItems))
	for _, item := range snapshot.ClothingItems {
		if err := item.Validate(); err != nil {
			s.logger.Warn("quarantining clothing item from archive", "name", item.Name, "error", err)
			quarantined++
			continue
		}
		items = append(items, item)
	}

	outfits := make([]model.Outfit, 0, len(snapshot.Outfits))
	for _, outfit := range snapshot.Outfits {
		if err := outfit.Validate(); err != nil {
			s.logger.Warn("quarantining outfit from archive", "name", outfit.Name, "error", err)
			quarantined++
			continue
		}
		outfits = append(outfits, outfit)
	}

	return items, outfits, quarantined
}

// restoreImages materializes every image entry into the image store,
// best-effort per file, and returns a base name to stored path map for
// rewriting item image paths.
func (s *Service) restoreImages(fr *archive.FileReader) map[string]string {
	restored := make(map[string]string)
	for {
		name, rc, err := fr.NextImage()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("skipping unreadable image entry", "error", err)
			continue
		}
		path, err := s.images.Write(name, rc)
		rc.Close()
		if err != nil {
			s.logger.Warn("skipping image that could not be written", "name", name, "error", err)
			continue
		}
		restored[name] = path
	}
	return restored
}
