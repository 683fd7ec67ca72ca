package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"wm-go/internal/catalog"
	"wm-go/internal/config"
	"wm-go/internal/database"
	"wm-go/internal/images"
	"wm-go/internal/wm"
)

// WardrobeApp is the application layer between the CLI and the wm.Service.
// It constructs all dependencies from config and manages the store and log
// file lifecycle on Close.
type WardrobeApp struct {
	cfg     *config.Config
	store   wm.Store
	service *wm.Service
	catalog *catalog.Catalog
	logFile *os.File
}

// NewWardrobeApp creates a fully wired WardrobeApp from the given config.
// operation identifies the CLI command being run (e.g. "CreateBackup").
// The caller must call Close when done.
func NewWardrobeApp(cfg *config.Config, operation string) (*WardrobeApp, error) {
	fsys := afero.NewOsFs()

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	imageStore := images.New(fsys, cfg.Images.Dir, cfg.Images.MaxDimension, cfg.Images.Quality)

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	wmLogger := &slogAdapter{l: logger}
	wmLogger.Debug("operation started", "operation", operation)

	svc := wm.NewService(store, imageStore, fsys, cfg.Backup.Dir, wmLogger, wm.RealClock{})

	return &WardrobeApp{
		cfg:     cfg,
		store:   store,
		service: svc,
		catalog: catalog.New(fsys, cfg.Backup.Dir),
		logFile: logFile,
	}, nil
}

// Service returns the catalogue service for item/outfit/backup operations.
func (a *WardrobeApp) Service() *wm.Service { return a.service }

// BackupSummary pairs an archive file with its decoded summary.
// Info is nil for files whose manifest could not be read.
type BackupSummary struct {
	Entry catalog.Entry
	Info  *catalog.Info
}

// ListBackups lists the archives in the backup directory, newest first,
// with summary metadata where the manifest is readable. Corrupted files
// stay in the listing with a nil Info so the user can still delete them.
func (a *WardrobeApp) ListBackups() ([]BackupSummary, error) {
	entries, err := a.catalog.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]BackupSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, BackupSummary{
			Entry: entry,
			Info:  a.catalog.Inspect(entry),
		})
	}
	return summaries, nil
}

// InspectBackup returns the summary of one archive, or nil if unreadable.
func (a *WardrobeApp) InspectBackup(ref string) (*catalog.Info, error) {
	entry, err := a.resolveBackup(ref)
	if err != nil {
		return nil, err
	}
	return a.catalog.Inspect(*entry), nil
}

// DeleteBackup removes an archive by name or path.
// Failure to remove the file is reported as false.
func (a *WardrobeApp) DeleteBackup(ref string) (bool, error) {
	entry, err := a.resolveBackup(ref)
	if err != nil {
		return false, err
	}
	return a.catalog.Delete(*entry), nil
}

// RestoreBackup restores from an archive by name or path.
func (a *WardrobeApp) RestoreBackup(ref string, onProgress wm.ProgressFunc) (*wm.RestoreResult, error) {
	entry, err := a.resolveBackup(ref)
	if err != nil {
		return nil, err
	}
	return a.service.RestoreBackup(entry.Path, onProgress)
}

// resolveBackup resolves a user-supplied backup reference: a bare file name
// is looked up in the backup directory, anything else is used as a path.
func (a *WardrobeApp) resolveBackup(ref string) (*catalog.Entry, error) {
	path := ref
	if filepath.Base(ref) == ref {
		path = filepath.Join(a.catalog.Dir(), ref)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup file not found: %s", path)
	}
	return &catalog.Entry{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Close releases the store and the log file.
func (a *WardrobeApp) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
