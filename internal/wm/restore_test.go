package wm_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"wm-go/internal/archive"
	"wm-go/internal/model"
	"wm-go/internal/wm"
)

// archiveImages is an in-memory archive.ImageSource keyed by path.
type archiveImages map[string][]byte

func (m archiveImages) Open(path string) (io.ReadCloser, error) {
	data, ok := m[path]
	if !ok {
		return nil, errors.New("no such image")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// writeArchiveFile encodes the snapshot into an archive file on fs.
func writeArchiveFile(t *testing.T, fs afero.Fs, path string, snapshot *model.Snapshot, images archiveImages) {
	t.Helper()
	var buf bytes.Buffer
	if err := archive.Write(&buf, snapshot, images, wm.NewNopLogger()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestServiceRestoreBackup(t *testing.T) {
	t.Run("restores items, outfits and memberships under fresh IDs", func(t *testing.T) {
		svc, store, fs := setup(t)
		// IDs in the archive deliberately collide with nothing in the store
		// and must not survive the restore.
		snapshot := &model.Snapshot{
			Version:   archive.FormatVersion,
			Timestamp: 1705314600000,
			ClothingItems: []model.ClothingItem{
				{ID: 10, Name: "Shirt", Category: model.CategoryTop, ImagePath: "/old/device/shirt.jpg", Rating: 4, CreatedAt: 1},
				{ID: 20, Name: "Jeans", Category: model.CategoryBottom, Rating: 5, CreatedAt: 2},
			},
			Outfits: []model.Outfit{
				{
					ID:   5,
					Name: "Office Casual",
					ClothingItems: []model.ClothingItem{
						{ID: 10, Name: "Shirt", Category: model.CategoryTop},
						{ID: 20, Name: "Jeans", Category: model.CategoryBottom},
					},
					CreatedAt: 3,
				},
			},
		}
		writeArchiveFile(t, fs, "/backups/b.zip", snapshot,
			archiveImages{"/old/device/shirt.jpg": []byte("photo bytes")})

		result, err := svc.RestoreBackup("/backups/b.zip", nil)
		if err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}
		if result.ClothingItems != 2 || result.Outfits != 1 || result.Quarantined != 0 {
			t.Errorf("result = %+v", result)
		}

		items, _ := store.ListClothingItems()
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2", len(items))
		}
		for _, item := range items {
			if item.ID == 10 || item.ID == 20 {
				t.Errorf("archive ID %d survived the restore", item.ID)
			}
		}

		outfits, _ := store.ListOutfits()
		if len(outfits) != 1 {
			t.Fatalf("got %d outfits, want 1", len(outfits))
		}
		if len(outfits[0].ClothingItems) != 2 {
			t.Errorf("outfit has %d members, want 2 re-linked members", len(outfits[0].ClothingItems))
		}

		// The shirt's image path now points into the local image store.
		var shirt *model.ClothingItem
		for i := range items {
			if items[i].Name == "Shirt" {
				shirt = &items[i]
			}
		}
		if shirt.ImagePath != filepath.Join("/images", "shirt.jpg") {
			t.Errorf("image path = %q, want rewritten to the image store", shirt.ImagePath)
		}
		data, err := afero.ReadFile(fs, shirt.ImagePath)
		if err != nil {
			t.Fatalf("reading restored image: %v", err)
		}
		if string(data) != "photo bytes" {
			t.Errorf("restored image = %q", data)
		}
	})

	t.Run("adds to the existing catalogue", func(t *testing.T) {
		svc, store, fs := setup(t)
		existing := addItem(t, svc, "Existing", model.CategoryShoes)

		snapshot := &model.Snapshot{
			Version:       archive.FormatVersion,
			ClothingItems: []model.ClothingItem{{ID: 1, Name: "Shirt", Category: model.CategoryTop, CreatedAt: 1}},
		}
		writeArchiveFile(t, fs, "/backups/b.zip", snapshot, archiveImages{})

		if _, err := svc.RestoreBackup("/backups/b.zip", nil); err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}

		items, _ := store.ListClothingItems()
		if len(items) != 2 {
			t.Errorf("got %d items, want existing plus restored", len(items))
		}
		if got, _ := store.GetClothingItem(existing.ID); got == nil {
			t.Error("existing item lost during restore")
		}
	})

	t.Run("malformed archive leaves the store untouched", func(t *testing.T) {
		svc, store, fs := setup(t)
		addItem(t, svc, "Existing", model.CategoryTop)
		afero.WriteFile(fs, "/backups/bad.zip", []byte("not a zip"), 0644)

		if _, err := svc.RestoreBackup("/backups/bad.zip", nil); err == nil {
			t.Fatal("expected error for malformed archive")
		}

		items, _ := store.ListClothingItems()
		if len(items) != 1 {
			t.Errorf("got %d items, want 1", len(items))
		}
	})

	t.Run("missing archive fails cleanly", func(t *testing.T) {
		svc, _, _ := setup(t)
		if _, err := svc.RestoreBackup("/backups/gone.zip", nil); err == nil {
			t.Error("expected error for missing archive")
		}
	})

	t.Run("newer format version is refused", func(t *testing.T) {
		svc, store, fs := setup(t)
		snapshot := &model.Snapshot{
			Version:       archive.FormatVersion + 1,
			ClothingItems: []model.ClothingItem{{ID: 1, Name: "Shirt", Category: model.CategoryTop}},
		}
		writeArchiveFile(t, fs, "/backups/future.zip", snapshot, archiveImages{})

		_, err := svc.RestoreBackup("/backups/future.zip", nil)
		if !errors.Is(err, wm.ErrArchiveTooNew) {
			t.Fatalf("error = %v, want ErrArchiveTooNew", err)
		}

		items, _ := store.ListClothingItems()
		if len(items) != 0 {
			t.Errorf("got %d items, want 0", len(items))
		}
	})

	t.Run("invalid records are quarantined, not fatal", func(t *testing.T) {
		svc, store, fs := setup(t)
		snapshot := &model.Snapshot{
			Version: archive.FormatVersion,
			ClothingItems: []model.ClothingItem{
				{ID: 1, Name: "Good Shirt", Category: model.CategoryTop, CreatedAt: 1},
				{ID: 2, Name: "Bad Hat", Category: "sombrero", CreatedAt: 2},
				{ID: 3, Name: "", Category: model.CategoryShoes, CreatedAt: 3},
			},
			Outfits: []model.Outfit{
				{ID: 1, Name: "Fine", CreatedAt: 4},
				{ID: 2, Name: "Broken", Rating: 9, CreatedAt: 5},
			},
		}
		writeArchiveFile(t, fs, "/backups/b.zip", snapshot, archiveImages{})

		result, err := svc.RestoreBackup("/backups/b.zip", nil)
		if err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}
		if result.ClothingItems != 1 || result.Outfits != 1 {
			t.Errorf("result = %+v, want 1 item and 1 outfit restored", result)
		}
		if result.Quarantined != 3 {
			t.Errorf("quarantined = %d, want 3", result.Quarantined)
		}

		items, _ := store.ListClothingItems()
		if len(items) != 1 || items[0].Name != "Good Shirt" {
			t.Errorf("items = %+v, want only Good Shirt", items)
		}
	})

	t.Run("membership to a quarantined item is skipped", func(t *testing.T) {
		svc, store, fs := setup(t)
		snapshot := &model.Snapshot{
			Version: archive.FormatVersion,
			ClothingItems: []model.ClothingItem{
				{ID: 1, Name: "Shirt", Category: model.CategoryTop, CreatedAt: 1},
				{ID: 2, Name: "Bad", Category: "bogus", CreatedAt: 2},
			},
			Outfits: []model.Outfit{
				{
					ID:   1,
					Name: "Office Casual",
					ClothingItems: []model.ClothingItem{
						{ID: 1, Name: "Shirt", Category: model.CategoryTop},
						{ID: 2, Name: "Bad", Category: "bogus"},
					},
					CreatedAt: 3,
				},
			},
		}
		writeArchiveFile(t, fs, "/backups/b.zip", snapshot, archiveImages{})

		if _, err := svc.RestoreBackup("/backups/b.zip", nil); err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}

		outfits, _ := store.ListOutfits()
		if len(outfits) != 1 {
			t.Fatalf("got %d outfits, want 1", len(outfits))
		}
		if len(outfits[0].ClothingItems) != 1 || outfits[0].ClothingItems[0].Name != "Shirt" {
			t.Errorf("members = %+v, want only Shirt", outfits[0].ClothingItems)
		}
	})

	t.Run("round trip through backup and restore", func(t *testing.T) {
		svc, store, _ := setup(t)
		shirt, err := svc.AddItem(wm.AddItemInput{
			Name:     "Shirt",
			Category: model.CategoryTop,
			Image:    bytes.NewReader([]byte("photo")),
			Rating:   4,
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		jeans := addItem(t, svc, "Jeans", model.CategoryBottom)
		if _, err := svc.CreateOutfit("Office Casual", nil, 4, []int64{shirt.ID, jeans.ID}); err != nil {
			t.Fatalf("CreateOutfit() error = %v", err)
		}

		file, err := svc.CreateBackup(nil)
		if err != nil {
			t.Fatalf("CreateBackup() error = %v", err)
		}

		result, err := svc.RestoreBackup(file.Path, nil)
		if err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}
		if result.ClothingItems != 2 || result.Outfits != 1 {
			t.Errorf("result = %+v", result)
		}

		// The restore is additive: originals plus restored copies.
		items, _ := store.ListClothingItems()
		if len(items) != 4 {
			t.Errorf("got %d items, want 4", len(items))
		}
		outfits, _ := store.ListOutfits()
		if len(outfits) != 2 {
			t.Fatalf("got %d outfits, want 2", len(outfits))
		}
		for _, outfit := range outfits {
			if len(outfit.ClothingItems) != 2 {
				t.Errorf("outfit %q has %d members, want 2", outfit.Name, len(outfit.ClothingItems))
			}
		}
	})

	t.Run("reports monotonic progress ending at 100", func(t *testing.T) {
		svc, _, fs := setup(t)
		writeArchiveFile(t, fs, "/backups/b.zip",
			&model.Snapshot{Version: archive.FormatVersion}, archiveImages{})

		var percents []int
		_, err := svc.RestoreBackup("/backups/b.zip", func(p wm.Progress) {
			percents = append(percents, p.Percent)
		})
		if err != nil {
			t.Fatalf("RestoreBackup() error = %v", err)
		}
		if len(percents) == 0 {
			t.Fatal("no progress reported")
		}
		for i := 1; i < len(percents); i++ {
			if percents[i] < percents[i-1] {
				t.Errorf("progress went backwards: %v", percents)
			}
		}
		if percents[len(percents)-1] != 100 {
			t.Errorf("final progress = %d, want 100", percents[len(percents)-1])
		}
	})
}
