package wm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"wm-go/internal/model"
	"wm-go/internal/testutil"
	"wm-go/internal/wm"
)

// setup builds a service over an in-memory store and filesystem. The image
// store and the backup directory share the filesystem so archive contents
// can be inspected directly.
func setup(t *testing.T) (*wm.Service, wm.Store, afero.Fs) {
	t.Helper()
	store := testutil.NewTestStore(t)
	imgStore, fs := testutil.NewTestImageStore(t)
	svc := wm.NewService(store, imgStore, fs, "/backups", wm.NewNopLogger(), testutil.FixedClock())
	return svc, store, fs
}

func addItem(t *testing.T, svc *wm.Service, name string, category model.Category) *model.ClothingItem {
	t.Helper()
	item, err := svc.AddItem(wm.AddItemInput{Name: name, Category: category, Rating: 3})
	if err != nil {
		t.Fatalf("AddItem(%q) error = %v", name, err)
	}
	return item
}

func TestServiceAddItem(t *testing.T) {
	t.Run("valid item is stored", func(t *testing.T) {
		svc, store, _ := setup(t)

		item := addItem(t, svc, "Blue Oxford Shirt", model.CategoryTop)
		if item.ID == 0 {
			t.Error("item was not assigned an ID")
		}
		if item.CreatedAt != testutil.FixedClock().Now().UnixMilli() {
			t.Errorf("createdAt = %d, want clock time", item.CreatedAt)
		}

		got, _ := store.GetClothingItem(item.ID)
		if got == nil || got.Name != "Blue Oxford Shirt" {
			t.Errorf("stored item = %+v", got)
		}
	})

	t.Run("photo is saved to the image store", func(t *testing.T) {
		svc, store, fs := setup(t)

		item, err := svc.AddItem(wm.AddItemInput{
			Name:     "Shirt",
			Category: model.CategoryTop,
			Image:    bytes.NewReader([]byte("photo bytes")),
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if item.ImagePath == "" {
			t.Fatal("item has no image path")
		}
		if exists, _ := afero.Exists(fs, item.ImagePath); !exists {
			t.Errorf("image file %s does not exist", item.ImagePath)
		}

		got, _ := store.GetClothingItem(item.ID)
		if got.ImagePath != item.ImagePath {
			t.Errorf("stored image path = %q, want %q", got.ImagePath, item.ImagePath)
		}
	})

	t.Run("invalid input is rejected before any write", func(t *testing.T) {
		svc, store, _ := setup(t)

		_, err := svc.AddItem(wm.AddItemInput{Name: "Hat", Category: "sombrero"})
		if err == nil {
			t.Fatal("expected error for unknown category")
		}
		items, _ := store.ListClothingItems()
		if len(items) != 0 {
			t.Errorf("got %d items after failed add, want 0", len(items))
		}
	})
}

func TestServiceDeleteItem(t *testing.T) {
	t.Run("deletes the record and its photo", func(t *testing.T) {
		svc, store, fs := setup(t)
		item, err := svc.AddItem(wm.AddItemInput{
			Name:     "Shirt",
			Category: model.CategoryTop,
			Image:    bytes.NewReader([]byte("photo")),
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		if err := svc.DeleteItem(item.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}

		if got, _ := store.GetClothingItem(item.ID); got != nil {
			t.Error("item still stored after delete")
		}
		if exists, _ := afero.Exists(fs, item.ImagePath); exists {
			t.Error("photo still on disk after delete")
		}
	})

	t.Run("missing item fails", func(t *testing.T) {
		svc, _, _ := setup(t)
		if err := svc.DeleteItem(42); err == nil {
			t.Error("expected error for missing item")
		}
	})
}

func TestServiceOutfits(t *testing.T) {
	t.Run("create resolves and links members", func(t *testing.T) {
		svc, _, _ := setup(t)
		shirt := addItem(t, svc, "Shirt", model.CategoryTop)
		jeans := addItem(t, svc, "Jeans", model.CategoryBottom)

		outfit, err := svc.CreateOutfit("Office Casual", nil, 4, []int64{shirt.ID, jeans.ID})
		if err != nil {
			t.Fatalf("CreateOutfit() error = %v", err)
		}

		got, _ := svc.Outfit(outfit.ID)
		if got == nil || len(got.ClothingItems) != 2 {
			t.Errorf("outfit = %+v, want 2 members", got)
		}
	})

	t.Run("create fails when a member does not exist", func(t *testing.T) {
		svc, store, _ := setup(t)
		shirt := addItem(t, svc, "Shirt", model.CategoryTop)

		_, err := svc.CreateOutfit("Office Casual", nil, 4, []int64{shirt.ID, 999})
		if err == nil {
			t.Fatal("expected error for missing member")
		}
		if !strings.Contains(err.Error(), "999") {
			t.Errorf("error %q should name the missing item", err)
		}

		outfits, _ := store.ListOutfits()
		if len(outfits) != 0 {
			t.Errorf("got %d outfits after failed create, want 0", len(outfits))
		}
	})

	t.Run("deleting one outfit leaves shared items and other outfits intact", func(t *testing.T) {
		svc, _, _ := setup(t)
		a := addItem(t, svc, "A", model.CategoryTop)
		b := addItem(t, svc, "B", model.CategoryBottom)
		c := addItem(t, svc, "C", model.CategoryShoes)

		first, err := svc.CreateOutfit("First", nil, 0, []int64{a.ID, b.ID})
		if err != nil {
			t.Fatalf("CreateOutfit() error = %v", err)
		}
		second, err := svc.CreateOutfit("Second", nil, 0, []int64{b.ID, c.ID})
		if err != nil {
			t.Fatalf("CreateOutfit() error = %v", err)
		}

		if err := svc.DeleteOutfit(first.ID); err != nil {
			t.Fatalf("DeleteOutfit() error = %v", err)
		}

		items, _ := svc.Items(wm.ItemFilter{})
		if len(items) != 3 {
			t.Errorf("got %d items, want all 3 to survive", len(items))
		}
		got, _ := svc.Outfit(second.ID)
		if got == nil || len(got.ClothingItems) != 2 {
			t.Errorf("second outfit = %+v, must keep both members", got)
		}
	})
}

func TestServiceRatings(t *testing.T) {
	t.Run("rate item persists", func(t *testing.T) {
		svc, _, _ := setup(t)
		item := addItem(t, svc, "Shirt", model.CategoryTop)

		if err := svc.RateItem(item.ID, 5); err != nil {
			t.Fatalf("RateItem() error = %v", err)
		}
		got, _ := svc.Item(item.ID)
		if got.Rating != 5 {
			t.Errorf("rating = %v, want 5", got.Rating)
		}
	})

	t.Run("out of range rating is rejected", func(t *testing.T) {
		svc, _, _ := setup(t)
		item := addItem(t, svc, "Shirt", model.CategoryTop)

		if err := svc.RateItem(item.ID, 7); err == nil {
			t.Error("expected error for rating 7")
		}
	})

	t.Run("rate outfit persists", func(t *testing.T) {
		svc, _, _ := setup(t)
		item := addItem(t, svc, "Shirt", model.CategoryTop)
		outfit, _ := svc.CreateOutfit("Office Casual", nil, 2, []int64{item.ID})

		if err := svc.RateOutfit(outfit.ID, 4.5); err != nil {
			t.Fatalf("RateOutfit() error = %v", err)
		}
		got, _ := svc.Outfit(outfit.ID)
		if got.Rating != 4.5 {
			t.Errorf("rating = %v, want 4.5", got.Rating)
		}
	})
}

func TestServiceMarkWorn(t *testing.T) {
	svc, _, _ := setup(t)
	item := addItem(t, svc, "Shirt", model.CategoryTop)

	if err := svc.MarkItemWorn(item.ID); err != nil {
		t.Fatalf("MarkItemWorn() error = %v", err)
	}
	got, _ := svc.Item(item.ID)
	if got.LastWorn == nil || *got.LastWorn != testutil.FixedClock().Now().UnixMilli() {
		t.Errorf("lastWorn = %v, want clock time", got.LastWorn)
	}
}

func TestServiceCleanupImages(t *testing.T) {
	svc, _, fs := setup(t)
	item, err := svc.AddItem(wm.AddItemInput{
		Name:     "Shirt",
		Category: model.CategoryTop,
		Image:    bytes.NewReader([]byte("photo")),
	})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	afero.WriteFile(fs, "/images/orphan.jpg", []byte("x"), 0644)

	removed, err := svc.CleanupImages()
	if err != nil {
		t.Fatalf("CleanupImages() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if exists, _ := afero.Exists(fs, item.ImagePath); !exists {
		t.Error("referenced photo was removed")
	}
}
