package wm

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"wm-go/internal/model"
)

// Service is the orchestration layer that coordinates the entity store, the
// image store and the backup directory to perform the high-level catalogue
// operations needed by the CLI.
//
// A Service performs no internal locking: the caller is responsible for not
// running a backup and a restore (or two of either) concurrently.
type Service struct {
	store     Store
	images    ImageStore
	fs        afero.Fs
	backupDir string
	logger    Logger
	clock     Clock
}

// NewService creates a Service with the provided dependencies.
// backupDir is the dedicated directory archives are written to and restored
// from; it is created on first backup.
func NewService(store Store, images ImageStore, fs afero.Fs, backupDir string, logger Logger, clock Clock) *Service {
	return &Service{
		store:     store,
		images:    images,
		fs:        fs,
		backupDir: backupDir,
		logger:    logger,
		clock:     clock,
	}
}

// AddItemInput carries the user input for a new clothing item.
// Image is optional; when set, the photo is saved to the image store before
// the record is inserted.
type AddItemInput struct {
	Name         string
	Category     model.Category
	Image        io.Reader
	Rating       float64
	Price        *float64
	PurchaseLink *string
	Notes        *string
}

// AddItem saves the photo (if any), validates and inserts a new item.
// If the insert fails, the saved photo is removed again.
func (s *Service) AddItem(input AddItemInput) (*model.ClothingItem, error) {
	item := &model.ClothingItem{
		Name:         input.Name,
		Category:     input.Category,
		Rating:       input.Rating,
		Price:        input.Price,
		PurchaseLink: input.PurchaseLink,
		Notes:        input.Notes,
		CreatedAt:    s.clock.Now().UnixMilli(),
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if input.Image != nil {
		path, err := s.images.Save(input.Image)
		if err != nil {
			return nil, fmt.Errorf("saving image: %w", err)
		}
		item.ImagePath = path
	}

	id, err := s.store.InsertClothingItem(item)
	if err != nil {
		if item.ImagePath != "" {
			if derr := s.images.Delete(item.ImagePath); derr != nil {
				s.logger.Warn("removing image after failed insert", "path", item.ImagePath, "error", derr)
			}
		}
		return nil, fmt.Errorf("inserting clothing item: %w", err)
	}
	item.ID = id

	s.logger.Info("clothing item added", "id", id, "name", item.Name)
	return item, nil
}

// UpdateItem validates and persists changes to an existing item.
func (s *Service) UpdateItem(item *model.ClothingItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateClothingItem(item); err != nil {
		return fmt.Errorf("updating clothing item: %w", err)
	}
	return nil
}

// DeleteItem deletes an item, its membership rows and its photo. Outfits
// that referenced it shrink; they are never deleted. Photo removal is
// best-effort.
func (s *Service) DeleteItem(id int64) error {
	item, err := s.store.GetClothingItem(id)
	if err != nil {
		return fmt.Errorf("finding clothing item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("clothing item %d does not exist", id)
	}

	if err := s.store.DeleteClothingItem(id); err != nil {
		return fmt.Errorf("deleting clothing item: %w", err)
	}

	if item.ImagePath != "" {
		if err := s.images.Delete(item.ImagePath); err != nil {
			s.logger.Warn("removing image of deleted item", "path", item.ImagePath, "error", err)
		}
	}

	s.logger.Info("clothing item deleted", "id", id)
	return nil
}

// MarkItemWorn records that an item was worn now.
func (s *Service) MarkItemWorn(id int64) error {
	if err := s.store.MarkItemWorn(id, s.clock.Now().UnixMilli()); err != nil {
		return fmt.Errorf("marking item worn: %w", err)
	}
	return nil
}

// RateItem sets an item's rating.
func (s *Service) RateItem(id int64, rating float64) error {
	item, err := s.store.GetClothingItem(id)
	if err != nil {
		return fmt.Errorf("finding clothing item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("clothing item %d does not exist", id)
	}
	item.Rating = rating
	return s.UpdateItem(item)
}

// Items returns items matching the filter.
func (s *Service) Items(filter ItemFilter) ([]model.ClothingItem, error) {
	return s.store.FilterClothingItems(filter)
}

// Item returns a single item, or nil if it does not exist.
func (s *Service) Item(id int64) (*model.ClothingItem, error) {
	return s.store.GetClothingItem(id)
}

// CreateOutfit validates and inserts a new outfit grouping the given items.
// Every referenced item must exist.
func (s *Service) CreateOutfit(name string, description *string, rating float64, itemIDs []int64) (*model.Outfit, error) {
	outfit := &model.Outfit{
		Name:        name,
		Description: description,
		Rating:      rating,
		CreatedAt:   s.clock.Now().UnixMilli(),
	}
	if err := outfit.Validate(); err != nil {
		return nil, err
	}

	for _, itemID := range itemIDs {
		item, err := s.store.GetClothingItem(itemID)
		if err != nil {
			return nil, fmt.Errorf("finding clothing item: %w", err)
		}
		if item == nil {
			return nil, fmt.Errorf("clothing item %d does not exist", itemID)
		}
		outfit.ClothingItems = append(outfit.ClothingItems, *item)
	}

	id, err := s.store.InsertOutfit(outfit)
	if err != nil {
		return nil, fmt.Errorf("inserting outfit: %w", err)
	}
	outfit.ID = id

	for _, itemID := range itemIDs {
		if err := s.store.InsertMembership(id, itemID); err != nil {
			return nil, fmt.Errorf("adding item %d to outfit: %w", itemID, err)
		}
	}

	s.logger.Info("outfit created", "id", id, "name", name, "items", len(itemIDs))
	return outfit, nil
}

// DeleteOutfit deletes an outfit and its membership rows only.
func (s *Service) DeleteOutfit(id int64) error {
	if err := s.store.DeleteOutfit(id); err != nil {
		return fmt.Errorf("deleting outfit: %w", err)
	}
	s.logger.Info("outfit deleted", "id", id)
	return nil
}

// MarkOutfitWorn records that an outfit was worn now.
func (s *Service) MarkOutfitWorn(id int64) error {
	if err := s.store.MarkOutfitWorn(id, s.clock.Now().UnixMilli()); err != nil {
		return fmt.Errorf("marking outfit worn: %w", err)
	}
	return nil
}

// RateOutfit sets an outfit's rating.
func (s *Service) RateOutfit(id int64, rating float64) error {
	outfit, err := s.store.GetOutfit(id)
	if err != nil {
		return fmt.Errorf("finding outfit: %w", err)
	}
	if outfit == nil {
		return fmt.Errorf("outfit %d does not exist", id)
	}
	outfit.Rating = rating
	if err := outfit.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateOutfit(outfit); err != nil {
		return fmt.Errorf("updating outfit: %w", err)
	}
	return nil
}

// Outfits returns all outfits with resolved members.
func (s *Service) Outfits() ([]model.Outfit, error) {
	return s.store.ListOutfits()
}

// Outfit returns a single outfit with resolved members, or nil.
func (s *Service) Outfit(id int64) (*model.Outfit, error) {
	return s.store.GetOutfit(id)
}

// Stats returns aggregate catalogue statistics.
func (s *Service) Stats() (*Stats, error) {
	return s.store.Stats()
}

// CleanupImages removes stored images no catalogue item references.
// Returns the number removed.
func (s *Service) CleanupImages() (int, error) {
	items, err := s.store.ListClothingItems()
	if err != nil {
		return 0, fmt.Errorf("listing clothing items: %w", err)
	}
	used := make([]string, 0, len(items))
	for _, item := range items {
		if item.ImagePath != "" {
			used = append(used, item.ImagePath)
		}
	}

	removed, err := s.images.CleanupUnused(used)
	if err != nil {
		return removed, fmt.Errorf("cleaning up images: %w", err)
	}
	if removed > 0 {
		s.logger.Info("unused images removed", "count", removed)
	}
	return removed, nil
}
