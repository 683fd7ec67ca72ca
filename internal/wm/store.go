package wm

import "wm-go/internal/model"

// Store provides an interface for catalogue persistence.
// Implementations must reproduce the cascade rules in code rather than
// relying on engine-level foreign keys: deleting a clothing item removes the
// membership rows that reference it (shrinking affected outfits); deleting
// an outfit removes only that outfit's membership rows. Neither direction
// ever deletes records of the other collection.
type Store interface {
	// Clothing item operations

	// ListClothingItems returns all items, newest first.
	ListClothingItems() ([]model.ClothingItem, error)

	// GetClothingItem returns an item by ID, or nil if not found.
	GetClothingItem(id int64) (*model.ClothingItem, error)

	// InsertClothingItem inserts an item and returns its assigned ID.
	InsertClothingItem(item *model.ClothingItem) (int64, error)

	// UpdateClothingItem updates all mutable fields of an item.
	UpdateClothingItem(item *model.ClothingItem) error

	// DeleteClothingItem deletes an item and its membership rows.
	DeleteClothingItem(id int64) error

	// MarkItemWorn sets an item's last-worn timestamp (epoch millis).
	MarkItemWorn(id int64, when int64) error

	// FilterClothingItems returns items matching the filter.
	FilterClothingItems(filter ItemFilter) ([]model.ClothingItem, error)

	// Outfit operations

	// ListOutfits returns all outfits, newest first, with member items
	// resolved through the membership relation.
	ListOutfits() ([]model.Outfit, error)

	// GetOutfit returns an outfit with resolved members, or nil if not found.
	GetOutfit(id int64) (*model.Outfit, error)

	// InsertOutfit inserts the outfit record only (no membership rows) and
	// returns its assigned ID.
	InsertOutfit(outfit *model.Outfit) (int64, error)

	// UpdateOutfit updates an outfit's own fields; membership is managed
	// through InsertMembership/RemoveMembership.
	UpdateOutfit(outfit *model.Outfit) error

	// DeleteOutfit deletes an outfit and its membership rows.
	// Referenced clothing items are untouched.
	DeleteOutfit(id int64) error

	// MarkOutfitWorn sets an outfit's last-worn timestamp (epoch millis).
	MarkOutfitWorn(id int64, when int64) error

	// Membership operations

	// InsertMembership adds an item to an outfit. Duplicate pairs are no-ops.
	InsertMembership(outfitID, itemID int64) error

	// RemoveMembership removes an item from an outfit.
	RemoveMembership(outfitID, itemID int64) error

	// Aggregates

	// Stats returns aggregate statistics over the catalogue.
	Stats() (*Stats, error)

	// BeginRestore opens a transaction covering all restore inserts, so a
	// store failure partway through a restore rolls back to the pre-restore
	// state.
	BeginRestore() (RestoreTx, error)

	// Close closes the store.
	Close() error
}

// RestoreTx is a single transaction spanning every insert of one restore
// run. Exactly one of Commit or Rollback must be called.
type RestoreTx interface {
	InsertClothingItem(item *model.ClothingItem) (int64, error)
	InsertOutfit(outfit *model.Outfit) (int64, error)
	InsertMembership(outfitID, itemID int64) error
	Commit() error
	Rollback() error
}

// ItemSort selects the ordering of filtered item queries.
type ItemSort int

const (
	SortByCreated ItemSort = iota // newest first
	SortByRating                  // highest rated first
)

// ItemFilter narrows and orders a clothing item query.
// Nil fields mean "no constraint". Search matches name or notes substrings.
type ItemFilter struct {
	Category  *model.Category
	MinRating *float64
	MaxRating *float64
	MinPrice  *float64
	MaxPrice  *float64
	Search    string
	Sort      ItemSort
}

// Stats holds aggregate statistics over the catalogue.
// AverageRating considers rated items only; TotalValue sums priced items.
type Stats struct {
	ItemCount        int
	ItemsPerCategory map[model.Category]int
	OutfitCount      int
	AverageRating    float64
	TotalValue       float64
	RecentlyWorn     []model.ClothingItem
}
