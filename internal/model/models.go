package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ClothingItem is a single catalogued piece of clothing.
// The ID is assigned by the store on insert; a zero ID means "not yet stored".
// Timestamps are epoch milliseconds to match the archive wire format.
type ClothingItem struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name" validate:"required"`
	Category     Category `json:"category" validate:"category"`
	ImagePath    string   `json:"imagePath"`
	Rating       float64  `json:"rating" validate:"gte=0,lte=5"`
	Price        *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	PurchaseLink *string  `json:"purchaseLink,omitempty" validate:"omitempty,url"`
	Notes        *string  `json:"notes,omitempty"`
	CreatedAt    int64    `json:"createdAt"`
	LastWorn     *int64   `json:"lastWorn,omitempty"`
}

// Outfit is a named grouping of clothing items.
// ClothingItems is always resolved through the membership relation at read
// time, never a stored copy, so item edits show up in every outfit
// that references the item.
type Outfit struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name" validate:"required"`
	Description   *string        `json:"description,omitempty"`
	Rating        float64        `json:"rating" validate:"gte=0,lte=5"`
	ClothingItems []ClothingItem `json:"clothingItems"`
	CreatedAt     int64          `json:"createdAt"`
	LastWorn      *int64         `json:"lastWorn,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// validator has no notion of our closed category set.
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the item's field constraints.
func (c *ClothingItem) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid clothing item %q: %w", c.Name, err)
	}
	return nil
}

// Validate checks the outfit's field constraints.
// Member items are not re-validated here; they are validated where they
// enter the system.
func (o *Outfit) Validate() error {
	if err := validate.StructExcept(o, "ClothingItems"); err != nil {
		return fmt.Errorf("invalid outfit %q: %w", o.Name, err)
	}
	return nil
}
