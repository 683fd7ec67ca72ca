package model

import "fmt"

// Category classifies a clothing item. The set of values is closed and
// versioned with the archive format: archives written today must stay
// readable, so variants are only ever added, never renamed.
type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryOuterwear Category = "outerwear"
	CategoryShoes     Category = "shoes"
	CategoryAccessory Category = "accessory"
)

// Categories lists all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryTop,
		CategoryBottom,
		CategoryOuterwear,
		CategoryShoes,
		CategoryAccessory,
	}
}

// ParseCategory validates a raw category value.
// Unknown values are rejected; callers decoding external data should
// quarantine the record rather than abort.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category: %q", raw)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryOuterwear, CategoryShoes, CategoryAccessory:
		return true
	}
	return false
}

func (c Category) String() string { return string(c) }
