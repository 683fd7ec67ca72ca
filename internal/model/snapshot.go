package model

// Snapshot is the complete point-in-time copy of the catalogue that a single
// backup or restore run operates on. It is fully assembled in memory before
// any bytes are written, and fully parsed before any store mutation begins.
//
// ClothingItems carries no membership information; each Outfit carries its
// own resolved member list.
type Snapshot struct {
	Version       int            `json:"version"`
	Timestamp     int64          `json:"timestamp"`
	ClothingItems []ClothingItem `json:"clothingItems"`
	Outfits       []Outfit       `json:"outfits"`
}

// ImagePaths returns the distinct image paths referenced by the snapshot's
// clothing items, in first-seen order. Items without an image are skipped.
func (s *Snapshot) ImagePaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, item := range s.ClothingItems {
		if item.ImagePath == "" || seen[item.ImagePath] {
			continue
		}
		seen[item.ImagePath] = true
		paths = append(paths, item.ImagePath)
	}
	return paths
}
