package model

import "slices"

// Item is a venue or event returned by the search provider and cached in the
// item store. ItemID is globally unique and never changes once stored.
type Item struct {
	ItemID     string   `json:"item_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	URL        string   `json:"url"`
	ImageURL   string   `json:"image_url"`
	Rating     float64  `json:"rating"`
	Distance   float64  `json:"distance"`
	Categories []string `json:"categories"`
}

// NormalizeSet returns the values sorted with duplicates and empty strings
// removed. A nil or empty input yields an empty, non-nil slice.
func NormalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SortItems orders items by ItemID.
func SortItems(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		switch {
		case a.ItemID < b.ItemID:
			return -1
		case a.ItemID > b.ItemID:
			return 1
		}
		return 0
	})
}
