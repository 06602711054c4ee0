// Package catalog holds the read-only course records consumed from the external catalog store.
package catalog

// Item is a single course as stored in the catalog.
type Item struct {
	ID      int64
	Title   string
	Subject string
	URL     string
	Tags    []string
}

// IDs returns the ids of items in order.
func IDs(items []Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
