package semantic

import "github.com/invex-ai/invex/engine/domain"

// ItemVector is one catalog item ready for the vector index: a point ID,
// its embedding, and the item fields stored as payload.
type ItemVector struct {
	ID        string
	Embedding []float32
	Item      domain.InventoryItem
}

// SearchMatch is a single similarity hit. Score is cosine similarity and is
// only comparable to other scores from the same query.
type SearchMatch struct {
	ItemNo        string  `json:"itemNo"`
	Description   string  `json:"itemDescription"`
	InStock       string  `json:"inStock"`
	Group         string  `json:"itemGroup"`
	UnitOfMeasure string  `json:"inventoryUoM"`
	Score         float32 `json:"score"`
}

// AsItem returns the match's payload fields as a catalog record.
func (m SearchMatch) AsItem() domain.InventoryItem {
	return domain.InventoryItem{
		ItemNo:        m.ItemNo,
		Description:   m.Description,
		InStock:       m.InStock,
		Group:         m.Group,
		UnitOfMeasure: m.UnitOfMeasure,
	}
}
