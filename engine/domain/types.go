// Package domain defines the core inventory and recommendation types shared
// across the engine, plus the validation gate applied at its entry points.
package domain

import "fmt"

// InventoryItem is a single catalog record. The catalog owns these; the
// engine only ever reads them. JSON tags follow the warehouse export format.
type InventoryItem struct {
	ItemNo        string `json:"itemNo"`
	Description   string `json:"itemDescription"`
	InStock       string `json:"inStock"`
	Group         string `json:"itemGroup"`
	UnitOfMeasure string `json:"inventoryUoM"`
}

// EmbedText returns the text representation used for embedding.
func (i InventoryItem) EmbedText() string {
	return fmt.Sprintf("%s (%s)", i.Description, i.Group)
}

// ClientInfo identifies the customer a recommendation is for.
type ClientInfo struct {
	Name     string `json:"name"`
	ClientID string `json:"clientId"`
	Company  string `json:"company"`
}

// RecommendRequest is the caller-supplied input to the recommendation flow.
type RecommendRequest struct {
	Client      ClientInfo `json:"clientInfo"`
	RequestText string     `json:"requestText"`
}

// RecommendedItem is one entry of a recommendation result. The note carries
// the model's rationale ("We have this in stock." / "Similar to your request.").
type RecommendedItem struct {
	ItemNo        string `json:"itemNo"`
	Description   string `json:"itemDescription"`
	InStock       string `json:"inStock"`
	Group         string `json:"itemGroup"`
	UnitOfMeasure string `json:"inventoryUoM"`
	Note          string `json:"note"`
}

// Outcome is the uniform result of a recommendation request. Exactly one of
// the success or failure shapes is populated: on success Recommendations
// holds at most MaxRecommendations items; on failure Message says what went
// wrong, ErrorDetail carries the underlying error text, and RawResponse
// preserves unparseable model output for diagnostics.
type Outcome struct {
	Success         bool              `json:"success"`
	Recommendations []RecommendedItem `json:"recommendations,omitempty"`
	Message         string            `json:"message,omitempty"`
	ErrorDetail     string            `json:"error,omitempty"`
	RawResponse     string            `json:"rawResponse,omitempty"`
}

// MaxRecommendations caps the number of items in a successful Outcome.
const MaxRecommendations = 10
