package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invex-ai/invex/engine/domain"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/fn"
)

// candidate is the prompt-facing view of a search match. Scores are
// deliberately absent; ranking context belongs to the retriever, not the
// model.
type candidate struct {
	ItemNo        string `json:"itemNo"`
	Description   string `json:"itemDescription"`
	InStock       string `json:"inStock"`
	Group         string `json:"itemGroup"`
	UnitOfMeasure string `json:"inventoryUoM"`
}

// BuildPrompt renders the recommendation prompt from the client identity,
// the verbatim request text, and the retrieved candidates. It is a pure
// function: identical inputs always produce identical prompt text.
func BuildPrompt(client domain.ClientInfo, requestText string, matches []semantic.SearchMatch) string {
	candidates := fn.Map(matches, func(m semantic.SearchMatch) candidate {
		return candidate{
			ItemNo:        m.ItemNo,
			Description:   m.Description,
			InStock:       m.InStock,
			Group:         m.Group,
			UnitOfMeasure: m.UnitOfMeasure,
		}
	})
	serialized, _ := json.Marshal(candidates)

	var b strings.Builder
	b.WriteString("You are an AI assistant that helps a steel warehouse recommend inventory items based on a customer's message.\n\n")
	fmt.Fprintf(&b, "Customer Info:\n- Name: %s\n- ID: %s\n- Company: %s\n\n", client.Name, client.ClientID, client.Company)
	fmt.Fprintf(&b, "Customer's Request:\n%q\n\n", requestText)
	fmt.Fprintf(&b, "Available inventory items (in stock only):\n%s\n\n", serialized)
	b.WriteString(`Rules:
1. Only recommend items from the list above. Never invent items.
2. If the exact requested item exists, include it first with note: "We have this in stock."
3. Otherwise suggest up to 3-5 similar items with note: "Similar to your request."
4. Output a maximum of 10 items as a JSON array of objects with fields:
   itemNo, itemDescription, inStock, itemGroup, inventoryUoM, note
`)
	return b.String()
}
