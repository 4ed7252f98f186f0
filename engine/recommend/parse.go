package recommend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/invex-ai/invex/engine/domain"
)

// Models frequently wrap structured output in markdown fencing no matter
// what the prompt says, so a fenced block is extracted first and the raw
// text is only parsed directly when no fence is present.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// scalar decodes a JSON string or number into a string, matching how item
// numbers and stock levels vary between the two in model output.
type scalar string

func (s *scalar) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = scalar(num.String())
	return nil
}

type wireItem struct {
	ItemNo        scalar `json:"itemNo"`
	Description   scalar `json:"itemDescription"`
	InStock       scalar `json:"inStock"`
	Group         scalar `json:"itemGroup"`
	UnitOfMeasure scalar `json:"inventoryUoM"`
	Note          string `json:"note"`
}

// ParseRecommendations decodes the model's raw text into typed items.
// Fenced and unfenced payloads parse identically. Items missing the
// required itemNo field make the whole payload invalid.
func ParseRecommendations(raw string) ([]domain.RecommendedItem, error) {
	text := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var wire []wireItem
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}

	items := make([]domain.RecommendedItem, len(wire))
	for i, w := range wire {
		if strings.TrimSpace(string(w.ItemNo)) == "" {
			return nil, fmt.Errorf("recommendation %d is missing itemNo", i)
		}
		items[i] = domain.RecommendedItem{
			ItemNo:        string(w.ItemNo),
			Description:   string(w.Description),
			InStock:       string(w.InStock),
			Group:         string(w.Group),
			UnitOfMeasure: string(w.UnitOfMeasure),
			Note:          w.Note,
		}
	}
	return items, nil
}
