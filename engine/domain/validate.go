package domain

import "strings"

// ValidateRecommendRequest checks that a recommendation request carries both
// a request text and a fully identified client. It runs before any network
// call so bad input fails fast.
func ValidateRecommendRequest(req RecommendRequest) error {
	if strings.TrimSpace(req.RequestText) == "" {
		return NewValidationError("requestText", req.RequestText, ErrMissingRequestText)
	}
	if strings.TrimSpace(req.Client.Name) == "" {
		return NewValidationError("clientInfo.name", req.Client.Name, ErrMissingClientInfo)
	}
	if strings.TrimSpace(req.Client.ClientID) == "" {
		return NewValidationError("clientInfo.clientId", req.Client.ClientID, ErrMissingClientInfo)
	}
	if strings.TrimSpace(req.Client.Company) == "" {
		return NewValidationError("clientInfo.company", req.Client.Company, ErrMissingClientInfo)
	}
	return nil
}

// ValidateItem checks the minimum shape required to store a catalog record.
func ValidateItem(item InventoryItem) error {
	if strings.TrimSpace(item.ItemNo) == "" {
		return NewValidationError("itemNo", item.ItemNo, ErrMissingItemNo)
	}
	if strings.TrimSpace(item.Description) == "" {
		return NewValidationError("itemDescription", item.Description, ErrMissingDescription)
	}
	return nil
}
