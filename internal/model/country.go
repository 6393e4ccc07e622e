package model

// Country is reference data used for shipping and currency display.
type Country struct {
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Symbol   string   `json:"symbol"`
	States   []string `json:"states"`
}

// Countries maps an ISO country code to its reference data.
type Countries map[string]Country
