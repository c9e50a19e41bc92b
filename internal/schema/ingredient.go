package schema

// IngredientName is the canonical form of one raw ingredient string.
type IngredientName struct {
	Word       string   `json:"word"`
	Plural     string   `json:"plural"`
	Variations []string `json:"variations"`
}
