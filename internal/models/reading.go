package models

// Reading is one formatted parameter of a poll tick.
// Value is nil when the adapter had no data for the parameter.
type Reading struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}
