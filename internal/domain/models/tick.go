package models

// Tick is one live trade observation from a streaming feed.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}
