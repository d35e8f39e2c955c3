package mode

// Mode is the candidate retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Table scans a preloaded record_id -> embedding table and fuses scores per entry.
	Table Mode = "table"
	// ANN delegates nearest-neighbour retrieval to the vector index.
	ANN Mode = "ann"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Table || m == ANN
}
