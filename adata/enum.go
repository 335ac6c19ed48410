package adata

// Enum is a Scalar's Value when the bit-field's schema encoding is an
// enumerated type: it carries both the raw code and its label, so a caller
// printing the value doesn't need the Scalar's separate Label field (kept
// there too, for callers that only care about presentation).
type Enum struct {
	Code  uint64
	Label string
}
