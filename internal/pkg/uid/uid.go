// Package uid provides ID generation behind small interfaces so row ids and
// correlation ids can be swapped for deterministic values in tests.
package uid

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
