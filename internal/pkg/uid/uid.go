// Package uid provides ID generators used across the application: snowflake
// numeric IDs for entities, UUID strings for correlation, and 32-byte
// ObjectID hex strings for opaque credentials.
package uid

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
