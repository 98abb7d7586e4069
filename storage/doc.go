// Package storage defines the record-store boundary of the engine: repository
// interfaces over entries and relationship edges, plus the binary
// serialization they share. The badger subpackage provides the embedded
// implementation.
package storage
